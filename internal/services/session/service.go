package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/config"
	"github.com/mikkqu/rc-auth/internal/infrastructure/redis"
	"github.com/mikkqu/rc-auth/internal/services/oauth"
)

const (
	// sessionLifetime matches the refresh token lifetime upstream. The
	// store TTL slides on every access; the signed cookie's expiry bounds
	// the session's absolute lifetime from creation.
	sessionLifetime = 30 * 24 * time.Hour

	cookieName = "rc_session"
	keyPrefix  = "session:"
)

// Record is the server-side session state. At most one token record is held
// per session; replacing it is a whole-record write through Save.
type Record struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Token     *oauth.TokenRecord `json:"token,omitempty"`
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type Store interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Set(ctx context.Context, record *Record) error
	Destroy(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]*Record
	expiries map[string]time.Time
}

type Service struct {
	store  Store
	secret []byte
	secure bool
}

// NewService builds a session service backed by Redis when available,
// falling back to in-memory storage otherwise.
func NewService(redisService *redis.Service, cfg *config.Config) *Service {
	var store Store
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, falling back to in-memory session storage")
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService}
		}
	} else {
		store = newMemoryStore()
	}

	return &Service{
		store:  store,
		secret: []byte(cfg.SessionSecret),
		secure: cfg.IsProduction(),
	}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]*Record),
		expiries: make(map[string]time.Time),
	}
}

// Redis Store implementation
func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := rs.redisService.Get(ctx, keyPrefix+sessionID)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, err
	}

	// Sliding expiration: every read re-arms the TTL.
	if err := rs.redisService.Expire(ctx, keyPrefix+sessionID, sessionLifetime); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to refresh session TTL")
	}

	return &record, nil
}

func (rs *RedisStore) Set(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, keyPrefix+record.ID, string(data), sessionLifetime)
}

func (rs *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, keyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	record, exists := ms.records[sessionID]
	if !exists {
		return nil, nil
	}

	if time.Now().After(ms.expiries[sessionID]) {
		delete(ms.records, sessionID)
		delete(ms.expiries, sessionID)
		return nil, nil
	}

	ms.expiries[sessionID] = time.Now().Add(sessionLifetime)
	return record, nil
}

func (ms *MemoryStore) Set(ctx context.Context, record *Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.records[record.ID] = record
	ms.expiries[record.ID] = time.Now().Add(sessionLifetime)
	return nil
}

func (ms *MemoryStore) Destroy(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.records, sessionID)
	delete(ms.expiries, sessionID)
	return nil
}

// Issue creates a new empty session record, persists it and sets the signed
// session cookie on the response.
func (s *Service) Issue(ctx context.Context, w http.ResponseWriter) (*Record, error) {
	now := time.Now()
	record := &Record{
		ID:        uuid.New().String(),
		CreatedAt: now,
	}

	if err := s.store.Set(ctx, record); err != nil {
		return nil, err
	}

	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        record.ID,
		},
		SessionID: record.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  now.Add(sessionLifetime),
	})

	log.Info().Str("session_id", record.ID).Msg("Session issued")

	return record, nil
}

// Resolve looks up the session record referenced by the request's cookie.
// It returns (nil, nil) when there is no cookie, the signature is invalid or
// the stored record is gone; store-level failures are returned as errors.
func (s *Service) Resolve(ctx context.Context, r *http.Request) (*Record, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, nil
		}
		return nil, err
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("Rejecting invalid session cookie")
		return nil, nil
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, nil
	}

	return s.store.Get(ctx, claims.SessionID)
}

// Save persists the record, replacing any stored state for its id. Token
// record transitions go through here as a single whole-record write.
func (s *Service) Save(ctx context.Context, record *Record) error {
	return s.store.Set(ctx, record)
}

// Destroy removes the session record and expires the cookie. Destroying an
// already-absent session is not an error.
func (s *Service) Destroy(ctx context.Context, w http.ResponseWriter, record *Record) error {
	if record != nil {
		if err := s.store.Destroy(ctx, record.ID); err != nil {
			return err
		}
		log.Info().Str("session_id", record.ID).Msg("Session destroyed")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})

	return nil
}
