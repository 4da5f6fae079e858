package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/mikkqu/rc-auth/internal/config"
)

const requestTimeout = 10 * time.Second

// TokenRecord is the token state persisted inside a session. Records are
// immutable: a refresh produces a new record that replaces the old one
// wholesale, never a field update in place.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired compares the record's expiry against the current time. A positive
// skew treats tokens expiring within that margin as already expired.
func (t *TokenRecord) Expired(skew time.Duration) bool {
	return !time.Now().Add(skew).Before(t.ExpiresAt)
}

// ExchangeError reports a non-2xx answer from the token endpoint during the
// authorization-code exchange.
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// RefreshError reports the authorization server rejecting a refresh token
// (revoked, expired or malformed).
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh rejected with status %d: %s", e.Status, e.Body)
}

// Client wraps the two token-producing operations against the authorization
// server. It has no session knowledge.
type Client struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		conf: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.OAuthHost + "/oauth/authorize",
				TokenURL:  cfg.OAuthHost + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// AuthCodeURL builds the authorization redirect URL with the fixed,
// pre-registered redirect URI.
func (c *Client) AuthCodeURL() string {
	return c.conf.AuthCodeURL("")
}

// Exchange trades an authorization code for a new token record. The redirect
// URI sent with the exchange is the same fixed one used in AuthCodeURL, which
// the authorization server requires to match exactly.
func (c *Client) Exchange(ctx context.Context, code string) (*TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.conf.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &ExchangeError{
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("token endpoint unreachable: %w", err)
	}

	record := newRecord(tok)
	log.Info().Str("token_prefix", TokenPrefix(record.AccessToken)).Time("expires_at", record.ExpiresAt).Msg("Authorization code exchanged")

	return record, nil
}

// Refresh trades a record's refresh token for a new token record. The
// returned record is always complete: if the authorization server omits a new
// refresh token, the previous one is carried over.
func (c *Client) Refresh(ctx context.Context, record *TokenRecord) (*TokenRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	src := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &RefreshError{
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
			}
		}
		// Transport-level failure (timeout, DNS). Kept distinct from an
		// explicit rejection so logs can tell the two apart.
		return nil, fmt.Errorf("token refresh request failed: %w", err)
	}

	fresh := newRecord(tok)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = record.RefreshToken
	}

	log.Info().Str("token_prefix", TokenPrefix(fresh.AccessToken)).Time("expires_at", fresh.ExpiresAt).Msg("Access token refreshed")

	return fresh, nil
}

// TokenPrefix returns the first few characters of a token for logging.
// Full token values must never reach the logs.
func TokenPrefix(token string) string {
	if len(token) > 5 {
		return token[:5]
	}
	return token
}

func newRecord(tok *oauth2.Token) *TokenRecord {
	return &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
}
