package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mikkqu/rc-auth/internal/config"
	"github.com/mikkqu/rc-auth/internal/infrastructure/redis"
	"github.com/mikkqu/rc-auth/internal/services/oauth"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionSecret: "test-session-secret",
		Environment:   "development",
	}
}

func requestWithCookies(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range w.Result().Cookies() {
		r.AddCookie(cookie)
	}
	return r
}

func TestMemorySessionLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(nil, testConfig())

	t.Run("issue and resolve", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if record.ID == "" {
			t.Error("Expected session ID to be set")
		}
		if record.Token != nil {
			t.Error("Expected new session to carry no token")
		}

		got, err := svc.Resolve(ctx, requestWithCookies(w))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got == nil {
			t.Fatal("Expected session to resolve")
		}
		if got.ID != record.ID {
			t.Errorf("Got session ID %s, want %s", got.ID, record.ID)
		}
	})

	t.Run("token record round trip", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		record.Token = &oauth.TokenRecord{
			AccessToken:  "access-abc",
			RefreshToken: "refresh-def",
			TokenType:    "Bearer",
			ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
		}
		if err := svc.Save(ctx, record); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		got, err := svc.Resolve(ctx, requestWithCookies(w))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got.Token == nil {
			t.Fatal("Expected token record to persist")
		}
		if got.Token.AccessToken != "access-abc" {
			t.Errorf("Got access token %q, want access-abc", got.Token.AccessToken)
		}
	})

	t.Run("no cookie resolves to nil", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		got, err := svc.Resolve(ctx, r)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != nil {
			t.Error("Expected nil session without a cookie")
		}
	})

	t.Run("tampered cookie resolves to nil", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: cookieName, Value: "not-a-signed-token"})

		got, err := svc.Resolve(ctx, r)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != nil {
			t.Error("Expected nil session for an unsigned cookie")
		}
	})

	t.Run("cookie signed with wrong secret resolves to nil", func(t *testing.T) {
		other := NewService(nil, &config.Config{SessionSecret: "different-secret"})
		w := httptest.NewRecorder()
		if _, err := other.Issue(ctx, w); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		got, err := svc.Resolve(ctx, requestWithCookies(w))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != nil {
			t.Error("Expected nil session for a foreign signature")
		}
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		r := requestWithCookies(w)

		if err := svc.Destroy(ctx, httptest.NewRecorder(), record); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
		if err := svc.Destroy(ctx, httptest.NewRecorder(), record); err != nil {
			t.Fatalf("Second destroy failed: %v", err)
		}
		if err := svc.Destroy(ctx, httptest.NewRecorder(), nil); err != nil {
			t.Fatalf("Destroy without record failed: %v", err)
		}

		got, err := svc.Resolve(ctx, r)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != nil {
			t.Error("Expected session to be gone after destroy")
		}
	})

	t.Run("destroy expires the cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		if err := svc.Destroy(ctx, w, nil); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}

		cookies := w.Result().Cookies()
		if len(cookies) != 1 {
			t.Fatalf("Got %d cookies, want 1", len(cookies))
		}
		if cookies[0].Value != "" {
			t.Error("Expected cleared cookie value")
		}
		if !cookies[0].Expires.Before(time.Now()) {
			t.Error("Expected cookie expiry in the past")
		}
	})
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	redisService := redis.NewService(mr.Addr(), "")
	svc := NewService(redisService, testConfig())

	if _, ok := svc.store.(*RedisStore); !ok {
		t.Fatalf("Expected Redis-backed store, got %T", svc.store)
	}

	t.Run("round trip through redis", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		if !mr.Exists(keyPrefix + record.ID) {
			t.Fatal("Expected session key in Redis")
		}

		got, err := svc.Resolve(ctx, requestWithCookies(w))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got == nil || got.ID != record.ID {
			t.Fatal("Expected session to resolve from Redis")
		}
	})

	t.Run("sliding expiration re-arms TTL on access", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		key := keyPrefix + record.ID
		mr.FastForward(10 * 24 * time.Hour)

		before := mr.TTL(key)
		if before >= sessionLifetime {
			t.Fatalf("TTL did not decay: %v", before)
		}

		if _, err := svc.Resolve(ctx, requestWithCookies(w)); err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		after := mr.TTL(key)
		if after != sessionLifetime {
			t.Errorf("Got TTL %v after access, want %v", after, sessionLifetime)
		}
	})

	t.Run("expired session is gone", func(t *testing.T) {
		w := httptest.NewRecorder()
		if _, err := svc.Issue(ctx, w); err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		mr.FastForward(sessionLifetime + time.Hour)

		got, err := svc.Resolve(ctx, requestWithCookies(w))
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != nil {
			t.Error("Expected session to expire out of Redis")
		}
	})

	t.Run("destroy removes the key", func(t *testing.T) {
		w := httptest.NewRecorder()
		record, err := svc.Issue(ctx, w)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}

		if err := svc.Destroy(ctx, httptest.NewRecorder(), record); err != nil {
			t.Fatalf("Destroy failed: %v", err)
		}
		if mr.Exists(keyPrefix + record.ID) {
			t.Error("Expected session key to be deleted")
		}
	})
}

func TestRedisFallbackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	svc := NewService(redis.NewService(addr, ""), testConfig())
	if _, ok := svc.store.(*MemoryStore); !ok {
		t.Fatalf("Expected in-memory fallback, got %T", svc.store)
	}
}
