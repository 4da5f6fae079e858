package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/services/oauth"
	"github.com/mikkqu/rc-auth/internal/services/session"
	"github.com/mikkqu/rc-auth/pkg/httpext"
)

type contextKey string

const (
	sessionKey     contextKey = "session"
	accessTokenKey contextKey = "accessToken"
)

// TokenRefresh guards routes that need a live access token. It resolves the
// request's session, refreshes an expired token before the handler runs, and
// tears the session down when the refresh is rejected. Expiry is re-evaluated
// on every request; there is no proactive timer-based refresh.
func TokenRefresh(sessions *session.Service, client *oauth.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			record, err := sessions.Resolve(r.Context(), r)
			if err != nil {
				log.Error().Err(err).Msg("Session lookup failed")
				httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
				return
			}

			if record == nil || record.Token == nil {
				// No token attached; the handler decides whether that is
				// an error.
				next.ServeHTTP(w, r.WithContext(withSession(r.Context(), record)))
				return
			}

			if !record.Token.Expired(0) {
				next.ServeHTTP(w, r.WithContext(withToken(r.Context(), record)))
				return
			}

			log.Info().Str("session_id", record.ID).Msg("Token expired, attempting refresh")

			fresh, err := client.Refresh(r.Context(), record.Token)
			if err != nil {
				var refreshErr *oauth.RefreshError
				if errors.As(err, &refreshErr) {
					log.Warn().Int("status", refreshErr.Status).Str("session_id", record.ID).Msg("Refresh token rejected")
				} else {
					log.Error().Err(err).Str("session_id", record.ID).Msg("Token refresh failed")
				}

				if destroyErr := sessions.Destroy(r.Context(), w, record); destroyErr != nil {
					log.Error().Err(destroyErr).Str("session_id", record.ID).Msg("Failed to destroy session after refresh failure")
					httpext.JsonError(w, "Could not clear session", http.StatusInternalServerError)
					return
				}

				if isBrowserRoute(r) {
					log.Info().Str("session_id", record.ID).Msg("Redirecting to login after refresh failure")
					http.Redirect(w, r, "/login", http.StatusFound)
				} else {
					httpext.JsonError(w, "Not authenticated", http.StatusUnauthorized)
				}
				return
			}

			// Whole-record replacement: the old access/refresh pair is
			// unreachable once the write lands. Concurrent refreshes for the
			// same session race last-writer-wins on this per-key write.
			record.Token = fresh
			if err := sessions.Save(r.Context(), record); err != nil {
				log.Error().Err(err).Str("session_id", record.ID).Msg("Failed to persist refreshed token")
				httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(withToken(r.Context(), record)))
		})
	}
}

// isBrowserRoute tells redirect-style error handling apart from API-style.
// API consumers expect a JSON 401, browser navigation expects /login.
func isBrowserRoute(r *http.Request) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

func withSession(ctx context.Context, record *session.Record) context.Context {
	if record == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, record)
}

func withToken(ctx context.Context, record *session.Record) context.Context {
	ctx = withSession(ctx, record)
	return context.WithValue(ctx, accessTokenKey, record.Token.AccessToken)
}

// WithAccessToken injects an access token directly into a context.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken retrieves the access token resolved for this request, or ""
// when the session carries no token.
func AccessToken(r *http.Request) string {
	if token, ok := r.Context().Value(accessTokenKey).(string); ok {
		return token
	}
	return ""
}

// SessionRecord retrieves the session record resolved for this request.
func SessionRecord(r *http.Request) *session.Record {
	if record, ok := r.Context().Value(sessionKey).(*session.Record); ok {
		return record
	}
	return nil
}
