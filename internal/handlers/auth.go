package handlers

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/middleware"
	"github.com/mikkqu/rc-auth/internal/services/oauth"
	"github.com/mikkqu/rc-auth/internal/services/session"
	"github.com/mikkqu/rc-auth/pkg/httpext"
)

type statusResponse struct {
	LoggedIn bool `json:"loggedIn"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleLogin starts the authorization-code flow by redirecting the browser
// to the authorization server.
func HandleLogin(client *oauth.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("GET: /login")

		http.Redirect(w, r, client.AuthCodeURL(), http.StatusFound)
	}
}

// HandleLogout destroys the session unconditionally. Logging out without an
// active session still succeeds.
func HandleLogout(sessions *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("GET: /logout")

		record, err := sessions.Resolve(r.Context(), r)
		if err != nil {
			log.Error().Err(err).Msg("Session lookup failed during logout")
			httpext.JsonError(w, "Could not log out session", http.StatusInternalServerError)
			return
		}

		if err := sessions.Destroy(r.Context(), w, record); err != nil {
			log.Error().Err(err).Msg("Failed to destroy session")
			httpext.JsonError(w, "Could not log out session", http.StatusInternalServerError)
			return
		}

		httpext.Json(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
	}
}

// HandleStatus reports whether the session carries a token. It runs behind
// the token-refresh guard, so the answer reflects a live refresh attempt.
func HandleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("GET: /status")

		record := middleware.SessionRecord(r)
		loggedIn := record != nil && record.Token != nil

		httpext.Json(w, http.StatusOK, statusResponse{LoggedIn: loggedIn})
	}
}

// HandleCallback completes the login: it exchanges the authorization code
// for a token record, stores it in the session and sends the browser back
// to the client origin.
func HandleCallback(clientOrigin string, client *oauth.Client, sessions *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			httpext.JsonError(w, "No authorization code provided in callback", http.StatusBadRequest)
			return
		}

		record, err := sessions.Resolve(r.Context(), r)
		if err != nil {
			log.Error().Err(err).Msg("Session lookup failed during callback")
			httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
			return
		}

		token, err := client.Exchange(r.Context(), code)
		if err != nil {
			log.Error().Err(err).Msg("Authorization code exchange failed")
			httpext.JsonError(w, fmt.Sprintf("Auth failed: %v", err), http.StatusInternalServerError)
			return
		}

		if record == nil {
			record, err = sessions.Issue(r.Context(), w)
			if err != nil {
				log.Error().Err(err).Msg("Failed to issue session")
				httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
				return
			}
		}

		record.Token = token
		if err := sessions.Save(r.Context(), record); err != nil {
			log.Error().Err(err).Str("session_id", record.ID).Msg("Failed to store token in session")
			httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
			return
		}

		log.Info().Str("session_id", record.ID).Str("token_prefix", oauth.TokenPrefix(token.AccessToken)).Msg("GET: /oauth_callback")

		http.Redirect(w, r, clientOrigin, http.StatusFound)
	}
}

// HandleIndex serves a minimal landing page showing whether a session with a
// token exists.
func HandleIndex(sessions *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record, err := sessions.Resolve(r.Context(), r)
		if err != nil {
			log.Error().Err(err).Msg("Session lookup failed on index")
			httpext.JsonError(w, "Session store unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if record != nil && record.Token != nil {
			fmt.Fprint(w, `<h1>RC Auth</h1><p>Session detected. <a href="/api/profile">Profile</a></p><form action="/logout" method="get"><button>Logout</button></form>`)
		} else {
			fmt.Fprint(w, `<h1>RC Auth</h1><p>No active session.</p>`)
		}
	}
}
