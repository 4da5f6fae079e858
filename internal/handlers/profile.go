package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/infrastructure/rcapi"
	"github.com/mikkqu/rc-auth/internal/middleware"
	"github.com/mikkqu/rc-auth/internal/services/session"
	"github.com/mikkqu/rc-auth/pkg/httpext"
)

const defaultBatchLimit = 50

// HandleProfile proxies the authenticated user's own profile. A downstream
// 401 means the access token is dead despite looking unexpired locally
// (revoked out-of-band), so the session is destroyed before responding.
func HandleProfile(sessions *session.Service, api *rcapi.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Msg("GET: /api/profile")

		token := middleware.AccessToken(r)
		if token == "" {
			log.Warn().Msg("No access token found in request session")
			httpext.JsonError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		profile, err := api.GetProfile(r.Context(), token)
		if err != nil {
			var downstreamErr *rcapi.DownstreamError
			if errors.As(err, &downstreamErr) && downstreamErr.Status == http.StatusUnauthorized {
				if destroyErr := sessions.Destroy(r.Context(), w, middleware.SessionRecord(r)); destroyErr != nil {
					log.Error().Err(destroyErr).Msg("Failed to destroy session after downstream 401")
				}
				httpext.JsonError(w, "Authentication failed or token expired", http.StatusUnauthorized)
				return
			}

			log.Error().Err(err).Msg("Error fetching profile data")
			httpext.JsonError(w, "Could not load profile data", http.StatusInternalServerError)
			return
		}

		httpext.JsonRaw(w, http.StatusOK, profile)
	}
}

// HandleBatchProfiles proxies the profile listing for one batch. Unlike the
// self-profile route, a downstream 401 here does not destroy the session.
func HandleBatchProfiles(api *rcapi.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info().Str("batch_id", mux.Vars(r)["batchId"]).Msg("GET: /api/batches/{batchId}/profiles")

		token := middleware.AccessToken(r)
		if token == "" {
			log.Warn().Msg("No access token found in request session")
			httpext.JsonError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}

		batchID, err := strconv.Atoi(mux.Vars(r)["batchId"])
		if err != nil || batchID <= 0 {
			httpext.JsonError(w, "Invalid batch ID provided in URL", http.StatusBadRequest)
			return
		}

		// Limit falls back to 50 when absent or unparseable, and is
		// otherwise forwarded verbatim with no upper bound.
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit == 0 {
			limit = defaultBatchLimit
		}

		profiles, err := api.GetBatchProfiles(r.Context(), batchID, limit, token)
		if err != nil {
			var downstreamErr *rcapi.DownstreamError
			if errors.As(err, &downstreamErr) && downstreamErr.Status == http.StatusUnauthorized {
				httpext.JsonError(w, "Authentication failed or token invalid for fetching profiles", http.StatusUnauthorized)
				return
			}

			log.Error().Err(err).Int("batch_id", batchID).Msg("Error fetching batch profiles")
			httpext.JsonError(w, fmt.Sprintf("Could not load profiles for batch %d", batchID), http.StatusInternalServerError)
			return
		}

		httpext.JsonRaw(w, http.StatusOK, profiles)
	}
}
