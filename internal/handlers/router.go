package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mikkqu/rc-auth/internal/middleware"
	"github.com/mikkqu/rc-auth/internal/services"
)

// NewRouter assembles the full HTTP surface. The token-refresh guard wraps
// /status and everything under /api; the flow-controller routes run outside
// it so a broken token never blocks starting over.
func NewRouter(svcs *services.Services) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS(svcs.ClientOrigin()))

	guard := middleware.TokenRefresh(svcs.SessionService(), svcs.OAuthClient())

	r.HandleFunc("/", HandleIndex(svcs.SessionService())).Methods(http.MethodGet)
	r.HandleFunc("/login", HandleLogin(svcs.OAuthClient())).Methods(http.MethodGet)
	r.HandleFunc("/logout", HandleLogout(svcs.SessionService())).Methods(http.MethodGet)
	r.Handle("/status", guard(HandleStatus())).Methods(http.MethodGet)
	r.HandleFunc("/oauth_callback", HandleCallback(svcs.ClientOrigin(), svcs.OAuthClient(), svcs.SessionService())).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(guard)
	api.HandleFunc("/profile", HandleProfile(svcs.SessionService(), svcs.ProfileAPI())).Methods(http.MethodGet)
	api.HandleFunc("/batches/{batchId}/profiles", HandleBatchProfiles(svcs.ProfileAPI())).Methods(http.MethodGet)

	return r
}
