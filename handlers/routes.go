package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register attaches all application routes to the router.
func Register(r *mux.Router, auth *AuthHandler, media *StreamHandler) {
	// OPTIONS is routed so the CORS middleware can answer preflights.
	r.HandleFunc(LoginPath, auth.Login).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/logout", auth.Logout).Methods(http.MethodGet)
	r.HandleFunc(LockedPath, auth.Locked).Methods(http.MethodGet)

	r.HandleFunc("/api/library", media.Listing).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/video", media.ServeVideo).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	// Root redirects to the login endpoint, as the original UI did.
	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, LoginPath, http.StatusFound)
	}).Methods(http.MethodGet)
}
