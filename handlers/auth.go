package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mediastream/models"
	authsvc "mediastream/services/auth"
)

const (
	// SessionCookie carries the opaque session token.
	SessionCookie = "session_token"

	// LoginPath is where unauthenticated clients are redirected, with a
	// reason query parameter the presentation layer can render.
	LoginPath = "/api/login"
	// LockedPath is the distinct redirect target for locked-out clients,
	// so the UI can tell "wrong password" from "too many attempts".
	LockedPath = "/locked"
)

type authService interface {
	Login(client, username, password string) (models.IssuedToken, error)
	Logout(username string)
	Validate(token string) (string, error)
}

// AuthHandler owns the login/logout endpoints and cookie handling.
type AuthHandler struct {
	Service authService
}

var _ authService = (*authsvc.Service)(nil)

func NewAuthHandler(s authService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// Login authenticates HTTP Basic or form credentials and sets the session
// cookie. The failure response never says which part of the credentials was
// wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		username = r.PostFormValue("username")
		password = r.PostFormValue("password")
	}

	client := clientHost(r)
	issued, err := h.Service.Login(client, username, password)
	if err != nil {
		if errors.Is(err, authsvc.ErrLockedOut) {
			http.Redirect(w, r, LockedPath, http.StatusSeeOther)
			return
		}
		w.Header().Set("WWW-Authenticate", `Basic realm="simple"`)
		writeJSONError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("auth.login.succeeded", "client", client, "username", username)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"authenticated": true})
}

// Logout invalidates the current session and clears the cookie. The response
// is a 401 so browsers drop any cached Basic credentials too.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if username, err := h.Service.Validate(cookie.Value); err == nil {
			h.Service.Logout(username)
			slog.Info("auth.logout", "client", clientHost(r), "username", username)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSONError(w, http.StatusUnauthorized, "Logged out successfully.")
}

// Locked is the lockout landing endpoint.
func (h *AuthHandler) Locked(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
}

// redirectToLogin sends the client back to the login endpoint with a
// machine-readable reason. Internal causes stay in server logs.
func redirectToLogin(w http.ResponseWriter, r *http.Request, err error) {
	reason := "invalid-token"
	switch {
	case errors.Is(err, authsvc.ErrNoToken):
		reason = "no-token"
	case errors.Is(err, authsvc.ErrSessionExpired):
		reason = "expired"
	}
	slog.Info("auth.redirect", "client", clientHost(r), "reason", reason)
	http.Redirect(w, r, LoginPath+"?reason="+reason, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// clientHost derives the client identity from the connection-level address.
func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
