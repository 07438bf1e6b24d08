package services

import (
	"net/http"

	"github.com/gcforum/portal/internal/config"
)

const (
	AccessCookie  = "gc-access-token"
	RefreshCookie = "gc-refresh-token"
)

// SessionResolver reads the session cookies of a request.
type SessionResolver struct {
	auth   *AuthService
	config *config.Config
}

func NewSessionResolver(auth *AuthService, cfg *config.Config) *SessionResolver {
	return &SessionResolver{auth: auth, config: cfg}
}

// Resolve returns the authenticated identity or nil. An expired access
// token is refreshed from the refresh cookie and both cookies are
// rewritten; a refresh that fails clears them. Misconfiguration is
// treated as no session.
func (r *SessionResolver) Resolve(w http.ResponseWriter, req *http.Request) *Claims {
	if r == nil || r.auth == nil || !r.auth.Configured() {
		return nil
	}

	if c, err := req.Cookie(AccessCookie); err == nil && c.Value != "" {
		if claims, err := r.auth.ValidateToken(c.Value, AccessToken); err == nil {
			return claims
		}
	}

	c, err := req.Cookie(RefreshCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	session, err := r.auth.Refresh(req.Context(), c.Value)
	if err != nil {
		ClearSessionCookies(w, r.config)
		return nil
	}
	SetSessionCookies(w, r.config, session)

	claims, err := r.auth.ValidateToken(session.AccessToken, AccessToken)
	if err != nil {
		return nil
	}
	return claims
}

func SetSessionCookies(w http.ResponseWriter, cfg *config.Config, s *Session) {
	http.SetCookie(w, sessionCookie(cfg, AccessCookie, s.AccessToken, int(cfg.AccessTokenTTL.Seconds())))
	http.SetCookie(w, sessionCookie(cfg, RefreshCookie, s.RefreshToken, int(cfg.RefreshTokenTTL.Seconds())))
}

func ClearSessionCookies(w http.ResponseWriter, cfg *config.Config) {
	http.SetCookie(w, sessionCookie(cfg, AccessCookie, "", -1))
	http.SetCookie(w, sessionCookie(cfg, RefreshCookie, "", -1))
}

func sessionCookie(cfg *config.Config, name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
