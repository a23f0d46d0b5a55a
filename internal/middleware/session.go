package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"blogging-web/internal/api"
)

// SessionCookieName is the cookie the session token travels in.
const SessionCookieName = "token"

// CookiePolicy decides the attributes of the session cookie.
type CookiePolicy struct {
	Production bool
	MaxAge     time.Duration
}

func (p CookiePolicy) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	// Cross-site frontends need None, which browsers only accept with Secure.
	if p.Production {
		c.SameSite = http.SameSiteNoneMode
		c.Secure = true
	}
	return c
}

// Set writes the session cookie for token.
func (p CookiePolicy) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.cookie(token, int(p.MaxAge/time.Second)))
}

// Clear expires the session cookie.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie("", -1))
}

// TokenFromRequest returns the session token from the cookie, falling back to
// an Authorization: Bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Authenticator puts the verified user ID into the request context.
type Authenticator struct {
	tokens *TokenService
	logger *slog.Logger
}

func NewAuthenticator(tokens *TokenService, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, logger: logger}
}

// RequireSession rejects requests without a valid token with 401.
func (a *Authenticator) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if token == "" {
			api.WriteError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		userID, err := a.tokens.Verify(token)
		if err != nil {
			a.logger.Debug("rejected session token", "path", r.URL.Path, "error", err)
			api.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next(w, r.WithContext(SetUserIDInContext(r.Context(), userID)))
	}
}

// OptionalSession attaches the user when a valid token is present and
// otherwise lets the request through untouched.
func (a *Authenticator) OptionalSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := TokenFromRequest(r); token != "" {
			if userID, err := a.tokens.Verify(token); err == nil {
				r = r.WithContext(SetUserIDInContext(r.Context(), userID))
			} else {
				a.logger.Debug("ignoring invalid session token", "path", r.URL.Path, "error", err)
			}
		}
		next(w, r)
	}
}
