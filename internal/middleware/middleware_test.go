package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogging-web/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenRoundTrip(t *testing.T) {
	ts := NewTokenService(testSecret, 7*24*time.Hour, "blogging-web")
	userID := uuid.New()

	token, err := ts.Issue(userID)
	require.NoError(t, err)

	got, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenExpiresAfterSevenDays(t *testing.T) {
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := NewTokenService(testSecret, 7*24*time.Hour, "blogging-web").WithClock(func() time.Time { return issued })

	token, err := ts.Issue(uuid.New())
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(7*24*time.Hour), claims.ExpiresAt.Time.UTC())

	almost := ts.WithClock(func() time.Time { return issued.Add(7*24*time.Hour - time.Minute) })
	_, err = almost.Verify(token)
	assert.NoError(t, err)

	late := ts.WithClock(func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) })
	_, err = late.Verify(token)
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidToken))
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	ts := NewTokenService(testSecret, time.Hour, "blogging-web")
	userID := uuid.New()

	other, err := NewTokenService("another-secret", time.Hour, "blogging-web").Issue(userID)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: userID}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"wrong secret": other,
		"none alg":     noneToken,
		"missing user": noUser,
		"no expiry":    noExpiry,
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Verify(token)
			assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidToken))
		})
	}
}

func TestCookiePolicy(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookiePolicy{MaxAge: 7 * 24 * time.Hour}.Set(rec, "abc")
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, SessionCookieName, c.Name)
		assert.Equal(t, "abc", c.Value)
		assert.True(t, c.HttpOnly)
		assert.False(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 7*24*60*60, c.MaxAge)
		assert.Equal(t, "/", c.Path)
	})

	t.Run("production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookiePolicy{Production: true, MaxAge: time.Hour}.Set(rec, "abc")
		c := rec.Result().Cookies()[0]
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookiePolicy{}.Clear(rec)
		c := rec.Result().Cookies()[0]
		assert.Equal(t, "", c.Value)
		assert.True(t, c.MaxAge < 0)
	})
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r))
}

func TestAuthenticator(t *testing.T) {
	ts := NewTokenService(testSecret, time.Hour, "blogging-web")
	auth := NewAuthenticator(ts, discardLogger())
	userID := uuid.New()
	token, err := ts.Issue(userID)
	require.NoError(t, err)

	var seen uuid.UUID
	var present bool
	echo := func(w http.ResponseWriter, r *http.Request) {
		seen, present = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}

	t.Run("required without token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		auth.RequireSession(echo)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"message":"Not authenticated"}`, rec.Body.String())
	})

	t.Run("required with bad token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
		auth.RequireSession(echo)(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"success":false,"message":"Invalid token"}`, rec.Body.String())
	})

	t.Run("required with cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		auth.RequireSession(echo)(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, present)
		assert.Equal(t, userID, seen)
	})

	t.Run("optional ignores bad token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		auth.OptionalSession(echo)(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, present)
	})
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig([]string{"http://localhost:3000"}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }),
	)

	t.Run("allowed origin is echoed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	metrics := utils.NewMetricsCollector()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	handler := RequestLogger(logger, metrics)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom/1", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(buf.String(), `"status":500`))
	assert.True(t, strings.Contains(buf.String(), `"path":"/boom/1"`))

	out := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, out.Body.String(), `route="GET /boom/{id}"`)
	assert.Contains(t, out.Body.String(), "blog_errors_total 1")
}
