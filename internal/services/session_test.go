package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func signedInSession(t *testing.T) (*AuthService, *Session) {
	t.Helper()
	backend, db := privilegedBackend(t)
	auth := NewAuthService(testConfig(), backend, &recordingMailer{})
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Identity{Email: "claire@northwind.example", PasswordHash: hash}).Error)

	session, err := auth.SignInWithPassword(context.Background(), "claire@northwind.example", "password123")
	require.NoError(t, err)
	return auth, session
}

func TestSessionResolver_AccessToken(t *testing.T) {
	auth, session := signedInSession(t)
	resolver := NewSessionResolver(auth, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: session.AccessToken})
	rec := httptest.NewRecorder()

	claims := resolver.Resolve(rec, req)
	require.NotNil(t, claims)
	assert.Equal(t, session.User.ID, claims.UserID)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionResolver_RefreshesExpiredAccess(t *testing.T) {
	auth, session := signedInSession(t)
	resolver := NewSessionResolver(auth, testConfig())
	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: session.AccessToken})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: session.RefreshToken})
	rec := httptest.NewRecorder()

	claims := resolver.Resolve(rec, req)
	require.NotNil(t, claims)
	assert.Equal(t, session.User.ID, claims.UserID)

	cookies := cookiesByName(rec)
	require.Contains(t, cookies, AccessCookie)
	require.Contains(t, cookies, RefreshCookie)
	assert.NotEqual(t, session.RefreshToken, cookies[RefreshCookie].Value)
	assert.True(t, cookies[AccessCookie].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[AccessCookie].SameSite)
}

func TestSessionResolver_FailedRefreshClearsCookies(t *testing.T) {
	auth, _ := signedInSession(t)
	resolver := NewSessionResolver(auth, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "garbage"})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "garbage"})
	rec := httptest.NewRecorder()

	assert.Nil(t, resolver.Resolve(rec, req))
	cookies := cookiesByName(rec)
	require.Contains(t, cookies, AccessCookie)
	assert.Empty(t, cookies[AccessCookie].Value)
	assert.Negative(t, cookies[AccessCookie].MaxAge)
}

func TestSessionResolver_NoCookies(t *testing.T) {
	auth, _ := signedInSession(t)
	resolver := NewSessionResolver(auth, testConfig())

	rec := httptest.NewRecorder()
	assert.Nil(t, resolver.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionResolver_Unconfigured(t *testing.T) {
	auth := NewAuthService(testConfig(), database.New(nil, nil), &recordingMailer{})
	resolver := NewSessionResolver(auth, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "anything"})
	assert.Nil(t, resolver.Resolve(httptest.NewRecorder(), req))

	var nilResolver *SessionResolver
	assert.Nil(t, nilResolver.Resolve(httptest.NewRecorder(), req))
}
