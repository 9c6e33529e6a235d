package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-that-is-long-enough"

func TestGenerateAndVerify(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)

	token, err := tm.Generate("user-1", time.Now())
	require.NoError(t, err)
	id, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	old, err := tm.Generate("user-1", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = tm.Verify(old)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = tm.Verify(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager("another-secret", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	parts := strings.Split(token, ".")
	noneAlg := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0." + parts[1] + "."
	_, err = tm.Verify(noneAlg)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newRouter(tm *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth", AnonymousHandler(tm))
	r.GET("/me", Middleware(tm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c)})
	})
	return r
}

func signIn(t *testing.T, r *gin.Engine, token string) sessionResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnonymousSignIn(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	r := newRouter(tm)

	first := signIn(t, r, "")
	assert.NotEmpty(t, first.UserID)
	assert.NotEmpty(t, first.Token)

	again := signIn(t, r, first.Token)
	assert.Equal(t, first.UserID, again.UserID, "a valid token keeps its identity")

	fresh := signIn(t, r, "garbage")
	assert.NotEqual(t, first.UserID, fresh.UserID)
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager(secret, time.Hour)
	r := newRouter(tm)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tm.Generate("user-9", time.Now())
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"user-9"}`, w.Body.String())
}
