package api_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/api/testutils"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
)

func TestLogin(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: seeded admin can log in
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/token",
		models.LoginRequest{Username: "admin", Password: "admin"},
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var tokens models.TokenResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)

	// Test case 2: wrong password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/token",
		models.LoginRequest{Username: "admin", Password: "nope"},
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Test case 3: unknown user
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/token",
		models.LoginRequest{Username: "ghost", Password: "whatever"},
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshToken(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/token",
		models.LoginRequest{Username: "admin", Password: "admin"},
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var tokens models.TokenResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))

	// A refresh token yields a fresh pair
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/refresh-token",
		models.RefreshTokenRequest{RefreshToken: tokens.RefreshToken},
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var refreshed models.TokenResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is not accepted as a refresh token
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/auth/refresh-token",
		models.RefreshTokenRequest{RefreshToken: tokens.AccessToken},
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenScopeEnforcement(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// A refresh-scoped token must not grant API access
	refreshToken := testCtx.TokenFor(t, "admin", service.ScopeRefreshToken, time.Hour)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/users",
		nil,
		testutils.AuthHeaders(refreshToken),
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// No token at all
	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A proper access token works
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/users",
		nil,
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusOK, w.Code)
}
