package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/api"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/config"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/repository"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
)

// StubResetQueue records enqueued password-reset jobs so tests can
// assert on them without a redis instance.
type StubResetQueue struct {
	mu   sync.Mutex
	Jobs []string
}

func (q *StubResetQueue) EnqueuePasswordReset(ctx context.Context, username, email string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Jobs = append(q.Jobs, email)
	return nil
}

// Enqueued returns the recorded reset addresses.
func (q *StubResetQueue) Enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.Jobs))
	copy(out, q.Jobs)
	return out
}

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	ResetQueue *StubResetQueue
	JWTSecret  []byte
	DB         *sqlx.DB
	AdminJWT   string
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	// Load configuration from environment
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.DBName == "dundie" && cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else if cfg.Database.TestDBName == "" {
		// Fallback to hardcoded test DB if not in environment
		cfg.Database.DBName = "dundie_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Set up database (creates schema and seeds the admin account)
	db, err := config.SetupDatabase(cfg)
	assert.NoError(t, err, "Failed to set up test database")

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service with a stub mail queue
	resetQueue := &StubResetQueue{}
	svc := service.NewDefaultService(repo, resetQueue, cfg.Auth.JWTSecret,
		30*time.Minute, 10*time.Hour)

	// Create API handler without the redis idempotency layer
	handler := api.NewHandler(svc, nil)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	testCtx := &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		ResetQueue: resetQueue,
		JWTSecret:  []byte(cfg.Auth.JWTSecret),
		DB:         db,
	}

	cleanupTestDatabase(t, testCtx)
	testCtx.AdminJWT = testCtx.TokenFor(t, "admin", service.ScopeAccessToken, time.Hour)

	return testCtx
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(testCtx *TestContext) {
	if testCtx.DB != nil {
		cleanupTestDatabase(nil, testCtx)
		testCtx.DB.Close()
	}
}

// cleanupTestDatabase removes ledger state and every account except
// the seeded admin.
func cleanupTestDatabase(t *testing.T, testCtx *TestContext) {
	statements := []string{
		"DELETE FROM transactions",
		"DELETE FROM balances",
		"DELETE FROM users WHERE username <> 'admin'",
	}

	for _, stmt := range statements {
		if _, err := testCtx.DB.Exec(stmt); err != nil && t != nil {
			t.Logf("Warning: cleanup %q failed: %v", stmt, err)
		}
	}
}

// CreateTestUser inserts an account directly through the repository
// and returns it together with an access token. The password is
// always "testpassword".
func (testCtx *TestContext) CreateTestUser(t *testing.T, username, dept string) (*models.User, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@dm.com", username),
		Name:     username,
		Dept:     dept,
		Currency: "USD",
		Password: string(hashedPassword),
	}

	err := testCtx.Repository.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token := testCtx.TokenFor(t, username, service.ScopeAccessToken, time.Hour)
	return user, token
}

// TokenFor signs a JWT for the given subject and scope.
func (testCtx *TestContext) TokenFor(t *testing.T, username, scope string, duration time.Duration) string {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   username,
		"scope": scope,
		"exp":   now.Add(duration).Unix(),
		"iat":   now.Unix(),
	})

	tokenString, err := token.SignedString(testCtx.JWTSecret)
	assert.NoError(t, err, "Failed to generate JWT token")

	return tokenString
}

// Balance reads an account's materialized balance straight from the
// database.
func (testCtx *TestContext) Balance(t *testing.T, accountID string) int64 {
	value, err := testCtx.Repository.GetBalance(context.Background(), accountID)
	assert.NoError(t, err, "Failed to read balance")
	return value
}

// LedgerSum recomputes an account's balance from the transaction log,
// bypassing the materialized row. Used to assert reconciliation.
func (testCtx *TestContext) LedgerSum(t *testing.T, accountID string) int64 {
	var value int64
	err := testCtx.DB.Get(&value, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM transactions WHERE recipient_id = $1), 0) -
			COALESCE((SELECT SUM(amount) FROM transactions WHERE sender_id = $1), 0)
	`, accountID)
	assert.NoError(t, err, "Failed to sum transaction log")
	return value
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
