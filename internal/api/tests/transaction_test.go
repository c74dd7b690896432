package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/api/testutils"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
)

func transfer(testCtx *testutils.TestContext, token, recipient string, amount int64) *httptest.ResponseRecorder {
	return testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		fmt.Sprintf("/api/transactions/%s", recipient),
		models.CreateTransferRequest{Amount: amount},
		testutils.AuthHeaders(token),
	)
}

func balanceOf(t *testing.T, testCtx *testutils.TestContext, token, username string) int64 {
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		fmt.Sprintf("/api/users/%s/balance", username),
		nil,
		testutils.AuthHeaders(token),
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BalanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Value
}

// End-to-end scenario: admin seeds alice, alice pays bob, bob
// overdraws and is rejected with balances untouched.
func TestTransferScenario(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	alice, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")
	bob, bobToken := testCtx.CreateTestUser(t, "bob", "sales")

	// admin -> alice 100
	w := transfer(testCtx, testCtx.AdminJWT, "alice", 100)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(100), balanceOf(t, testCtx, aliceToken, "alice"))

	// alice -> bob 30
	w = transfer(testCtx, aliceToken, "bob", 30)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(70), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, int64(30), balanceOf(t, testCtx, bobToken, "bob"))

	// bob -> alice 1000 is rejected, nothing moves
	w = transfer(testCtx, bobToken, "alice", 1000)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "INSUFFICIENT_BALANCE", errResp.Code)

	assert.Equal(t, int64(70), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, int64(30), balanceOf(t, testCtx, bobToken, "bob"))

	// Balances reconcile against the log
	assert.Equal(t, testCtx.LedgerSum(t, alice.ID), testCtx.Balance(t, alice.ID))
	assert.Equal(t, testCtx.LedgerSum(t, bob.ID), testCtx.Balance(t, bob.ID))
}

func TestOverdraftGuard(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")
	_, bobToken := testCtx.CreateTestUser(t, "bob", "sales")

	w := transfer(testCtx, testCtx.AdminJWT, "alice", 50)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Exactly one point over the balance fails
	w = transfer(testCtx, aliceToken, "bob", 51)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(50), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, int64(0), balanceOf(t, testCtx, bobToken, "bob"))

	// The full balance is spendable
	w = transfer(testCtx, aliceToken, "bob", 50)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(0), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, int64(50), balanceOf(t, testCtx, bobToken, "bob"))
}

func TestSuperuserBypass(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	admin, err := testCtx.Repository.GetUserByUsername(context.Background(), "admin")
	assert.NoError(t, err)
	assert.NotNil(t, admin)

	_, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")

	// The admin starts at zero and may still source any amount
	assert.Equal(t, int64(0), testCtx.Balance(t, admin.ID))

	w := transfer(testCtx, testCtx.AdminJWT, "alice", 500)
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, int64(500), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, int64(-500), testCtx.Balance(t, admin.ID))

	// A management member other than the seeded admin bypasses too
	_, mgrToken := testCtx.CreateTestUser(t, "michael", "management")
	w = transfer(testCtx, mgrToken, "alice", 250)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(750), balanceOf(t, testCtx, aliceToken, "alice"))
}

func TestTransferValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")

	// Unknown recipient
	w := transfer(testCtx, testCtx.AdminJWT, "nobody", 10)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Zero amount
	w = transfer(testCtx, testCtx.AdminJWT, "alice", 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Negative amount
	w = transfer(testCtx, testCtx.AdminJWT, "alice", -5)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Acting as another sender requires superuser rights
	testCtx.CreateTestUser(t, "bob", "sales")
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/transactions/alice",
		models.CreateTransferRequest{Amount: 10, SenderUsername: "bob"},
		testutils.AuthHeaders(aliceToken),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A superuser may debit another account explicitly
	w = transfer(testCtx, testCtx.AdminJWT, "bob", 20)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/transactions/alice",
		models.CreateTransferRequest{Amount: 10, SenderUsername: "bob"},
		testutils.AuthHeaders(testCtx.AdminJWT),
	)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(10), balanceOf(t, testCtx, aliceToken, "alice"))
}

// Self-transfers are structurally allowed; the net balance effect is
// zero and both log sides reference the same account.
func TestSelfTransfer(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	alice, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")

	w := transfer(testCtx, testCtx.AdminJWT, "alice", 100)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = transfer(testCtx, aliceToken, "alice", 40)
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, int64(100), balanceOf(t, testCtx, aliceToken, "alice"))
	assert.Equal(t, testCtx.LedgerSum(t, alice.ID), testCtx.Balance(t, alice.ID))

	// Still bounded by the overdraft rule
	w = transfer(testCtx, aliceToken, "alice", 101)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalanceAuthorization(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")
	testCtx.CreateTestUser(t, "bob", "sales")

	// Own balance is visible
	assert.Equal(t, int64(0), balanceOf(t, testCtx, aliceToken, "alice"))

	// Another member's balance is not
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/users/bob/balance",
		nil,
		testutils.AuthHeaders(aliceToken),
	)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Superusers see everything
	assert.Equal(t, int64(0), balanceOf(t, testCtx, testCtx.AdminJWT, "bob"))
}

func TestListTransactions(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	_, aliceToken := testCtx.CreateTestUser(t, "alice", "sales")
	_, bobToken := testCtx.CreateTestUser(t, "bob", "sales")
	_, carolToken := testCtx.CreateTestUser(t, "carol", "hr")

	for i := 0; i < 3; i++ {
		w := transfer(testCtx, testCtx.AdminJWT, "alice", 10)
		assert.Equal(t, http.StatusCreated, w.Code)
	}
	w := transfer(testCtx, testCtx.AdminJWT, "bob", 25)
	assert.Equal(t, http.StatusCreated, w.Code)
	w = transfer(testCtx, aliceToken, "bob", 5)
	assert.Equal(t, http.StatusCreated, w.Code)

	list := func(token, query string) models.ListTransactionsResponse {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/transactions"+query,
			nil,
			testutils.AuthHeaders(token),
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.ListTransactionsResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	// Superusers see the whole log
	resp := list(testCtx.AdminJWT, "")
	assert.Equal(t, int64(5), resp.Total)

	// Members only see rows they take part in
	resp = list(aliceToken, "")
	assert.Equal(t, int64(4), resp.Total)
	for _, record := range resp.Transactions {
		involved := record.RecipientUsername == "alice" || record.SenderUsername == "alice"
		assert.True(t, involved, "alice must be a party of every listed row")
	}

	resp = list(bobToken, "")
	assert.Equal(t, int64(2), resp.Total)

	// No transactions involve carol
	resp = list(carolToken, "")
	assert.Equal(t, int64(0), resp.Total)
	assert.Empty(t, resp.Transactions)

	// Filters compose with the caller scope
	resp = list(aliceToken, "?recipient=bob")
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "alice", resp.Transactions[0].SenderUsername)

	resp = list(testCtx.AdminJWT, "?sender=admin")
	assert.Equal(t, int64(4), resp.Total)

	// Pagination
	resp = list(testCtx.AdminJWT, "?page=1&pageSize=2")
	assert.Equal(t, int64(5), resp.Total)
	assert.Len(t, resp.Transactions, 2)

	resp = list(testCtx.AdminJWT, "?page=3&pageSize=2")
	assert.Len(t, resp.Transactions, 1)

	// Ordering by amount
	resp = list(testCtx.AdminJWT, "?orderBy=-amount")
	assert.Equal(t, int64(25), resp.Transactions[0].Amount)
}
