package api_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/api/testutils"
)

// Concurrent debits from one sender must never overdraw the account:
// the admission check is re-validated under the balance row lock, so
// only the affordable subset of transfers commits.
func TestConcurrentTransfersFromOneSender(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	sender, senderToken := testCtx.CreateTestUser(t, "race-sender", "sales")
	recipient, _ := testCtx.CreateTestUser(t, "race-recipient", "sales")

	// Seed the sender with 100 points
	w := transfer(testCtx, testCtx.AdminJWT, "race-sender", 100)
	assert.Equal(t, http.StatusCreated, w.Code)

	const numGoroutines = 10
	const amountEach = 30 // only 3 of 10 can fit into 100

	statusChan := make(chan int, numGoroutines)
	var wg sync.WaitGroup

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := transfer(testCtx, senderToken, "race-recipient", amountEach)
			statusChan <- w.Code
		}()
	}

	wg.Wait()
	close(statusChan)

	succeeded, rejected := 0, 0
	for code := range statusChan {
		switch code {
		case http.StatusCreated:
			succeeded++
		case http.StatusBadRequest:
			rejected++
		default:
			t.Errorf("unexpected status code %d", code)
		}
	}

	assert.Equal(t, 3, succeeded, "exactly the affordable transfers must commit")
	assert.Equal(t, 7, rejected, "every other transfer must be rejected")

	// Final balances reflect exactly the committed transfers
	assert.Equal(t, int64(10), testCtx.Balance(t, sender.ID))
	assert.Equal(t, int64(90), testCtx.Balance(t, recipient.ID))

	// And both reconcile against the transaction log
	assert.Equal(t, testCtx.LedgerSum(t, sender.ID), testCtx.Balance(t, sender.ID))
	assert.Equal(t, testCtx.LedgerSum(t, recipient.ID), testCtx.Balance(t, recipient.ID))
}

// Many senders hitting one recipient concurrently must not lose
// updates on the recipient's materialized balance.
func TestConcurrentTransfersToOneRecipient(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	recipient, _ := testCtx.CreateTestUser(t, "hotspot", "sales")

	const numSenders = 8
	senders := make([]string, 0, numSenders)
	tokens := make(map[string]string, numSenders)
	for i := 0; i < numSenders; i++ {
		username := "sender-" + string(rune('a'+i))
		_, token := testCtx.CreateTestUser(t, username, "sales")
		senders = append(senders, username)
		tokens[username] = token

		w := transfer(testCtx, testCtx.AdminJWT, username, 10)
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	var wg sync.WaitGroup
	for _, username := range senders {
		wg.Add(1)
		go func(username string) {
			defer wg.Done()
			w := transfer(testCtx, tokens[username], "hotspot", 10)
			assert.Equal(t, http.StatusCreated, w.Code)
		}(username)
	}
	wg.Wait()

	assert.Equal(t, int64(numSenders*10), testCtx.Balance(t, recipient.ID))
	assert.Equal(t, testCtx.LedgerSum(t, recipient.ID), testCtx.Balance(t, recipient.ID))

	// Every sender ends back at zero
	for _, username := range senders {
		user, err := testCtx.Repository.GetUserByUsername(context.Background(), username)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), testCtx.Balance(t, user.ID))
	}
}
