package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/config"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/utils"
)

// The full debug-mode path: a job goes onto the queue, the mailer
// consumes it and appends a message carrying a valid pwd_reset token
// to the local sink file.
func TestMailerDebugDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	// The debug sink writes relative to the working directory
	dir := t.TempDir()
	wd, err := os.Getwd()
	assert.NoError(t, err)
	assert.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret-key"
	cfg.Auth.ResetTokenExpireMinutes = 10
	cfg.Email.DebugMode = true
	cfg.Email.Sender = "dundie@dm.com"
	cfg.Email.PwdResetURL = "http://localhost:8080/reset-password"

	queue := NewQueue(rdb)
	assert.NoError(t, queue.EnqueuePasswordReset(context.Background(), "alice", "alice@dm.com"))

	ctx, cancel := context.WithCancel(context.Background())
	mailer := NewMailer(rdb, cfg, utils.NewLogger("mailer"))

	done := make(chan struct{})
	go func() {
		mailer.Run(ctx)
		close(done)
	}()

	// Wait for the message to land in the sink
	mailFile := filepath.Join(dir, debugMailFile)
	deadline := time.Now().Add(5 * time.Second)
	var body string
	for {
		if raw, err := os.ReadFile(mailFile); err == nil && strings.Contains(string(raw), "END OF EMAIL") {
			body = string(raw)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("reset email never reached the debug sink")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-done

	assert.Contains(t, body, "--- START EMAIL alice@dm.com ---")
	assert.Contains(t, body, "To: alice@dm.com")
	assert.Contains(t, body, cfg.Email.PwdResetURL+"?pwd_reset_token=")

	// The embedded token is a pwd_reset token for the right account
	tokenString := extractResetToken(t, body)
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Auth.JWTSecret), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, service.ScopePwdReset, claims["scope"])

	// The job was consumed from the queue
	assert.Equal(t, int64(0), rdb.LLen(context.Background(), resetQueueKey).Val())
}

func extractResetToken(t *testing.T, body string) string {
	const marker = "pwd_reset_token="
	idx := strings.Index(body, marker)
	if idx == -1 {
		t.Fatal("no reset token in email body")
	}
	rest := body[idx+len(marker):]
	if end := strings.IndexAny(rest, "\r\n"); end != -1 {
		rest = rest[:end]
	}
	return rest
}
