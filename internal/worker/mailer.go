package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/config"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/utils"
)

// messageTemplate is the plain-text reset email.
const messageTemplate = `From: Dundie <%s>
To: %s
Subject: Password reset for Dundie

Please use the following link to reset your password:
%s?pwd_reset_token=%s

This link will expire in %d minutes.
`

// debugMailFile receives messages instead of SMTP when debug mode is on.
const debugMailFile = "email.log"

// Mailer consumes password-reset jobs from the redis queue and
// delivers the reset email carrying a short-lived pwd_reset token.
type Mailer struct {
	rdb    *redis.Client
	cfg    *config.Config
	logger *utils.Logger
}

// NewMailer creates a mailer worker.
func NewMailer(rdb *redis.Client, cfg *config.Config, logger *utils.Logger) *Mailer {
	return &Mailer{
		rdb:    rdb,
		cfg:    cfg,
		logger: logger,
	}
}

// Run blocks consuming jobs until the context is cancelled.
func (m *Mailer) Run(ctx context.Context) {
	for {
		result, err := m.rdb.BRPop(ctx, 5*time.Second, resetQueueKey).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			if !errors.Is(err, redis.Nil) {
				m.logger.Error("mailer: dequeue failed: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}

		// BRPop returns [key, payload]
		if len(result) != 2 {
			continue
		}

		var job resetJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			m.logger.Error("mailer: bad job payload: %v", err)
			continue
		}

		if err := m.sendResetEmail(job.Username, job.Email); err != nil {
			m.logger.Error("mailer: delivery to %s failed: %v", job.Email, err)
			continue
		}
		m.logger.Info("mailer: reset email delivered to %s", job.Email)
	}
}

func (m *Mailer) sendResetEmail(username, email string) error {
	expire := m.cfg.Auth.ResetTokenExpireMinutes

	token, err := m.resetToken(username, time.Duration(expire)*time.Minute)
	if err != nil {
		return fmt.Errorf("error creating reset token: %w", err)
	}

	message := fmt.Sprintf(messageTemplate,
		m.cfg.Email.Sender, email, m.cfg.Email.PwdResetURL, token, expire)

	if m.cfg.Email.DebugMode {
		return m.writeDebugEmail(email, message)
	}
	return m.sendSMTP(email, message)
}

// resetToken mints a pwd_reset-scoped token. The subject is the
// username so the password endpoint can match the token against its
// target account.
func (m *Mailer) resetToken(username string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   username,
		"scope": service.ScopePwdReset,
		"exp":   now.Add(duration).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.Auth.JWTSecret))
}

// writeDebugEmail mocks delivery by appending to a local file.
func (m *Mailer) writeDebugEmail(email, message string) error {
	f, err := os.OpenFile(debugMailFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "--- START EMAIL %s ---\n%s\n--- END OF EMAIL ---\n", email, message)
	return err
}

func (m *Mailer) sendSMTP(email, message string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Email.SMTPServer, m.cfg.Email.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Email.SMTPUser != "" {
		auth = smtp.PlainAuth("", m.cfg.Email.SMTPUser, m.cfg.Email.SMTPPass, m.cfg.Email.SMTPServer)
	}

	return smtp.SendMail(addr, auth, m.cfg.Email.Sender, []string{email}, []byte(message))
}
