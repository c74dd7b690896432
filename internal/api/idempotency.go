package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
)

const (
	// IdempotencyHeader is the standard HTTP header for idempotency keys
	IdempotencyHeader = "Idempotency-Key"

	// idempotencyCacheTTL defines how long responses are cached in Redis
	idempotencyCacheTTL = 24 * time.Hour

	// lockTimeout prevents indefinite locks if a request crashes
	lockTimeout = 10 * time.Second

	idempotencyKeyPrefix = "dundie:idempotency:"
	lockKeyPrefix        = "dundie:lock:"
)

// cachedResponse is the recorded outcome replayed on a retry. The
// status travels with the body so replays answer exactly what the
// original request answered.
type cachedResponse struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// bodyCaptureWriter records the response body so a successful transfer
// can be replayed when the caller retries with the same key.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware caches 2xx responses under the caller-supplied
// Idempotency-Key header. A retry after a lost acknowledgment gets the
// recorded response instead of booking the transfer twice. Requests
// without the header pass through untouched.
func IdempotencyMiddleware(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyKeyPrefix + key
		lockKey := lockKeyPrefix + key

		// Replay a previously recorded response
		if raw, err := rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached cachedResponse
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr != nil {
				log.Printf("idempotency: discarding bad cache entry: %v", jsonErr)
			} else {
				c.Header("X-Idempotency-Hit", "true")
				c.Data(cached.Status, "application/json", []byte(cached.Body))
				c.Abort()
				return
			}
		}

		// Short lock so two in-flight requests with the same key
		// cannot both book the transfer
		acquired, err := rdb.SetNX(ctx, lockKey, "processing", lockTimeout).Result()
		if err != nil {
			log.Printf("idempotency: lock acquisition error: %v", err)
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Status:  "error",
				Code:    "INTERNAL_ERROR",
				Message: "Internal server error",
			})
			c.Abort()
			return
		}
		if !acquired {
			c.JSON(http.StatusConflict, models.ErrorResponse{
				Status:  "error",
				Code:    "CONFLICT",
				Message: "A request with this idempotency key is currently being processed",
			})
			c.Abort()
			return
		}
		defer func() {
			if err := rdb.Del(ctx, lockKey).Err(); err != nil {
				log.Printf("idempotency: failed to release lock: %v", err)
			}
		}()

		writer := &bodyCaptureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= 200 && status < 300 {
			payload, err := json.Marshal(cachedResponse{Status: status, Body: writer.body.String()})
			if err != nil {
				log.Printf("idempotency: failed to encode response: %v", err)
				return
			}
			if err := rdb.Set(ctx, cacheKey, payload, idempotencyCacheTTL).Err(); err != nil {
				log.Printf("idempotency: failed to cache response: %v", err)
			}
		}
	}
}
