package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/snackbar/internal/idempotency"
	"github.com/polkiloo/snackbar/internal/server/http/dto"
)

const (
	// IdempotencyHeader carries the client generated request key.
	IdempotencyHeader = "Idempotency-Key"

	idempotencyContextKey = "idempotencyKey"
	maxIdempotencyKeyLen  = 255
)

// Idempotency reads the Idempotency-Key header and binds it to the request
// method and concrete path. A key reused for another resource runs as a new
// request instead of replaying the first one.
func Idempotency() gin.HandlerFunc {
	return func(c *gin.Context) {
		value := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if len(value) > maxIdempotencyKeyLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "idempotency key too long"})
			return
		}
		c.Set(idempotencyContextKey, idempotency.Key{
			Value:     value,
			Operation: c.Request.Method + " " + c.Request.URL.Path,
		})
		c.Next()
	}
}

// IdempotencyKey returns the key bound by Idempotency. An empty key disables
// replay.
func IdempotencyKey(c *gin.Context) idempotency.Key {
	if v, ok := c.Get(idempotencyContextKey); ok {
		if key, ok := v.(idempotency.Key); ok {
			return key
		}
	}
	return idempotency.Key{}
}
