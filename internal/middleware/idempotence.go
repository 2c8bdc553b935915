package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotenceTTL    = 60 * time.Second
)

// Idempotence returns a middleware that rejects duplicate non-GET
// requests carrying the same client-supplied idempotence key within
// the TTL window. Requests without the header pass through untouched.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		clientKey := c.GetHeader(idempotenceHeader)
		if clientKey == "" {
			c.Next()
			return
		}

		scope := CurrentUserID(c)
		if scope == "" {
			scope = c.ClientIP()
		}
		sum := sha256.Sum256([]byte(scope + "|" + c.Request.Method + "|" + c.Request.URL.Path + "|" + clientKey))
		redisKey := fmt.Sprintf("tn:idempotence:%s", hex.EncodeToString(sum[:]))
		ctx := c.Request.Context()

		val, err := rdb.Get(ctx, redisKey).Result()
		if err == nil {
			msg := "duplicate request: an identical request already succeeded within 60 seconds"
			if val == "0" {
				msg = "duplicate request: an identical request is still in flight"
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      0,
				"code":    http.StatusConflict,
				"message": msg,
			})
			return
		}
		if !errors.Is(err, redis.Nil) {
			c.Next()
			return
		}

		if setErr := rdb.Set(ctx, redisKey, "0", idempotenceTTL).Err(); setErr != nil {
			c.Next()
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			rdb.Set(ctx, redisKey, "1", redis.KeepTTL)
		} else {
			rdb.Del(ctx, redisKey)
		}
	}
}
