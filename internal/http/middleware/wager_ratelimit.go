package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// WagerRateLimit limits wager operations per player (not per IP).
// Requires JWT to run before this.
func WagerRateLimit(maxOps int, window time.Duration) gin.HandlerFunc {
	mem := newMemoryLimiter(window)
	return func(c *gin.Context) {
		player, ok := Player(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "wager_rl:" + player.String() + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		val, err := count(c.Request.Context(), key, window, mem)
		if err != nil {
			c.Header("X-WagerRateLimit-Error", "redis-error")
			c.Next()
			return
		}

		c.Header("X-WagerRateLimit-Limit", strconv.Itoa(maxOps))
		c.Header("X-WagerRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxOps)-val), 10))

		if val > int64(maxOps) {
			RLBlocked.WithLabelValues("wager:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "wager rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("wager:" + c.FullPath()).Inc()
		c.Next()
	}
}
