package middleware

import (
	"net/http"
	"strings"

	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"

	"github.com/gin-gonic/gin"
)

// PlayerKey is the gin context key holding the authenticated wallet.
const PlayerKey = "player"

// JWT requires a valid bearer token and stores the player in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		player, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PlayerKey, player)
		c.Next()
	}
}

// Player returns the wallet set by JWT.
func Player(c *gin.Context) (solana.PublicKey, bool) {
	v, ok := c.Get(PlayerKey)
	if !ok {
		return solana.PublicKey{}, false
	}
	p, ok := v.(solana.PublicKey)
	return p, ok
}
