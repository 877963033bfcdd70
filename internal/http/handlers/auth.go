package handlers

import (
	"net/http"

	"confidential_casino/internal/wallet"

	"github.com/gin-gonic/gin"
)

type ChallengeRequest struct {
	Address string `json:"address" binding:"required"`
}

// AuthChallenge issues the message a wallet signs to log in.
func (h *Handler) AuthChallenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ch, err := h.Auth.Challenge(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Login trades a signed challenge for a JWT.
func (h *Handler) Login(c *gin.Context) {
	var proof wallet.Proof
	if err := c.ShouldBindJSON(&proof); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(proof.Signature) > 256 || len(proof.Payload) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof too long"})
		return
	}

	token, player, err := h.Auth.Login(c.Request.Context(), proof, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"player": player.String(),
	})
}
