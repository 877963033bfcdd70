package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/game"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WagerRequest places a wager. Stake is in lamports, or in SOL via stake_sol.
// Crash takes its target as "2.5x" in target, or in basis points in choice.
type WagerRequest struct {
	Kind     domain.GameKind `json:"kind" binding:"required"`
	Choice   uint64          `json:"choice"`
	Target   string          `json:"target"`
	Stake    uint64          `json:"stake"`
	StakeSOL string          `json:"stake_sol"`
}

func (r WagerRequest) parse() (choice, stake uint64, err error) {
	choice, stake = r.Choice, r.Stake
	if r.StakeSOL != "" {
		sol, err := decimal.NewFromString(r.StakeSOL)
		if err != nil {
			return 0, 0, errors.New("stake_sol: not a number")
		}
		stake = solana.SOLToLamports(sol)
	}
	if r.Target != "" {
		if r.Kind != domain.GameKindCrash {
			return 0, 0, errors.New("target is only valid for crash")
		}
		if choice, err = game.ParseMultiplier(r.Target); err != nil {
			return 0, 0, err
		}
	}
	return choice, stake, nil
}

// RevealRequest carries signatures made by the player's own wallet over the
// messages from the reveal challenge, in the same order. Empty means the
// daemon signs with its local wallet.
type RevealRequest struct {
	Signatures []string `json:"signatures"`
}

func sessionID(c *gin.Context) (solana.PublicKey, bool) {
	id, err := solana.PublicKeyFromBase58(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
		return solana.PublicKey{}, false
	}
	return id, true
}

// CreateWager submits a wager signed by the local wallet.
func (h *Handler) CreateWager(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req WagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	choice, stake, err := req.parse()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signer, err := h.signerFor(player)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	sess, err := h.Wagers.Submit(c.Request.Context(), signer, req.Kind, choice, stake)
	if err != nil {
		var extra gin.H
		if sess != nil {
			// sent but unconfirmed: the client rechecks it by id
			extra = gin.H{"wager": sess.View()}
		}
		respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusCreated, sess.View())
}

// RecheckWager looks for an unconfirmed wager on the ledger.
func (h *Handler) RecheckWager(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.Wagers.Recheck(c.Request.Context(), player, id)
	if err != nil {
		var extra gin.H
		if sess != nil {
			extra = gin.H{"wager": sess.View()}
		}
		respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// ListWagers returns recent wagers, or only unfinished ones with ?open=true.
func (h *Handler) ListWagers(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	if open, _ := strconv.ParseBool(c.Query("open")); open {
		sessions, err := h.Wagers.ListOpen(ctx, player)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		views := make([]game.View, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, s.View())
		}
		c.JSON(http.StatusOK, gin.H{"wagers": views})
		return
	}

	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	views, err := h.Wagers.List(ctx, player, limit)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wagers": views})
}

func (h *Handler) GetWager(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	sess, err := h.Wagers.Get(c.Request.Context(), player, id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// RevealChallenge returns the messages the player signs to reveal a wager.
func (h *Handler) RevealChallenge(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	challenges, err := h.Wagers.PrepareReveal(c.Request.Context(), player, id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": challenges})
}

// Reveal decrypts the wager outcome.
func (h *Handler) Reveal(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req RevealRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
	}

	var sign inco.SignFunc
	if len(req.Signatures) > 0 {
		if len(req.Signatures) > 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many signatures"})
			return
		}
		sigs := make([][]byte, len(req.Signatures))
		for i, s := range req.Signatures {
			sig, err := wallet.DecodeSignature(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature encoding"})
				return
			}
			sigs[i] = sig
		}
		sign = wallet.Presigned(player, sigs)
	} else {
		local, err := h.signerFor(player)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		sign = local.SignMessage
	}

	sess, err := h.Wagers.Reveal(c.Request.Context(), player, id, sign)
	if err != nil {
		var extra gin.H
		if sess != nil {
			extra = gin.H{"wager": sess.View()}
		}
		respondError(c, err, extra)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// Claim pays out a revealed win to the local wallet.
func (h *Handler) Claim(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	signer, err := h.signerFor(player)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	receipt, err := h.Wagers.Claim(c.Request.Context(), signer, id)
	if errors.Is(err, service.ErrAlreadyClaimed) {
		c.JSON(http.StatusOK, gin.H{"already_claimed": true, "claim": receipt})
		return
	}
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"already_claimed": false,
		"claim":           receipt,
		"amount_sol":      solana.FormatSOL(receipt.Amount),
	})
}

// AbandonWager frees the player's active slot. The wager stays revealable.
func (h *Handler) AbandonWager(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.Wagers.Abandon(c.Request.Context(), player, id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"abandoned": true})
}

// AuditLogs returns the player's audit trail, or one wager's with ?wager=.
func (h *Handler) AuditLogs(c *gin.Context) {
	player, ok := getPlayer(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	if raw := c.Query("wager"); raw != "" {
		id, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid wager id"})
			return
		}
		if _, err := h.Wagers.Get(ctx, player, id); err != nil {
			respondError(c, err, nil)
			return
		}
		logs, err := h.Audit.GetSessionAuditLogs(ctx, id.String())
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
		return
	}

	logs, err := h.Audit.GetPlayerAuditLogs(ctx, player.String(), 100)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
