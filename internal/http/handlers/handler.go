package handlers

import (
	"context"
	"errors"

	"confidential_casino/internal/http/middleware"
	"confidential_casino/internal/service"
	"confidential_casino/internal/solana"

	"github.com/gin-gonic/gin"
)

var errNoLocalSigner = errors.New("this daemon holds no key for the wallet")

// LocalWallet is the daemon's own keypair. It signs ledger transactions
// and, when no presigned reveal is supplied, reveal messages.
type LocalWallet interface {
	solana.Signer
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

type Handler struct {
	Wagers *service.WagerService
	Auth   *service.AuthService
	Audit  *service.AuditService
	Wallet LocalWallet
}

func NewHandler(wagers *service.WagerService, auth *service.AuthService, audit *service.AuditService, w LocalWallet) *Handler {
	return &Handler{
		Wagers: wagers,
		Auth:   auth,
		Audit:  audit,
		Wallet: w,
	}
}

// getPlayer извлекает кошелёк игрока из контекста Gin
func getPlayer(c *gin.Context) (solana.PublicKey, bool) {
	return middleware.Player(c)
}

// signerFor returns the local wallet if it belongs to player.
func (h *Handler) signerFor(player solana.PublicKey) (LocalWallet, error) {
	if h.Wallet == nil || h.Wallet.PublicKey() != player {
		return nil, errNoLocalSigner
	}
	return h.Wallet, nil
}
