package service

import (
	"errors"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/game"
)

// Protocol failures
var (
	ErrValidation         = errors.New("validation failed")
	ErrSimulationRejected = errors.New("simulation rejected by ledger")
	ErrExecutionFailed    = errors.New("execution failed")
	ErrRevealDenied       = errors.New("reveal denied")
	ErrRevealUnavailable  = errors.New("reveal unavailable")
	ErrAlreadyClaimed     = errors.New("already claimed")
	ErrClaimRejected      = errors.New("claim rejected by ledger")
)

// Operational failures
var (
	ErrSessionActive      = errors.New("you already have an active wager")
	ErrSessionNotFound    = domain.ErrSessionNotFound
	ErrNotOwner           = errors.New("wager belongs to another player")
	ErrInvalidState       = game.ErrInvalidState
	ErrOperationInFlight  = game.ErrOperationPending
	ErrNothingToClaim     = errors.New("nothing to claim")
	ErrStaleSimulation    = errors.New("simulation already executed")
	ErrEncryptUnavailable = errors.New("encryption service unavailable")
	ErrChallengeNotFound  = errors.New("challenge not found or expired")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrUnconfirmed        = errors.New("wager sent but not confirmed")
	ErrNotLanded          = errors.New("wager not found on ledger")
)

// IsRetryable reports whether the same operation may succeed if tried again
// without any change by the caller.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrExecutionFailed),
		errors.Is(err, ErrRevealUnavailable),
		errors.Is(err, ErrEncryptUnavailable),
		errors.Is(err, ErrNotLanded),
		errors.Is(err, ErrOperationInFlight):
		return true
	}
	return false
}
