package domain

import (
	"errors"
	"time"

	"confidential_casino/internal/solana"
)

// GameKind - тип игры
type GameKind string

const (
	GameKindCoinflip GameKind = "coinflip"
	GameKindRoulette GameKind = "roulette"
	GameKindSlot     GameKind = "slot"
	GameKindCrash    GameKind = "crash"
)

func (k GameKind) Valid() bool {
	switch k {
	case GameKindCoinflip, GameKindRoulette, GameKindSlot, GameKindCrash:
		return true
	}
	return false
}

// SessionState - состояние ставки
type SessionState string

const (
	StateBetting        SessionState = "betting"
	StateSubmitting     SessionState = "submitting"
	StateAwaitingReveal SessionState = "awaiting_reveal"
	StateRevealing      SessionState = "revealing"
	StateSettled        SessionState = "settled"
	StateClaimable      SessionState = "claimable"
	StateClaimed        SessionState = "claimed"
	StateFailed         SessionState = "failed"
)

// Revealed reports whether the outcome is known in this state.
func (s SessionState) Revealed() bool {
	switch s {
	case StateSettled, StateClaimable, StateClaimed:
		return true
	}
	return false
}

var ErrSessionNotFound = errors.New("wager session not found")

// WagerSession is the persisted form of one wager.
type WagerSession struct {
	ID              solana.PublicKey `json:"id"`
	Kind            GameKind         `json:"kind"`
	Player          solana.PublicKey `json:"player"`
	Seed            uint64           `json:"seed"`
	Stake           uint64           `json:"stake"`
	Choice          uint64           `json:"choice"`
	EncryptedChoice []byte           `json:"-"`
	ResultHandles   []*Handle        `json:"result_handles"`
	PayoutHandle    *Handle          `json:"payout_handle,omitempty"`
	Claimed         bool             `json:"claimed"`
	Abandoned       bool             `json:"abandoned"`
	State           SessionState     `json:"state"`
	FailedFrom      SessionState     `json:"failed_from,omitempty"`
	LastError       string           `json:"last_error,omitempty"`
	Outcome         *RevealedOutcome `json:"outcome,omitempty"`
	Claim           *ClaimReceipt    `json:"claim,omitempty"`
	TxSignature     solana.Signature `json:"tx_signature"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Open reports whether the wager still needs the player: it can be revealed or claimed.
func (w *WagerSession) Open() bool {
	switch w.State {
	case StateAwaitingReveal, StateRevealing, StateClaimable:
		return true
	case StateFailed:
		return w.FailedFrom == StateRevealing || w.FailedFrom == StateClaimable || w.Unconfirmed()
	}
	return false
}

// Unconfirmed reports a wager whose transaction was sent but never seen on
// the ledger. Its address and seed are bound, so the account can be checked later.
func (w *WagerSession) Unconfirmed() bool {
	return w.State == StateFailed && w.FailedFrom == StateSubmitting && !w.ID.IsZero()
}

// RevealHandles lists the handles to decrypt: payout first, then results in slot order.
func (w *WagerSession) RevealHandles() []Handle {
	var out []Handle
	if w.PayoutHandle != nil {
		out = append(out, *w.PayoutHandle)
	}
	for _, h := range w.ResultHandles {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}

// RevealedOutcome is the decrypted result. ProofInstructions are never persisted.
type RevealedOutcome struct {
	Results           []uint64             `json:"results"`
	Payout            uint64               `json:"payout"`
	IsWin             bool                 `json:"is_win"`
	ProofInstructions []solana.Instruction `json:"-"`
	RevealedAt        time.Time            `json:"revealed_at"`
}

type ClaimReceipt struct {
	Signature solana.Signature `json:"signature"`
	Amount    uint64           `json:"amount"`
	ClaimedAt time.Time        `json:"claimed_at"`
}

// TransactionRecord bridges submit and reveal. Executed handles win over simulated ones.
type TransactionRecord struct {
	Signature        solana.Signature
	SimulatedPayout  *Handle
	SimulatedResults []*Handle
	ExecutedPayout   *Handle
	ExecutedResults  []*Handle
	Recovered        bool
}
