package game

import (
	"errors"

	"confidential_casino/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrInvalidChoice = errors.New("invalid choice")

// Strategy captures what differs between game kinds. It never sees result
// handles, only decrypted values after reveal.
type Strategy interface {
	Kind() domain.GameKind

	// HasChoice is false for games without a player choice (slot).
	HasChoice() bool
	ValidateChoice(choice uint64) error

	// ResultSlots is the number of result handles the ledger produces (1 or 3).
	ResultSlots() int
	// Normalize maps a raw decrypted result into the game's value range.
	Normalize(raw []uint64) []uint64
	IsWin(choice uint64, results []uint64) bool
	Describe(choice uint64, results []uint64) string

	// DisplayMultipliers are informational and never feed payout logic.
	DisplayMultipliers(choice uint64) []Multiplier
	ChoiceHelp() string
}

// Multiplier is a labelled display-only payout ratio.
type Multiplier struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// houseEdge applies the program's 1.5% edge to a gross multiplier.
func houseEdge(gross int64) decimal.Decimal {
	return decimal.NewFromInt(gross).Mul(decimal.New(9850, -4))
}
