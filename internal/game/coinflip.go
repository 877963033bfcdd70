package game

import (
	"fmt"

	"confidential_casino/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	CoinHeads uint64 = 0
	CoinTails uint64 = 1
)

// CoinflipStrategy: choose heads or tails, win on a match.
type CoinflipStrategy struct{}

func (CoinflipStrategy) Kind() domain.GameKind { return domain.GameKindCoinflip }
func (CoinflipStrategy) HasChoice() bool       { return true }
func (CoinflipStrategy) ResultSlots() int      { return 1 }
func (CoinflipStrategy) ChoiceHelp() string    { return "0 = heads, 1 = tails" }

func (CoinflipStrategy) ValidateChoice(choice uint64) error {
	if choice != CoinHeads && choice != CoinTails {
		return fmt.Errorf("%w: coinflip side must be 0 or 1, got %d", ErrInvalidChoice, choice)
	}
	return nil
}

func (CoinflipStrategy) Normalize(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	for i, v := range raw {
		out[i] = v % 2
	}
	return out
}

func (CoinflipStrategy) IsWin(choice uint64, results []uint64) bool {
	return len(results) == 1 && results[0] == choice
}

func (CoinflipStrategy) Describe(_ uint64, results []uint64) string {
	if len(results) != 1 {
		return ""
	}
	if results[0] == CoinHeads {
		return "heads"
	}
	return "tails"
}

func (CoinflipStrategy) DisplayMultipliers(uint64) []Multiplier {
	return []Multiplier{{Label: "win", Value: decimal.RequireFromString("1.95")}}
}
