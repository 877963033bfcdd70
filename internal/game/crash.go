package game

import (
	"errors"
	"fmt"

	"confidential_casino/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	CrashMinTargetBps = 10_100
	CrashMaxTargetBps = 100_000

	// the ledger draws crash = 1.00x + rand(0..9.00x)
	crashBaseBps  = 10_000
	crashRangeBps = 90_000
)

var bpsScale = decimal.New(10_000, 0)

// CrashStrategy: the player picks a target multiplier in basis points and
// wins if the crash point is at or above it.
type CrashStrategy struct{}

func (CrashStrategy) Kind() domain.GameKind { return domain.GameKindCrash }
func (CrashStrategy) HasChoice() bool       { return true }
func (CrashStrategy) ResultSlots() int      { return 1 }
func (CrashStrategy) ChoiceHelp() string    { return "target multiplier in basis points, 10100-100000" }

func (CrashStrategy) ValidateChoice(target uint64) error {
	if target < CrashMinTargetBps || target > CrashMaxTargetBps {
		return fmt.Errorf("%w: crash target must be %s-%s, got %s", ErrInvalidChoice,
			FormatMultiplier(CrashMinTargetBps), FormatMultiplier(CrashMaxTargetBps), FormatMultiplier(target))
	}
	return nil
}

// Normalize accepts either an already scaled crash point or a raw draw.
func (CrashStrategy) Normalize(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	for i, v := range raw {
		if v >= crashBaseBps && v < crashBaseBps+crashRangeBps {
			out[i] = v
			continue
		}
		out[i] = crashBaseBps + v%crashRangeBps
	}
	return out
}

func (CrashStrategy) IsWin(target uint64, results []uint64) bool {
	return len(results) == 1 && results[0] >= target
}

func (CrashStrategy) Describe(target uint64, results []uint64) string {
	if len(results) != 1 {
		return ""
	}
	return fmt.Sprintf("crashed at %s (target %s)", FormatMultiplier(results[0]), FormatMultiplier(target))
}

func (CrashStrategy) DisplayMultipliers(target uint64) []Multiplier {
	return []Multiplier{{Label: "target", Value: decimal.NewFromUint64(target).Div(bpsScale)}}
}

// ParseMultiplier turns "2.00" or "2.5x" into basis points (20000, 25000).
func ParseMultiplier(s string) (uint64, error) {
	if n := len(s); n > 0 && (s[n-1] == 'x' || s[n-1] == 'X') {
		s = s[:n-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidChoice, err)
	}
	if !d.IsPositive() {
		return 0, errors.New("multiplier must be positive")
	}
	bps := d.Mul(bpsScale)
	if !bps.Equal(bps.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than 4 decimals", ErrInvalidChoice, s)
	}
	return uint64(bps.IntPart()), nil
}

// FormatMultiplier renders basis points as "2.35x".
func FormatMultiplier(bps uint64) string {
	return decimal.NewFromUint64(bps).Div(bpsScale).StringFixed(2) + "x"
}
