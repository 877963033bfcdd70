package game

import (
	"fmt"

	"confidential_casino/internal/domain"
)

const RouletteMaxNumber = 36

// RouletteStrategy is a straight-up bet on one number of 0..36.
type RouletteStrategy struct{}

func (RouletteStrategy) Kind() domain.GameKind { return domain.GameKindRoulette }
func (RouletteStrategy) HasChoice() bool       { return true }
func (RouletteStrategy) ResultSlots() int      { return 1 }
func (RouletteStrategy) ChoiceHelp() string    { return "number 0-36" }

func (RouletteStrategy) ValidateChoice(choice uint64) error {
	if choice > RouletteMaxNumber {
		return fmt.Errorf("%w: roulette number must be 0-%d, got %d", ErrInvalidChoice, RouletteMaxNumber, choice)
	}
	return nil
}

func (RouletteStrategy) Normalize(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	for i, v := range raw {
		out[i] = v % (RouletteMaxNumber + 1)
	}
	return out
}

func (RouletteStrategy) IsWin(choice uint64, results []uint64) bool {
	return len(results) == 1 && results[0] == choice
}

func (RouletteStrategy) Describe(_ uint64, results []uint64) string {
	if len(results) != 1 {
		return ""
	}
	return fmt.Sprintf("spin %d", results[0])
}

func (RouletteStrategy) DisplayMultipliers(uint64) []Multiplier {
	return []Multiplier{{Label: "straight", Value: houseEdge(36)}}
}
