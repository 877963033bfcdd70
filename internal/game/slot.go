package game

import (
	"fmt"

	"confidential_casino/internal/domain"
)

const (
	SlotReels   = 3
	SlotSymbols = 10
)

// SlotStrategy has no choice. Three reels; two adjacent equal reels win,
// three equal reels hit the jackpot.
type SlotStrategy struct{}

func (SlotStrategy) Kind() domain.GameKind { return domain.GameKindSlot }
func (SlotStrategy) HasChoice() bool       { return false }
func (SlotStrategy) ResultSlots() int      { return SlotReels }
func (SlotStrategy) ChoiceHelp() string    { return "no choice" }

func (SlotStrategy) ValidateChoice(choice uint64) error {
	if choice != 0 {
		return fmt.Errorf("%w: slot takes no choice", ErrInvalidChoice)
	}
	return nil
}

func (SlotStrategy) Normalize(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	for i, v := range raw {
		out[i] = v % SlotSymbols
	}
	return out
}

func (SlotStrategy) IsWin(_ uint64, r []uint64) bool {
	return len(r) == SlotReels && (r[0] == r[1] || r[1] == r[2])
}

func (SlotStrategy) Describe(_ uint64, r []uint64) string {
	if len(r) != SlotReels {
		return ""
	}
	return fmt.Sprintf("%d-%d-%d", r[0], r[1], r[2])
}

func (SlotStrategy) DisplayMultipliers(uint64) []Multiplier {
	return []Multiplier{
		{Label: "pair", Value: houseEdge(5)},
		{Label: "jackpot", Value: houseEdge(50)},
	}
}
