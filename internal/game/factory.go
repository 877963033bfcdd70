package game

import (
	"fmt"

	"confidential_casino/internal/domain"
)

type Factory struct {
	strategies map[domain.GameKind]Strategy
}

func NewFactory() *Factory {
	f := &Factory{strategies: map[domain.GameKind]Strategy{}}
	for _, s := range []Strategy{CoinflipStrategy{}, RouletteStrategy{}, SlotStrategy{}, CrashStrategy{}} {
		f.strategies[s.Kind()] = s
	}
	return f
}

func (f *Factory) Strategy(kind domain.GameKind) (Strategy, error) {
	s, ok := f.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("unknown game kind: %s", kind)
	}
	return s, nil
}

// Kinds lists supported kinds in a stable order.
func (f *Factory) Kinds() []domain.GameKind {
	return []domain.GameKind{domain.GameKindCoinflip, domain.GameKindRoulette, domain.GameKindSlot, domain.GameKindCrash}
}
