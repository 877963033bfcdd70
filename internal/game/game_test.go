package game

import (
	"testing"

	"confidential_casino/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestStrategyChoiceValidation(t *testing.T) {
	f := NewFactory()

	tests := []struct {
		kind   domain.GameKind
		choice uint64
		ok     bool
	}{
		{domain.GameKindCoinflip, 0, true},
		{domain.GameKindCoinflip, 1, true},
		{domain.GameKindCoinflip, 2, false},
		{domain.GameKindRoulette, 0, true},
		{domain.GameKindRoulette, 36, true},
		{domain.GameKindRoulette, 37, false},
		{domain.GameKindSlot, 0, true},
		{domain.GameKindSlot, 1, false},
		{domain.GameKindCrash, 10_099, false},
		{domain.GameKindCrash, 10_100, true},
		{domain.GameKindCrash, 100_000, true},
		{domain.GameKindCrash, 100_001, false},
	}
	for _, tt := range tests {
		s, err := f.Strategy(tt.kind)
		require.NoError(t, err)
		err = s.ValidateChoice(tt.choice)
		if tt.ok {
			require.NoError(t, err, "%s %d", tt.kind, tt.choice)
		} else {
			require.ErrorIs(t, err, ErrInvalidChoice, "%s %d", tt.kind, tt.choice)
		}
	}

	_, err := f.Strategy("dice")
	require.Error(t, err)
	require.Len(t, f.Kinds(), 4)
}

func TestStrategyOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		s       Strategy
		choice  uint64
		raw     []uint64
		win     bool
		results []uint64
		desc    string
	}{
		{"coinflip match", CoinflipStrategy{}, 1, []uint64{1}, true, []uint64{1}, "tails"},
		{"coinflip miss", CoinflipStrategy{}, 0, []uint64{1}, false, []uint64{1}, "tails"},
		{"roulette hit", RouletteStrategy{}, 17, []uint64{17}, true, []uint64{17}, "spin 17"},
		{"roulette miss", RouletteStrategy{}, 17, []uint64{4}, false, []uint64{4}, "spin 4"},
		{"slot pair left", SlotStrategy{}, 0, []uint64{7, 7, 3}, true, []uint64{7, 7, 3}, "7-7-3"},
		{"slot pair right", SlotStrategy{}, 0, []uint64{2, 5, 5}, true, []uint64{2, 5, 5}, "2-5-5"},
		{"slot outer pair loses", SlotStrategy{}, 0, []uint64{4, 1, 4}, false, []uint64{4, 1, 4}, "4-1-4"},
		{"slot reduces mod 10", SlotStrategy{}, 0, []uint64{17, 27, 3}, true, []uint64{7, 7, 3}, "7-7-3"},
		{"crash above target", CrashStrategy{}, 20_000, []uint64{23_500}, true, []uint64{23_500}, "crashed at 2.35x (target 2.00x)"},
		{"crash exactly target", CrashStrategy{}, 20_000, []uint64{20_000}, true, []uint64{20_000}, "crashed at 2.00x (target 2.00x)"},
		{"crash below target", CrashStrategy{}, 20_000, []uint64{15_000}, false, []uint64{15_000}, "crashed at 1.50x (target 2.00x)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := tt.s.Normalize(tt.raw)
			require.Equal(t, tt.results, results)
			require.Equal(t, tt.win, tt.s.IsWin(tt.choice, results))
			require.Equal(t, tt.desc, tt.s.Describe(tt.choice, results))
		})
	}
}

func TestDisplayMultipliers(t *testing.T) {
	require.Equal(t, "1.95", CoinflipStrategy{}.DisplayMultipliers(0)[0].Value.String())
	require.Equal(t, "35.46", RouletteStrategy{}.DisplayMultipliers(0)[0].Value.String())

	slot := SlotStrategy{}.DisplayMultipliers(0)
	require.Equal(t, "4.925", slot[0].Value.String())
	require.Equal(t, "49.25", slot[1].Value.String())

	require.Equal(t, "2.5", CrashStrategy{}.DisplayMultipliers(25_000)[0].Value.String())
}

func TestParseMultiplier(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"2.00", 20_000, false},
		{"2.5x", 25_000, false},
		{"1.01", 10_100, false},
		{"10", 100_000, false},
		{"1.00005", 0, true},
		{"0", 0, true},
		{"-2", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMultiplier(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
	require.Equal(t, "2.35x", FormatMultiplier(23_500))
}
