package casino

import (
	"encoding/binary"
	"testing"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"

	"github.com/stretchr/testify/require"
)

var testPlayer = solana.MustPublicKey("8tmUuXnBRHbg8UYAPor6mDcmbzcENnu4tVz2sr7dmx9B")

func hp(s string) *domain.Handle {
	h := domain.MustParseHandle(s)
	return &h
}

func TestExtractHandles(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.GameKind
		lines   []string
		payout  *domain.Handle
		results []*domain.Handle
	}{
		{
			name: "coinflip",
			kind: domain.GameKindCoinflip,
			lines: []string{
				"Program F9wy invoke [1]",
				"Program log: Instruction: PlayCoinflip",
				"Program log: Random handle: 111",
				"Program log: Payout handle: 222",
				"Program F9wy success",
			},
			payout:  hp("222"),
			results: []*domain.Handle{hp("111")},
		},
		{
			name:    "roulette without prefix",
			kind:    domain.GameKindRoulette,
			lines:   []string{"Spin handle: 5", "Payout handle: 6"},
			payout:  hp("6"),
			results: []*domain.Handle{hp("5")},
		},
		{
			name:    "crash",
			kind:    domain.GameKindCrash,
			lines:   []string{"Program log: Crash point handle: 340282366920938463463374607431768211455", "Program log: Payout handle: 1"},
			payout:  hp("1"),
			results: []*domain.Handle{hp("340282366920938463463374607431768211455")},
		},
		{
			name: "slot with missing reel",
			kind: domain.GameKindSlot,
			lines: []string{
				"Program log: Reel1 handle: 10",
				"Program log: Reel3 handle: 30",
				"Program log: Payout handle: 40",
			},
			payout:  hp("40"),
			results: []*domain.Handle{hp("10"), nil, hp("30")},
		},
		{
			name:    "other kinds' markers ignored",
			kind:    domain.GameKindCoinflip,
			lines:   []string{"Program log: Spin handle: 9", "Program log: Reel1 handle: 8"},
			payout:  nil,
			results: []*domain.Handle{nil},
		},
		{
			name:    "no logs",
			kind:    domain.GameKindSlot,
			payout:  nil,
			results: []*domain.Handle{nil, nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractHandles(tt.kind, tt.lines)
			require.NoError(t, err)
			require.True(t, got.Equal(Handles{Payout: tt.payout, Results: tt.results}), "%+v", got)
			require.Len(t, got.Results, ResultSlots(tt.kind))
		})
	}
}

func TestExtractHandlesMalformed(t *testing.T) {
	for _, line := range []string{
		"Program log: Payout handle: 12x",
		"Program log: Payout handle: -1",
		"Program log: Random handle:",
		"Program log: Random handle: 340282366920938463463374607431768211456",
	} {
		_, err := ExtractHandles(domain.GameKindCoinflip, []string{line})
		require.ErrorIs(t, err, domain.ErrMalformedHandle, line)
	}

	_, err := ExtractHandles("dice", nil)
	require.Error(t, err)
}

func TestBuildPermissionAccounts(t *testing.T) {
	p := DefaultProgram()

	require.Empty(t, p.BuildPermissionAccounts(nil, []*domain.Handle{hp("1")}, testPlayer))

	payout := hp("100")
	results := []*domain.Handle{hp("1"), nil, hp("3")}
	metas := p.BuildPermissionAccounts(payout, results, testPlayer)
	require.Len(t, metas, 6)

	want := []domain.Handle{*payout, *results[0], *results[2]}
	for i, h := range want {
		allow := metas[2*i]
		owner := metas[2*i+1]
		require.Equal(t, p.PermissionAddress(h, testPlayer), allow.PublicKey)
		require.True(t, allow.IsWritable)
		require.False(t, allow.IsSigner)
		require.Equal(t, testPlayer, owner.PublicKey)
		require.False(t, owner.IsWritable)
	}
}

func TestAddressesAreDistinctAndStable(t *testing.T) {
	p := DefaultProgram()
	q := DefaultProgram()

	require.Equal(t, p.AdminAddress(), q.AdminAddress())
	require.NotEqual(t, p.VaultAddress(VaultCasino), p.VaultAddress(VaultLP))

	seen := map[solana.PublicKey]domain.GameKind{}
	for _, k := range []domain.GameKind{domain.GameKindCoinflip, domain.GameKindRoulette, domain.GameKindSlot, domain.GameKindCrash} {
		addr := p.SessionAddress(k, testPlayer, 42)
		require.Equal(t, addr, q.SessionAddress(k, testPlayer, 42))
		require.NotContains(t, seen, addr)
		seen[addr] = k
	}
	require.NotEqual(t, p.SessionAddress(domain.GameKindCoinflip, testPlayer, 1), p.SessionAddress(domain.GameKindCoinflip, testPlayer, 2))

	require.NotEqual(t,
		p.PermissionAddress(domain.HandleFromUint64(1), testPlayer),
		p.PermissionAddress(domain.HandleFromUint64(2), testPlayer))

	require.Equal(t, "game_aviator", SessionSeedPrefix(domain.GameKindCrash))
	require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, SeedBytes(1))
}

func TestPlayInstructionLayout(t *testing.T) {
	p := DefaultProgram()
	choice := []byte{0xaa, 0xbb, 0xcc}

	ix, err := p.PlayInstruction(domain.GameKindCoinflip, testPlayer, 7, choice, 10_000_000)
	require.NoError(t, err)

	require.Equal(t, p.ID, ix.ProgramID)
	kind, ok := PlayKind(ix.Data)
	require.True(t, ok)
	require.Equal(t, domain.GameKindCoinflip, kind)

	data := ix.Data[8:]
	require.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[0:8]))
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[16:20]))
	require.Equal(t, choice, data[20:23])
	require.Equal(t, uint64(10_000_000), binary.LittleEndian.Uint64(data[23:31]))
	require.Len(t, data, 31)

	require.Len(t, ix.Accounts, 6)
	require.Equal(t, solana.WritableSigner(testPlayer), ix.Accounts[0])
	require.Equal(t, p.SessionAddress(domain.GameKindCoinflip, testPlayer, 7), ix.Accounts[PlayGameAccount].PublicKey)
	require.Equal(t, p.IncoID, ix.Accounts[4].PublicKey)

	slot, err := p.PlayInstruction(domain.GameKindSlot, testPlayer, 7, choice, 10_000_000)
	require.NoError(t, err)
	require.Len(t, slot.Data, 8+16+8)

	_, err = p.PlayInstruction("dice", testPlayer, 7, nil, 1)
	require.Error(t, err)
}

func TestClaimInstructionRoundTrip(t *testing.T) {
	p := DefaultProgram()
	session := p.SessionAddress(domain.GameKindCoinflip, testPlayer, 9)
	h := domain.MustParseHandle("123456789012345678901234567890")

	ix := p.ClaimInstruction(testPlayer, session, h, 19_500_000)
	require.True(t, IsClaim(ix.Data))
	require.Len(t, ix.Data, 8+4+16+4+16)

	gotH, gotPayout, err := DecodeClaimArgs(ix.Data)
	require.NoError(t, err)
	require.True(t, gotH.Equal(h))
	require.Equal(t, uint64(19_500_000), gotPayout)

	require.Len(t, ix.Accounts, 8)
	require.Equal(t, session, ix.Accounts[ClaimGameAccount].PublicKey)
	require.Equal(t, p.VaultAddress(VaultLP), ix.Accounts[3].PublicKey)
	require.Equal(t, solana.SysvarInstructionsID, ix.Accounts[5].PublicKey)
}

func TestGameAccountRoundTrip(t *testing.T) {
	acc := &GameAccount{
		Player:              testPlayer,
		Kind:                domain.GameKindCrash,
		TargetMultiplierBps: 25_000,
		Seed:                99,
		BetAmount:           10_000_000,
		Slot:                1234,
		ChoiceHandle:        domain.HandleFromUint64(1),
		PayoutHandle:        domain.HandleFromUint64(2),
		RandomHandles:       [4]domain.Handle{domain.HandleFromUint64(3)},
		Bump:                254,
	}
	data, err := acc.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, 8+32+1+4+16+8+8+16*6+1+1)

	got, err := DecodeGameAccount(data)
	require.NoError(t, err)
	require.Equal(t, acc, got)

	hs := got.Handles()
	require.True(t, hs.Complete())
	require.Len(t, hs.Results, 1)
	require.True(t, hs.Results[0].Equal(domain.HandleFromUint64(3)))

	_, err = DecodeGameAccount(data[:40])
	require.ErrorIs(t, err, ErrShortAccount)

	data[0] ^= 0xff
	_, err = DecodeGameAccount(data)
	require.ErrorIs(t, err, ErrNotGameAccount)
}

func TestSlotAccountHandles(t *testing.T) {
	acc := &GameAccount{
		Player: testPlayer,
		Kind:   domain.GameKindSlot,
		RandomHandles: [4]domain.Handle{
			domain.HandleFromUint64(11), domain.HandleFromUint64(12), domain.HandleFromUint64(13),
		},
		PayoutHandle: domain.HandleFromUint64(10),
	}
	data, err := acc.MarshalBinary()
	require.NoError(t, err)
	got, err := DecodeGameAccount(data)
	require.NoError(t, err)
	require.Len(t, got.Handles().Results, 3)
}

func TestErrorClassification(t *testing.T) {
	require.Equal(t, uint32(6015), ErrCodeAlreadyClaimed)
	require.Equal(t, uint32(6016), ErrCodeInvalidDecryptionProof)
	require.Equal(t, "MinimumBet", ErrorName(6002))
	require.True(t, IsProofError(ErrCodeInvalidDecryptionProof))
	require.True(t, IsProofError(ErrCodeEd25519Signature))
	require.False(t, IsProofError(ErrCodeAlreadyClaimed))

	code := uint32(6003)
	require.Equal(t, "MaximumBet (6003)", Describe(&solana.TransactionError{Custom: &code, Kind: "Custom"}))
}

func TestParseClaimedAmount(t *testing.T) {
	n, ok := ParseClaimedAmount([]string{"Program log: Instruction: ClaimRewards", "Program log: Claimed 19500000 lamports!"})
	require.True(t, ok)
	require.Equal(t, uint64(19_500_000), n)

	_, ok = ParseClaimedAmount([]string{"Program log: nothing here"})
	require.False(t, ok)
}
