package casino

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

var (
	ErrNotGameAccount = errors.New("casino: not a GameResult account")
	ErrShortAccount   = errors.New("casino: account data too short")
)

var gameAccountDiscriminator = func() [8]byte {
	sum := sha256.Sum256([]byte("account:GameResult"))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}()

// GameType variant indices of the on-chain enum.
const (
	variantRoulette = 0
	variantCoinflip = 1
	variantSlot     = 2
	variantAviator  = 3
)

// GameAccount is the decoded GameResult account of one wager session.
type GameAccount struct {
	Player              solana.PublicKey
	Kind                domain.GameKind
	RouletteBetType     uint8
	TargetMultiplierBps uint32
	Seed                uint64
	BetAmount           uint64
	Slot                uint64
	ChoiceHandle        domain.Handle
	PayoutHandle        domain.Handle
	RandomHandles       [4]domain.Handle
	Claimed             bool
	Bump                uint8
}

// Handles returns the payout handle and the result handles this kind uses.
func (a *GameAccount) Handles() Handles {
	payout := a.PayoutHandle
	out := Handles{Payout: &payout}
	for i := 0; i < ResultSlots(a.Kind); i++ {
		h := a.RandomHandles[i]
		out.Results = append(out.Results, &h)
	}
	return out
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if len(r.buf) < n {
		r.err = ErrShortAccount
		return make([]byte, n)
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) u8() uint8   { return r.take(1)[0] }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *reader) u64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }

func (r *reader) vec() []byte {
	n := r.u32()
	if r.err == nil && int(n) > len(r.buf) {
		r.err = ErrShortAccount
		return nil
	}
	return r.take(int(n))
}

func (r *reader) handle() domain.Handle {
	h, err := domain.HandleFromLE16(r.take(16))
	if err != nil && r.err == nil {
		r.err = err
	}
	return h
}

// DecodeGameAccount parses Anchor/Borsh GameResult data.
func DecodeGameAccount(data []byte) (*GameAccount, error) {
	if len(data) < 8 || [8]byte(data[:8]) != gameAccountDiscriminator {
		return nil, ErrNotGameAccount
	}
	r := &reader{buf: data[8:]}
	var a GameAccount

	a.Player, _ = solana.PublicKeyFromBytes(r.take(32))

	switch variant := r.u8(); variant {
	case variantRoulette:
		a.Kind = domain.GameKindRoulette
		a.RouletteBetType = r.u8()
	case variantCoinflip:
		a.Kind = domain.GameKindCoinflip
	case variantSlot:
		a.Kind = domain.GameKindSlot
	case variantAviator:
		a.Kind = domain.GameKindCrash
		a.TargetMultiplierBps = r.u32()
	default:
		if r.err == nil {
			return nil, fmt.Errorf("%w: unknown game type %d", ErrNotGameAccount, variant)
		}
	}

	seed := r.take(16)
	a.Seed = binary.LittleEndian.Uint64(seed[:8])
	a.BetAmount = r.u64()
	a.Slot = r.u64()
	a.ChoiceHandle = r.handle()
	a.PayoutHandle = r.handle()
	for i := range a.RandomHandles {
		a.RandomHandles[i] = r.handle()
	}
	a.Claimed = r.u8() != 0
	a.Bump = r.u8()

	if r.err != nil {
		return nil, r.err
	}
	return &a, nil
}

// MarshalBinary encodes the account in its on-chain layout.
func (a *GameAccount) MarshalBinary() ([]byte, error) {
	b := borsh(gameAccountDiscriminator[:])
	b = append(b, a.Player[:]...)

	switch a.Kind {
	case domain.GameKindRoulette:
		b = append(b, variantRoulette, a.RouletteBetType)
	case domain.GameKindCoinflip:
		b = append(b, variantCoinflip)
	case domain.GameKindSlot:
		b = append(b, variantSlot)
	case domain.GameKindCrash:
		b = append(b, variantAviator)
		b = binary.LittleEndian.AppendUint32(b, a.TargetMultiplierBps)
	default:
		return nil, fmt.Errorf("casino: unknown game kind %q", a.Kind)
	}

	b = b.u128(a.Seed).u64(a.BetAmount).u64(a.Slot)
	for _, h := range append([]domain.Handle{a.ChoiceHandle, a.PayoutHandle}, a.RandomHandles[:]...) {
		le := h.LE16()
		b = append(b, le[:]...)
	}
	claimed := byte(0)
	if a.Claimed {
		claimed = 1
	}
	b = append(b, claimed, a.Bump)
	return []byte(b), nil
}
