package casino

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

// Anchor instruction discriminators: sha256("global:<name>")[:8].
var (
	ixPlayCoinflip = discriminator("global:play_coinflip")
	ixPlayRoulette = discriminator("global:play_roulette")
	ixPlaySlot     = discriminator("global:play_slot")
	ixPlayAviator  = discriminator("global:play_aviator")
	ixClaimRewards = discriminator("global:claim_rewards")
)

func discriminator(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// borsh is a minimal append-only Borsh encoder for instruction arguments.
type borsh []byte

func (b borsh) u64(v uint64) borsh {
	return binary.LittleEndian.AppendUint64(b, v)
}

// u128 encodes a value that fits in 64 bits as a 16-byte little-endian integer.
func (b borsh) u128(v uint64) borsh {
	b = binary.LittleEndian.AppendUint64(b, v)
	return binary.LittleEndian.AppendUint64(b, 0)
}

func (b borsh) bytes(v []byte) borsh {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(v)))
	return append(b, v...)
}

func playDiscriminator(kind domain.GameKind) ([8]byte, error) {
	switch kind {
	case domain.GameKindCoinflip:
		return ixPlayCoinflip, nil
	case domain.GameKindRoulette:
		return ixPlayRoulette, nil
	case domain.GameKindSlot:
		return ixPlaySlot, nil
	case domain.GameKindCrash:
		return ixPlayAviator, nil
	}
	return [8]byte{}, fmt.Errorf("casino: unknown game kind %q", kind)
}

// PlayInstruction builds the wager instruction without permission accounts.
// Slot takes no encrypted choice; encryptedChoice is ignored for it.
func (p *Program) PlayInstruction(kind domain.GameKind, player solana.PublicKey, seed uint64, encryptedChoice []byte, stake uint64) (solana.Instruction, error) {
	disc, err := playDiscriminator(kind)
	if err != nil {
		return solana.Instruction{}, err
	}

	data := borsh(disc[:]).u128(seed)
	if kind != domain.GameKindSlot {
		data = data.bytes(encryptedChoice)
	}
	data = data.u64(stake)

	return solana.Instruction{
		ProgramID: p.ID,
		Accounts: []solana.AccountMeta{
			solana.WritableSigner(player),
			solana.ReadOnly(p.admin),
			solana.Writable(p.VaultAddress(VaultCasino)),
			solana.Writable(p.SessionAddress(kind, player, seed)),
			solana.ReadOnly(p.IncoID),
			solana.ReadOnly(solana.SystemProgramID),
		},
		Data: []byte(data),
	}, nil
}

// ClaimInstruction builds claim_rewards(handle, plaintext). The proof
// instructions returned by the decryption network must precede it in the
// same transaction; the program reads them through the instructions sysvar.
func (p *Program) ClaimInstruction(player, session solana.PublicKey, payoutHandle domain.Handle, payout uint64) solana.Instruction {
	handle := payoutHandle.LE16()
	plaintext := domain.HandleFromUint64(payout).LE16()

	data := borsh(ixClaimRewards[:]).bytes(handle[:]).bytes(plaintext[:])

	return solana.Instruction{
		ProgramID: p.ID,
		Accounts: []solana.AccountMeta{
			solana.WritableSigner(player),
			solana.ReadOnly(p.admin),
			solana.Writable(p.VaultAddress(VaultCasino)),
			solana.Writable(p.VaultAddress(VaultLP)),
			solana.Writable(session),
			solana.ReadOnly(solana.SysvarInstructionsID),
			solana.ReadOnly(p.IncoID),
			solana.ReadOnly(solana.SystemProgramID),
		},
		Data: []byte(data),
	}
}

// Instruction data layout helpers, used to recognise our own instructions.
const (
	PlaySeedOffset   = 8
	PlayGameAccount  = 3
	ClaimGameAccount = 4
)

// PlayKind returns the game kind encoded by a play instruction's discriminator.
func PlayKind(data []byte) (domain.GameKind, bool) {
	if len(data) < 8 {
		return "", false
	}
	var d [8]byte
	copy(d[:], data[:8])
	switch d {
	case ixPlayCoinflip:
		return domain.GameKindCoinflip, true
	case ixPlayRoulette:
		return domain.GameKindRoulette, true
	case ixPlaySlot:
		return domain.GameKindSlot, true
	case ixPlayAviator:
		return domain.GameKindCrash, true
	}
	return "", false
}

// IsClaim reports whether data is a claim_rewards instruction.
func IsClaim(data []byte) bool {
	return len(data) >= 8 && [8]byte(data[:8]) == ixClaimRewards
}

// DecodeClaimArgs returns the (handle, plaintext) pair of a claim_rewards instruction.
func DecodeClaimArgs(data []byte) (domain.Handle, uint64, error) {
	if !IsClaim(data) {
		return domain.Handle{}, 0, fmt.Errorf("casino: not a claim instruction")
	}
	r := &reader{buf: data[8:]}
	hb := r.vec()
	pb := r.vec()
	if r.err != nil {
		return domain.Handle{}, 0, r.err
	}
	h, err := domain.HandleFromLE16(hb)
	if err != nil {
		return domain.Handle{}, 0, err
	}
	if len(pb) != 16 {
		return domain.Handle{}, 0, fmt.Errorf("casino: plaintext is %d bytes", len(pb))
	}
	return h, binary.LittleEndian.Uint64(pb[:8]), nil
}
