package casino

import (
	"encoding/binary"
	"fmt"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

type VaultKind int

const (
	VaultCasino VaultKind = iota
	VaultLP
)

func (v VaultKind) seed() string {
	if v == VaultLP {
		return "lp_vault"
	}
	return "casino_vault"
}

// AdminAddress is ["admin", authority].
func (p *Program) AdminAddress() solana.PublicKey { return p.admin }

// VaultAddress is ["casino_vault" | "lp_vault", admin].
func (p *Program) VaultAddress(kind VaultKind) solana.PublicKey {
	return mustFind([][]byte{[]byte(kind.seed()), p.admin.Bytes()}, p.ID)
}

// SessionAddress is ["game_<kind>", player, seed_u128_le].
func (p *Program) SessionAddress(kind domain.GameKind, player solana.PublicKey, seed uint64) solana.PublicKey {
	return mustFind([][]byte{[]byte(SessionSeedPrefix(kind)), player.Bytes(), SeedBytes(seed)}, p.ID)
}

// PermissionAddress is [handle_u128_le, player] under the confidential-compute program.
func (p *Program) PermissionAddress(h domain.Handle, player solana.PublicKey) solana.PublicKey {
	le := h.LE16()
	return mustFind([][]byte{le[:], player.Bytes()}, p.IncoID)
}

// SessionSeedPrefix maps a game kind to its account seed. Crash accounts
// keep the program's "aviator" name.
func SessionSeedPrefix(kind domain.GameKind) string {
	switch kind {
	case domain.GameKindCoinflip:
		return "game_coinflip"
	case domain.GameKindRoulette:
		return "game_roulette"
	case domain.GameKindSlot:
		return "game_slot"
	case domain.GameKindCrash:
		return "game_aviator"
	}
	panic(fmt.Sprintf("casino: unknown game kind %q", kind))
}

// SeedBytes encodes a session seed as u128 little-endian.
func SeedBytes(seed uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}
