// Package casino knows the on-chain casino program: its account layout,
// instruction encoding, log format and error codes.
package casino

import (
	"confidential_casino/internal/solana"
)

// Default deployment addresses.
var (
	DefaultProgramID = solana.MustPublicKey("F9wygaMhPNWmCd6MMtZg7orv6ZkvuF4ycWopZ9cjq3Nc")
	DefaultIncoID    = solana.MustPublicKey("5sjEbPiqgZrYwR31ahR6Uk9wf5awoX61YGg7jExQSwaj")
	DefaultAuthority = solana.MustPublicKey("8tmUuXnBRHbg8UYAPor6mDcmbzcENnu4tVz2sr7dmx9B")
)

// Program constants mirrored from the deployed program (lamports / basis points).
const (
	HouseEdgeBps          = 150
	MinBetLamports        = 10_000_000
	MaxBetLamports        = 10_000_000_000
	MinCrashTargetBps     = 10_100
	MaxCrashMultiplierBps = 100_000
)

// Program is one deployment of the casino program together with the
// confidential-compute program it calls into.
type Program struct {
	ID        solana.PublicKey
	IncoID    solana.PublicKey
	Authority solana.PublicKey

	admin solana.PublicKey
}

func NewProgram(id, inco, authority solana.PublicKey) *Program {
	p := &Program{ID: id, IncoID: inco, Authority: authority}
	p.admin = mustFind([][]byte{[]byte("admin"), authority.Bytes()}, id)
	return p
}

func DefaultProgram() *Program {
	return NewProgram(DefaultProgramID, DefaultIncoID, DefaultAuthority)
}

func mustFind(seeds [][]byte, program solana.PublicKey) solana.PublicKey {
	addr, _, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		// seeds are fixed-size here, so this is a programming error
		panic(err)
	}
	return addr
}
