package solana

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// LamportsPerSOL is the smallest unit ratio (1 SOL = 10^9 lamports)
	LamportsPerSOL = 1_000_000_000

	// DefaultConfirmTimeout bounds how long a submitted transaction is polled
	DefaultConfirmTimeout = 60 * time.Second

	// DefaultRequestTimeout is the per-call HTTP timeout of the RPC client
	DefaultRequestTimeout = 30 * time.Second
)

// Commitment is the ledger confirmation level requested from the RPC node.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// RPC endpoints
const (
	MainnetRPC = "https://api.mainnet-beta.solana.com"
	DevnetRPC  = "https://api.devnet.solana.com"
	LocalRPC   = "http://127.0.0.1:8899"
)

// Well-known program and sysvar addresses.
var (
	SystemProgramID      = MustPublicKey("11111111111111111111111111111111")
	SysvarInstructionsID = MustPublicKey("Sysvar1nstructions1111111111111111111111111")
	Ed25519ProgramID     = MustPublicKey("Ed25519SigVerify111111111111111111111111111")
)

// LamportsToSOL converts lamports to SOL without float rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}

// SOLToLamports converts a decimal SOL amount, truncating below one lamport.
func SOLToLamports(sol decimal.Decimal) uint64 {
	if sol.IsNegative() {
		return 0
	}
	return uint64(sol.Shift(9).IntPart())
}

// FormatSOL renders lamports as a fixed 4-decimal SOL string, e.g. "0.0195".
func FormatSOL(lamports uint64) string {
	return LamportsToSOL(lamports).StringFixed(4)
}
