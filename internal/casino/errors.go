package casino

import (
	"fmt"

	"confidential_casino/internal/solana"
)

// anchorErrorOffset is where Anchor numbers user-defined error codes from.
const anchorErrorOffset = 6000

// Program error codes, in declaration order.
const (
	ErrCodeBump uint32 = anchorErrorOffset + iota
	ErrCodeOverflow
	ErrCodeMinimumBet
	ErrCodeMaximumBet
	ErrCodeInvalidBetType
	ErrCodeInvalidBetChoice
	ErrCodeTimeoutNotReached
	ErrCodeEd25519Program
	ErrCodeEd25519Accounts
	ErrCodeEd25519DataLength
	ErrCodeEd25519Signature
	ErrCodeEd25519Pubkey
	ErrCodeEd25519Message
	ErrCodeInstructionSysvarNotFound
	ErrCodeGameNotResolved
	ErrCodeAlreadyClaimed
	ErrCodeInvalidDecryptionProof
	ErrCodeInsufficientVaultFunds
	ErrCodeInvalidPayoutAmount
)

var errorNames = map[uint32]string{
	ErrCodeBump:                      "BumpError",
	ErrCodeOverflow:                  "Overflow",
	ErrCodeMinimumBet:                "MinimumBet",
	ErrCodeMaximumBet:                "MaximumBet",
	ErrCodeInvalidBetType:            "InvalidBetType",
	ErrCodeInvalidBetChoice:          "InvalidBetChoice",
	ErrCodeTimeoutNotReached:         "TimeoutNotReached",
	ErrCodeEd25519Program:            "Ed25519Program",
	ErrCodeEd25519Accounts:           "Ed25519Accounts",
	ErrCodeEd25519DataLength:         "Ed25519DataLength",
	ErrCodeEd25519Signature:          "Ed25519Signature",
	ErrCodeEd25519Pubkey:             "Ed25519Pubkey",
	ErrCodeEd25519Message:            "Ed25519Message",
	ErrCodeInstructionSysvarNotFound: "InstructionSysvarNotFound",
	ErrCodeGameNotResolved:           "GameNotResolved",
	ErrCodeAlreadyClaimed:            "AlreadyClaimed",
	ErrCodeInvalidDecryptionProof:    "InvalidDecryptionProof",
	ErrCodeInsufficientVaultFunds:    "InsufficientVaultFunds",
	ErrCodeInvalidPayoutAmount:       "InvalidPayoutAmount",
}

// ErrorName returns the program's name for code, or "" for codes it does not define.
func ErrorName(code uint32) string {
	return errorNames[code]
}

// IsProofError reports codes meaning the decryption proof was not accepted.
func IsProofError(code uint32) bool {
	switch code {
	case ErrCodeEd25519Program, ErrCodeEd25519Accounts, ErrCodeEd25519DataLength,
		ErrCodeEd25519Signature, ErrCodeEd25519Pubkey, ErrCodeEd25519Message,
		ErrCodeInstructionSysvarNotFound, ErrCodeInvalidDecryptionProof, ErrCodeInvalidPayoutAmount:
		return true
	}
	return false
}

// Describe renders a ledger error with the program's error name when known.
func Describe(te *solana.TransactionError) string {
	if te == nil {
		return ""
	}
	if code, ok := te.CustomCode(); ok {
		if name := ErrorName(code); name != "" {
			return fmt.Sprintf("%s (%d)", name, code)
		}
	}
	return te.Error()
}
