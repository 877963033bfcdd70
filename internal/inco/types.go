// Package inco talks to the confidential-compute network: it encrypts
// wager choices and performs attested, signature-gated decryption.
package inco

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

const messageVersion = "inco-decrypt:v1"

var (
	// ErrUnavailable covers transport failures and 5xx answers.
	ErrUnavailable = errors.New("inco: service unavailable")
	// ErrNotAllowed means the allowance is not visible to the network yet.
	ErrNotAllowed = errors.New("inco: decryption not allowed yet")
	// ErrSignatureInvalid means the network rejected the wallet signature.
	ErrSignatureInvalid = errors.New("inco: signature rejected")
	ErrBadRequest       = errors.New("inco: bad request")
	ErrBadResponse      = errors.New("inco: malformed response")
)

// SignFunc signs an arbitrary message with the player's wallet. It may
// return wallet.ErrUserRejected when the player declines.
type SignFunc func(ctx context.Context, message []byte) ([]byte, error)

// DecryptRequest is bound to one wallet and one fresh nonce, so a signature
// over its message cannot be replayed for a different request.
type DecryptRequest struct {
	Handles []domain.Handle  `json:"handles"`
	Address solana.PublicKey `json:"address"`
	Nonce   string           `json:"nonce"`
}

// Message is the exact byte string the wallet signs.
func (r DecryptRequest) Message() []byte {
	hs := make([]string, len(r.Handles))
	for i, h := range r.Handles {
		hs[i] = h.String()
	}
	return []byte(fmt.Sprintf("%s|%s|%s|%s", messageVersion, r.Address, r.Nonce, strings.Join(hs, ",")))
}

// DecryptResult holds one plaintext per requested handle, in request order,
// plus the ledger instructions that attest to them.
type DecryptResult struct {
	Handles           []domain.Handle
	Plaintexts        []string
	ProofInstructions []solana.Instruction
}

type WireAccount struct {
	Pubkey     solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// WireInstruction is the JSON form of a proof instruction.
type WireInstruction struct {
	ProgramID solana.PublicKey `json:"program_id"`
	Accounts  []WireAccount    `json:"accounts"`
	Data      string           `json:"data"`
}

func (w WireInstruction) instruction() (solana.Instruction, error) {
	data, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return solana.Instruction{}, fmt.Errorf("%w: proof data: %v", ErrBadResponse, err)
	}
	ix := solana.Instruction{ProgramID: w.ProgramID, Data: data}
	for _, a := range w.Accounts {
		ix.Accounts = append(ix.Accounts, solana.AccountMeta{PublicKey: a.Pubkey, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	return ix, nil
}

func NewWireInstruction(ix solana.Instruction) WireInstruction {
	w := WireInstruction{ProgramID: ix.ProgramID, Data: base64.StdEncoding.EncodeToString(ix.Data)}
	for _, a := range ix.Accounts {
		w.Accounts = append(w.Accounts, WireAccount{Pubkey: a.PublicKey, IsSigner: a.IsSigner, IsWritable: a.IsWritable})
	}
	return w
}
