package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"confidential_casino/internal/solana"

	"github.com/cosmos/btcutil/base58"
)

// ProofTTL is how long a login proof stays valid
const ProofTTL = 15 * time.Minute

// Proof is a wallet's signature over a server-issued login challenge.
type Proof struct {
	Address   string `json:"address"`
	Domain    string `json:"domain"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// ProofMessage is the text a wallet signs to log in.
func ProofMessage(address, domain string, timestamp int64, payload string) []byte {
	return []byte(fmt.Sprintf("%s wants you to sign in with your Solana account:\n%s\n\nNonce: %s\nIssued At: %s",
		domain, address, payload, time.Unix(timestamp, 0).UTC().Format(time.RFC3339)))
}

// VerifyProof checks freshness, domain and the ed25519 signature, and
// returns the proven public key.
func VerifyProof(p Proof, allowedDomain string) (solana.PublicKey, error) {
	// 1. Check timestamp
	issued := time.Unix(p.Timestamp, 0)
	if time.Since(issued) > ProofTTL {
		return solana.PublicKey{}, errors.New("proof expired")
	}
	if time.Until(issued) > time.Minute {
		return solana.PublicKey{}, errors.New("proof issued in the future")
	}

	// 2. Check domain
	if p.Domain != allowedDomain {
		return solana.PublicKey{}, fmt.Errorf("domain mismatch: expected %s, got %s", allowedDomain, p.Domain)
	}

	// 3. Decode public key (the address is the key)
	pub, err := solana.PublicKeyFromBase58(p.Address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid address: %w", err)
	}

	// 4. Decode signature
	sig, err := DecodeSignature(p.Signature)
	if err != nil {
		return solana.PublicKey{}, err
	}

	// 5. Verify
	if !Verify(pub, ProofMessage(p.Address, p.Domain, p.Timestamp, p.Payload), sig) {
		return solana.PublicKey{}, errors.New("invalid signature")
	}
	return pub, nil
}

// DecodeSignature accepts base58 (wallet adapters) or base64.
func DecodeSignature(s string) ([]byte, error) {
	if b := base58.Decode(s); len(b) == ed25519.SignatureSize {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == ed25519.SignatureSize {
		return b, nil
	}
	return nil, errors.New("invalid signature format")
}

func Verify(pub solana.PublicKey, message, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig)
}

// Presigned returns a sign function that serves signatures the player
// produced elsewhere (for example in a browser wallet). Each call returns
// the first unused signature that verifies over the requested message; if
// none does, the player did not approve that message.
func Presigned(player solana.PublicKey, signatures [][]byte) func(ctx context.Context, message []byte) ([]byte, error) {
	used := make([]bool, len(signatures))
	return func(_ context.Context, message []byte) ([]byte, error) {
		for i, sig := range signatures {
			if used[i] || !Verify(player, message, sig) {
				continue
			}
			used[i] = true
			return sig, nil
		}
		return nil, ErrUserRejected
	}
}
