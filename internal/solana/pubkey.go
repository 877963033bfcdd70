package solana

import (
	"errors"
	"fmt"

	"github.com/cosmos/btcutil/base58"
)

const (
	PublicKeyLength = 32
	SignatureLength = 64
	HashLength      = 32
)

var ErrInvalidBase58 = errors.New("solana: invalid base58 value")

// PublicKey is an ed25519 public key or a program-derived address.
type PublicKey [PublicKeyLength]byte

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidBase58, PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func PublicKeyFromBase58(s string) (PublicKey, error) {
	return PublicKeyFromBytes(decode58(s))
}

// MustPublicKey panics on malformed input. Use it for compile-time constants only.
func MustPublicKey(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(fmt.Sprintf("solana: bad public key %q: %v", s, err))
	}
	return pk
}

func (p PublicKey) String() string { return base58.Encode(p[:]) }

func (p PublicKey) Bytes() []byte { return p[:] }

func (p PublicKey) IsZero() bool { return p == PublicKey{} }

func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PublicKey) UnmarshalText(text []byte) error {
	pk, err := PublicKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*p = pk
	return nil
}

// Signature is an ed25519 transaction signature; its base58 form is the transaction id.
type Signature [SignatureLength]byte

func SignatureFromBase58(s string) (Signature, error) {
	var sig Signature
	b := decode58(s)
	if len(b) != SignatureLength {
		return sig, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidBase58, SignatureLength, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

func (s Signature) String() string { return base58.Encode(s[:]) }

func (s Signature) IsZero() bool { return s == Signature{} }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	sig, err := SignatureFromBase58(string(text))
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// Hash is a recent blockhash.
type Hash [HashLength]byte

func HashFromBase58(s string) (Hash, error) {
	var h Hash
	b := decode58(s)
	if len(b) != HashLength {
		return h, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidBase58, HashLength, len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Hash) String() string { return base58.Encode(h[:]) }

func decode58(s string) []byte {
	if s == "" {
		return nil
	}
	// base58.Decode returns an empty slice on invalid characters
	return base58.Decode(s)
}
