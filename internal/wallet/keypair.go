// Package wallet holds the daemon's signing key and verifies signatures
// produced by players' wallets.
package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"confidential_casino/internal/solana"
)

// ErrUserRejected is returned by a signer when the player declines to sign.
var ErrUserRejected = errors.New("wallet: user rejected the signature request")

// Keypair is an ed25519 key stored in the solana-keygen JSON format
// (a 64-element byte array: seed followed by public key).
type Keypair struct {
	priv ed25519.PrivateKey
	pub  solana.PublicKey
}

func GenerateKeypair() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return fromPrivate(priv)
}

func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed must be %d bytes", ed25519.SeedSize)
	}
	return fromPrivate(ed25519.NewKeyFromSeed(seed))
}

func fromPrivate(priv ed25519.PrivateKey) (*Keypair, error) {
	pub, err := solana.PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, pub: pub}, nil
}

// LoadKeypair reads a solana-keygen keypair file.
func LoadKeypair(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("parse keypair %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair %s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(ints))
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair %s: byte %d out of range", path, i)
		}
		b[i] = byte(v)
	}

	kp, err := KeypairFromSeed(b[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if string(kp.pub[:]) != string(b[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("keypair %s: public key does not match seed", path)
	}
	return kp, nil
}

// Save writes the keypair with owner-only permissions.
func (k *Keypair) Save(path string) error {
	ints := make([]int, len(k.priv))
	for i, b := range k.priv {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func (k *Keypair) PublicKey() solana.PublicKey { return k.pub }

// Sign implements solana.Signer.
func (k *Keypair) Sign(_ context.Context, message []byte) (solana.Signature, error) {
	var sig solana.Signature
	copy(sig[:], ed25519.Sign(k.priv, message))
	return sig, nil
}

// SignMessage signs an off-chain message, e.g. a decrypt request.
func (k *Keypair) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}
