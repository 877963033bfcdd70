package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"github.com/google/uuid"
)

var ErrAuthFailed = errors.New("wallet authentication failed")

// AuthChallenge is what the client signs to log in.
type AuthChallenge struct {
	Address   string `json:"address"`
	Domain    string `json:"domain"`
	Timestamp int64  `json:"timestamp"`
	Payload   string `json:"payload"`
	Message   string `json:"message"`
}

// AuthService issues login challenges and trades a signed proof for a JWT.
type AuthService struct {
	challenges ChallengeStore
	audit      *AuditService
	domain     string
	ttl        time.Duration
}

func NewAuthService(challenges ChallengeStore, audit *AuditService, domain string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AuthService{challenges: challenges, audit: audit, domain: domain, ttl: ttl}
}

func authKey(address, payload string) string { return "auth:" + address + ":" + payload }

// Challenge creates a single-use nonce for address.
func (s *AuthService) Challenge(ctx context.Context, address string) (*AuthChallenge, error) {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ch := &AuthChallenge{
		Address:   address,
		Domain:    s.domain,
		Timestamp: time.Now().Unix(),
		Payload:   uuid.NewString(),
	}
	ch.Message = string(wallet.ProofMessage(ch.Address, ch.Domain, ch.Timestamp, ch.Payload))
	if err := s.challenges.Put(ctx, authKey(address, ch.Payload), []byte(ch.Message), s.ttl); err != nil {
		return nil, err
	}
	return ch, nil
}

// Login checks the proof against an outstanding challenge and returns a token.
func (s *AuthService) Login(ctx context.Context, p wallet.Proof, ip, userAgent string) (string, solana.PublicKey, error) {
	stored, err := s.challenges.Take(ctx, authKey(p.Address, p.Payload))
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return "", solana.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
		}
		return "", solana.PublicKey{}, err
	}
	if string(stored) != string(wallet.ProofMessage(p.Address, p.Domain, p.Timestamp, p.Payload)) {
		return "", solana.PublicKey{}, fmt.Errorf("%w: challenge mismatch", ErrAuthFailed)
	}

	player, err := wallet.VerifyProof(p, s.domain)
	if err != nil {
		return "", solana.PublicKey{}, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	token, err := GenerateJWT(player)
	if err != nil {
		return "", solana.PublicKey{}, err
	}
	s.audit.LogLogin(ctx, player.String(), ip, userAgent)
	return token, player, nil
}
