package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"golang.org/x/sync/errgroup"
)

// Decryptor is the decryption network client. Retries of retryable
// failures happen inside Decrypt.
type Decryptor interface {
	NewRequest(handles []domain.Handle, address solana.PublicKey) inco.DecryptRequest
	Decrypt(ctx context.Context, req inco.DecryptRequest, signature []byte) (*inco.DecryptResult, error)
}

type RevealService struct {
	inco Decryptor
}

func NewRevealService(d Decryptor) *RevealService {
	return &RevealService{inco: d}
}

// Prepare creates one request per handle, each under a fresh nonce.
func (s *RevealService) Prepare(handles []domain.Handle, player solana.PublicKey) []inco.DecryptRequest {
	reqs := make([]inco.DecryptRequest, len(handles))
	for i, h := range handles {
		reqs[i] = s.inco.NewRequest([]domain.Handle{h}, player)
	}
	return reqs
}

// Reveal signs every request, then decrypts them in parallel. Either all
// plaintexts come back or none do.
func (s *RevealService) Reveal(ctx context.Context, reqs []inco.DecryptRequest, sign inco.SignFunc) ([]inco.DecryptResult, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: nothing to reveal", ErrValidation)
	}

	sigs := make([][]byte, len(reqs))
	for i, req := range reqs {
		sig, err := sign(ctx, req.Message())
		if err != nil {
			if errors.Is(err, wallet.ErrUserRejected) {
				return nil, fmt.Errorf("%w: %v", ErrRevealDenied, err)
			}
			return nil, fmt.Errorf("%w: sign: %v", ErrRevealDenied, err)
		}
		sigs[i] = sig
	}

	results := make([]inco.DecryptResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range reqs {
		g.Go(func() error {
			res, err := s.inco.Decrypt(gctx, reqs[i], sigs[i])
			if err != nil {
				return mapDecryptError(reqs[i], err)
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func mapDecryptError(req inco.DecryptRequest, err error) error {
	if errors.Is(err, inco.ErrSignatureInvalid) {
		return fmt.Errorf("%w: handle %v: %v", ErrRevealDenied, req.Handles, err)
	}
	return fmt.Errorf("%w: handle %v: %v", ErrRevealUnavailable, req.Handles, err)
}

// Plaintexts splits reveal results (payout first) into the payout, the raw
// result values and the proof instructions for the claim.
func Plaintexts(results []inco.DecryptResult) (payout uint64, values []uint64, proof []solana.Instruction, err error) {
	if len(results) == 0 {
		return 0, nil, nil, fmt.Errorf("%w: empty reveal", ErrRevealUnavailable)
	}
	for i, r := range results {
		if len(r.Plaintexts) != 1 {
			return 0, nil, nil, fmt.Errorf("%w: expected one plaintext, got %d", ErrRevealUnavailable, len(r.Plaintexts))
		}
		n, perr := strconv.ParseUint(r.Plaintexts[0], 10, 64)
		if perr != nil {
			return 0, nil, nil, fmt.Errorf("%w: plaintext %q: %v", ErrRevealUnavailable, r.Plaintexts[0], perr)
		}
		if i == 0 {
			payout = n
			proof = r.ProofInstructions
			continue
		}
		values = append(values, n)
	}
	return payout, values, proof, nil
}
