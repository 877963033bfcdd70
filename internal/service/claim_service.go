package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/domain"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"
)

// ClaimRequest is everything one claim transaction needs.
type ClaimRequest struct {
	Session      solana.PublicKey
	PayoutHandle domain.Handle
	Payout       uint64
	Proof        []solana.Instruction
	// Claimed is the local view; the ledger still decides.
	Claimed bool
}

type ClaimService struct {
	executor *Executor
	program  *casino.Program
}

func NewClaimService(executor *Executor, program *casino.Program) *ClaimService {
	return &ClaimService{executor: executor, program: program}
}

// Claim submits the proof instructions followed by claim_rewards in one
// transaction. It is simulated first; the credited amount comes from the
// ledger's log when present.
func (s *ClaimService) Claim(ctx context.Context, signer solana.Signer, req ClaimRequest) (*domain.ClaimReceipt, error) {
	if req.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if req.Payout == 0 {
		return nil, ErrNothingToClaim
	}
	if len(req.Proof) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrClaimRejected, errProofNotAccepted)
	}

	log := logger.WithContext(ctx).With("session", req.Session.String())

	ixs := make([]solana.Instruction, 0, len(req.Proof)+1)
	ixs = append(ixs, req.Proof...)
	ixs = append(ixs, s.program.ClaimInstruction(signer.PublicKey(), req.Session, req.PayoutHandle, req.Payout))

	sim, err := s.executor.simulate(ctx, signer, ixs)
	if err != nil {
		return nil, fmt.Errorf("%w: simulate claim: %v", ErrExecutionFailed, err)
	}
	if sim.Err != nil {
		return nil, classifyClaimFailure(sim.Err)
	}

	sig, err := s.executor.sendAndConfirm(ctx, signer, ixs)
	if err != nil {
		if te := ledgerFailure(err); te != nil {
			return nil, classifyClaimFailure(te)
		}
		log.Warn("claim send failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}

	amount, ok := casino.ParseClaimedAmount(sim.Logs)
	if !ok {
		amount = req.Payout
	}
	log.Info("claim confirmed", "signature", sig.String(), "amount", amount)

	return &domain.ClaimReceipt{
		Signature: sig,
		Amount:    amount,
		ClaimedAt: time.Now().UTC(),
	}, nil
}

// ClaimedOnLedger reports the ledger's claimed flag for a session.
func (s *ClaimService) ClaimedOnLedger(ctx context.Context, session solana.PublicKey) (bool, error) {
	acct, err := s.executor.GameAccount(ctx, session)
	if err != nil {
		return false, err
	}
	return acct.Claimed, nil
}

func classifyClaimFailure(te *solana.TransactionError) error {
	code, ok := te.CustomCode()
	switch {
	case ok && code == casino.ErrCodeAlreadyClaimed:
		return ErrAlreadyClaimed
	case ok && casino.IsProofError(code):
		return fmt.Errorf("%w: %w: %s", ErrClaimRejected, errProofNotAccepted, casino.Describe(te))
	case ok && code == casino.ErrCodeInsufficientVaultFunds:
		return fmt.Errorf("%w: %s", ErrExecutionFailed, casino.Describe(te))
	case ok:
		return fmt.Errorf("%w: %s", ErrClaimRejected, casino.Describe(te))
	}
	return fmt.Errorf("%w: %s", ErrExecutionFailed, casino.Describe(te))
}

var errProofNotAccepted = errors.New("decryption proof not accepted")

// proofRejected reports whether a claim failure invalidates the proof.
func proofRejected(err error) bool {
	return errors.Is(err, errProofNotAccepted)
}
