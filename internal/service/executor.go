package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/domain"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"
)

// Ledger is the subset of the JSON-RPC client the services use.
type Ledger interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*solana.SimulationResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) error
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) ([]byte, error)
	GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)
}

// Intent is one wager as the player asked for it.
type Intent struct {
	Kind            domain.GameKind
	Signer          solana.Signer
	Seed            uint64
	EncryptedChoice []byte
	Stake           uint64
}

func (i Intent) Player() solana.PublicKey { return i.Signer.PublicKey() }

// Simulation is a successful dry run. It can be executed once.
type Simulation struct {
	Intent  Intent
	Session solana.PublicKey
	Logs    []string
	Handles casino.Handles

	ix   solana.Instruction
	used atomic.Bool
}

// ExecutionReceipt describes a confirmed wager.
type ExecutionReceipt struct {
	Signature solana.Signature
	Session   solana.PublicKey
	Simulated casino.Handles
	// Executed is nil when the session account could not be read back.
	Executed  *casino.Handles
	Recovered bool
}

// Record converts the receipt into the bridge record the session consumes.
func (r *ExecutionReceipt) Record() domain.TransactionRecord {
	rec := domain.TransactionRecord{
		Signature:        r.Signature,
		SimulatedPayout:  r.Simulated.Payout,
		SimulatedResults: r.Simulated.Results,
		Recovered:        r.Recovered,
	}
	if r.Executed != nil {
		rec.ExecutedPayout = r.Executed.Payout
		rec.ExecutedResults = r.Executed.Results
	}
	return rec
}

// Executor runs the simulate-then-send pipeline against the ledger.
type Executor struct {
	ledger  Ledger
	program *casino.Program
}

func NewExecutor(ledger Ledger, program *casino.Program) *Executor {
	return &Executor{ledger: ledger, program: program}
}

func observe(stage string, start time.Time) {
	LedgerStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Simulate builds the wager instruction and dry-runs it. Nothing is committed,
// so every failure here, transport included, is ErrSimulationRejected.
func (e *Executor) Simulate(ctx context.Context, intent Intent) (*Simulation, error) {
	player := intent.Player()
	ix, err := e.program.PlayInstruction(intent.Kind, player, intent.Seed, intent.EncryptedChoice, intent.Stake)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulationRejected, err)
	}

	res, err := e.simulate(ctx, intent.Signer, []solana.Instruction{ix})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulationRejected, err)
	}
	if res.Err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSimulationRejected, casino.Describe(res.Err))
	}

	handles, err := casino.ExtractHandles(intent.Kind, res.Logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulationRejected, err)
	}

	return &Simulation{
		Intent:  intent,
		Session: ix.Accounts[casino.PlayGameAccount].PublicKey,
		Logs:    res.Logs,
		Handles: handles,
		ix:      ix,
	}, nil
}

// Execute sends the simulated instruction with the permission accounts
// appended and waits for confirmation. When the transaction went out but its
// fate is unknown, the receipt comes back together with ErrUnconfirmed.
func (e *Executor) Execute(ctx context.Context, sim *Simulation, permissions []solana.AccountMeta) (*ExecutionReceipt, error) {
	if !sim.used.CompareAndSwap(false, true) {
		return nil, ErrStaleSimulation
	}

	log := logger.WithContext(ctx).With("session", sim.Session.String(), "kind", sim.Intent.Kind)
	receipt := &ExecutionReceipt{Session: sim.Session, Simulated: sim.Handles}

	ix := sim.ix.WithAccounts(permissions...)
	sig, sendErr := e.sendAndConfirm(ctx, sim.Intent.Signer, []solana.Instruction{ix})
	receipt.Signature = sig

	acct, acctErr := e.fetchGame(ctx, sim.Session)
	if sendErr != nil {
		// the transaction may have landed even though we lost track of it
		if acctErr != nil || acct.Player != sim.Intent.Player() || acct.Seed != sim.Intent.Seed {
			if mayLand(sig, sendErr) {
				log.Warn("wager sent but not confirmed", "signature", sig.String(), "error", sendErr)
				return receipt, fmt.Errorf("%w: %w: %v", ErrExecutionFailed, ErrUnconfirmed, sendErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, sendErr)
		}
		log.Warn("wager landed despite send failure", "error", sendErr)
		receipt.Recovered = true
	}

	if acctErr != nil {
		log.Warn("session account unreadable after confirm, using simulated handles", "error", acctErr)
		return receipt, nil
	}

	executed := acct.Handles()
	receipt.Executed = &executed
	if !sim.Handles.Equal(executed) {
		HandleMismatches.WithLabelValues(string(sim.Intent.Kind)).Inc()
		log.Warn("simulated handles differ from executed account")
	}
	return receipt, nil
}

// GameAccount reads and decodes a session account.
func (e *Executor) GameAccount(ctx context.Context, session solana.PublicKey) (*casino.GameAccount, error) {
	return e.fetchGame(ctx, session)
}

func (e *Executor) fetchGame(ctx context.Context, session solana.PublicKey) (*casino.GameAccount, error) {
	defer observe("account", time.Now())
	data, err := e.ledger.GetAccountInfo(ctx, session)
	if err != nil {
		return nil, err
	}
	return casino.DecodeGameAccount(data)
}

func (e *Executor) build(ctx context.Context, signer solana.Signer, ixs []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := e.ledger.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(ixs, blockhash, signer.PublicKey())
	if err != nil {
		return nil, err
	}
	if err := tx.Sign(ctx, signer); err != nil {
		return nil, err
	}
	return tx, nil
}

// simulate returns the ledger's verdict. The error is only set when the
// ledger could not be asked.
func (e *Executor) simulate(ctx context.Context, signer solana.Signer, ixs []solana.Instruction) (*solana.SimulationResult, error) {
	defer observe("simulate", time.Now())
	tx, err := e.build(ctx, signer, ixs)
	if err != nil {
		return nil, err
	}
	return e.ledger.SimulateTransaction(ctx, tx)
}

func (e *Executor) sendAndConfirm(ctx context.Context, signer solana.Signer, ixs []solana.Instruction) (solana.Signature, error) {
	defer observe("send", time.Now())
	tx, err := e.build(ctx, signer, ixs)
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := e.ledger.SendTransaction(ctx, tx)
	if err != nil {
		return tx.Signature(), err
	}
	if err := e.ledger.ConfirmTransaction(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// mayLand is false when the transaction never left the client or the
// ledger refused it outright.
func mayLand(sig solana.Signature, err error) bool {
	if sig.IsZero() || errors.Is(err, solana.ErrTransactionFailed) {
		return false
	}
	var rpcErr *solana.RPCError
	return !errors.As(err, &rpcErr)
}

// ledgerFailure pulls the decoded transaction error out of a send failure.
func ledgerFailure(err error) *solana.TransactionError {
	var rpcErr *solana.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.TransactionError()
	}
	return nil
}
