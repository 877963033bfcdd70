package service

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/domain"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"github.com/stretchr/testify/require"
)

// fakeLedger plays the casino program in memory. Handles are derived from
// the wager seed: payout = seed*100+1, result i = seed*100+10+i.
type fakeLedger struct {
	program *casino.Program
	balance uint64

	simErr     *solana.TransactionError // next play simulation
	claimErr   *solana.TransactionError // every claim simulation
	sendErr    error
	landAnyway bool // with sendErr: the transaction still lands
	confirmErr error
	// drift is added to handles when the play executes
	drift uint64
	// holdBalance parks the next GetBalance: it sends once on entry and
	// waits for a second value before answering
	holdBalance chan struct{}

	accounts map[solana.PublicKey]*casino.GameAccount
	sent     []*solana.Transaction
	sims     int
	mu       sync.Mutex
}

func newFakeLedger(program *casino.Program) *fakeLedger {
	return &fakeLedger{
		program:  program,
		balance:  100 * solana.LamportsPerSOL,
		accounts: make(map[solana.PublicKey]*casino.GameAccount),
	}
}

func seedHandles(kind domain.GameKind, seed, drift uint64) casino.Handles {
	payout := domain.HandleFromUint64(seed*100 + 1 + drift)
	out := casino.Handles{Payout: &payout}
	for i := 0; i < casino.ResultSlots(kind); i++ {
		h := domain.HandleFromUint64(seed*100 + 10 + uint64(i) + drift)
		out.Results = append(out.Results, &h)
	}
	return out
}

type playCall struct {
	kind    domain.GameKind
	seed    uint64
	stake   uint64
	player  solana.PublicKey
	session solana.PublicKey
}

type claimCall struct {
	session solana.PublicKey
	payout  uint64
}

func (l *fakeLedger) decode(tx *solana.Transaction) (*playCall, *claimCall) {
	keys := tx.Message.AccountKeys
	for _, ci := range tx.Message.Instructions {
		if keys[ci.ProgramIDIndex] != l.program.ID {
			continue
		}
		if kind, ok := casino.PlayKind(ci.Data); ok {
			return &playCall{
				kind:    kind,
				seed:    binary.LittleEndian.Uint64(ci.Data[casino.PlaySeedOffset:]),
				stake:   binary.LittleEndian.Uint64(ci.Data[len(ci.Data)-8:]),
				player:  keys[ci.Accounts[0]],
				session: keys[ci.Accounts[casino.PlayGameAccount]],
			}, nil
		}
		if casino.IsClaim(ci.Data) {
			_, payout, err := casino.DecodeClaimArgs(ci.Data)
			if err != nil {
				panic(err)
			}
			return nil, &claimCall{session: keys[ci.Accounts[casino.ClaimGameAccount]], payout: payout}
		}
	}
	return nil, nil
}

func customErr(code uint32) *solana.TransactionError {
	return &solana.TransactionError{Kind: "Custom", InstructionIndex: 0, Custom: &code}
}

func (l *fakeLedger) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{7}, nil
}

func (l *fakeLedger) SimulateTransaction(_ context.Context, tx *solana.Transaction) (*solana.SimulationResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sims++

	play, claim := l.decode(tx)
	switch {
	case play != nil:
		if l.simErr != nil {
			err := l.simErr
			l.simErr = nil
			return &solana.SimulationResult{Err: err}, nil
		}
		hs := seedHandles(play.kind, play.seed, 0)
		logs := []string{
			"Program log: Instruction: Play",
			"Program log: Payout handle: " + hs.Payout.String(),
		}
		for i, m := range casino.ResultMarkers(play.kind) {
			logs = append(logs, fmt.Sprintf("Program log: %s %s", m, hs.Results[i]))
		}
		return &solana.SimulationResult{Logs: logs}, nil

	case claim != nil:
		acct, ok := l.accounts[claim.session]
		if !ok {
			return &solana.SimulationResult{Err: &solana.TransactionError{Kind: "AccountNotFound", InstructionIndex: -1}}, nil
		}
		if acct.Claimed {
			return &solana.SimulationResult{Err: customErr(casino.ErrCodeAlreadyClaimed)}, nil
		}
		if l.claimErr != nil {
			return &solana.SimulationResult{Err: l.claimErr}, nil
		}
		return &solana.SimulationResult{Logs: []string{
			"Program log: Instruction: ClaimRewards",
			fmt.Sprintf("Program log: Claimed %d lamports!", claim.payout),
		}}, nil
	}
	return &solana.SimulationResult{}, nil
}

func (l *fakeLedger) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, tx)
	if l.sendErr != nil && !l.landAnyway {
		return solana.Signature{}, l.sendErr
	}

	play, claim := l.decode(tx)
	switch {
	case play != nil:
		hs := seedHandles(play.kind, play.seed, l.drift)
		acct := &casino.GameAccount{
			Player:    play.player,
			Kind:      play.kind,
			Seed:      play.seed,
			BetAmount: play.stake,
			Slot:      1,
		}
		acct.PayoutHandle = *hs.Payout
		for i, h := range hs.Results {
			acct.RandomHandles[i] = *h
		}
		l.accounts[play.session] = acct
		l.balance -= play.stake
	case claim != nil:
		acct := l.accounts[claim.session]
		acct.Claimed = true
		l.balance += claim.payout
	}

	if l.sendErr != nil {
		return solana.Signature{}, l.sendErr
	}
	return tx.Signature(), nil
}

func (l *fakeLedger) ConfirmTransaction(context.Context, solana.Signature) error {
	return l.confirmErr
}

func (l *fakeLedger) GetAccountInfo(_ context.Context, addr solana.PublicKey) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[addr]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return acct.MarshalBinary()
}

func (l *fakeLedger) GetBalance(context.Context, solana.PublicKey) (uint64, error) {
	l.mu.Lock()
	hold := l.holdBalance
	l.holdBalance = nil
	l.mu.Unlock()
	if hold != nil {
		hold <- struct{}{}
		<-hold
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, nil
}

func (l *fakeLedger) sentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

func (l *fakeLedger) markClaimed(session solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[session].Claimed = true
}

// fakeInco checks signatures like the real network and serves plaintexts by handle.
type fakeInco struct {
	plaintexts map[domain.Handle]string
	failing    map[domain.Handle]error
	nonce      int
	decrypts   int
	mu         sync.Mutex
}

func newFakeInco() *fakeInco {
	return &fakeInco{
		plaintexts: make(map[domain.Handle]string),
		failing:    make(map[domain.Handle]error),
	}
}

func (f *fakeInco) Encrypt(_ context.Context, value uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64([]byte{0xe0}, value), nil
}

func (f *fakeInco) NewRequest(handles []domain.Handle, address solana.PublicKey) inco.DecryptRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce++
	return inco.DecryptRequest{
		Handles: append([]domain.Handle(nil), handles...),
		Address: address,
		Nonce:   fmt.Sprintf("nonce-%d", f.nonce),
	}
}

func (f *fakeInco) Decrypt(_ context.Context, req inco.DecryptRequest, signature []byte) (*inco.DecryptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrypts++

	if !wallet.Verify(req.Address, req.Message(), signature) {
		return nil, inco.ErrSignatureInvalid
	}
	out := &inco.DecryptResult{Handles: req.Handles}
	for _, h := range req.Handles {
		if err := f.failing[h]; err != nil {
			return nil, err
		}
		p, ok := f.plaintexts[h]
		if !ok {
			return nil, inco.ErrNotAllowed
		}
		out.Plaintexts = append(out.Plaintexts, p)
		le := h.LE16()
		out.ProofInstructions = append(out.ProofInstructions, solana.Instruction{
			ProgramID: solana.Ed25519ProgramID,
			Data:      append([]byte{1, 0}, le[:]...),
		})
	}
	return out, nil
}

func (f *fakeInco) set(h *domain.Handle, value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plaintexts[*h] = fmt.Sprint(value)
}

func (f *fakeInco) fail(h *domain.Handle, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failing, *h)
		return
	}
	f.failing[*h] = err
}

type recordingNotifier struct {
	events []SessionEvent
	mu     sync.Mutex
}

func (n *recordingNotifier) Notify(_ solana.PublicKey, ev SessionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	ledger   *fakeLedger
	inco     *fakeInco
	store    *MemoryStore
	notifier *recordingNotifier
	svc      *WagerService
	player   *wallet.Keypair
	seed     uint64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	program := casino.DefaultProgram()
	player, err := wallet.GenerateKeypair()
	require.NoError(t, err)

	env := &testEnv{
		ledger:   newFakeLedger(program),
		inco:     newFakeInco(),
		store:    NewMemoryStore(),
		notifier: &recordingNotifier{},
		player:   player,
		seed:     40,
	}
	env.svc = env.newService()
	return env
}

func (e *testEnv) newService() *WagerService {
	svc := NewWagerService(WagerDeps{
		Program:  e.ledger.program,
		Ledger:   e.ledger,
		Inco:     e.inco,
		Store:    e.store,
		Notifier: e.notifier,
		Limits:   DefaultWagerLimits,
	})
	svc.newSeed = func() (uint64, error) {
		e.seed++
		return e.seed, nil
	}
	return svc
}

// outcome sets the plaintexts the network returns for sess.
func (e *testEnv) outcome(t *testing.T, id solana.PublicKey, payout uint64, results ...uint64) {
	t.Helper()
	snap, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, snap.PayoutHandle)
	require.Len(t, snap.ResultHandles, len(results))
	e.inco.set(snap.PayoutHandle, payout)
	for i, h := range snap.ResultHandles {
		e.inco.set(h, results[i])
	}
}

var errBoom = errors.New("boom")
