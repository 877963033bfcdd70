package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/domain"
	"confidential_casino/internal/game"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"
)

// WagerLimits are the client-side stake bounds, in lamports.
type WagerLimits struct {
	MinStake uint64
	MaxStake uint64
}

// DefaultWagerLimits mirrors the program's own bounds.
var DefaultWagerLimits = WagerLimits{
	MinStake: casino.MinBetLamports,
	MaxStake: casino.MaxBetLamports,
}

func (l WagerLimits) ValidateStake(stake uint64) error {
	if stake == 0 {
		return fmt.Errorf("%w: stake must be positive", ErrValidation)
	}
	if l.MinStake > 0 && stake < l.MinStake {
		return fmt.Errorf("%w: minimum stake is %s SOL", ErrValidation, solana.FormatSOL(l.MinStake))
	}
	if l.MaxStake > 0 && stake > l.MaxStake {
		return fmt.Errorf("%w: maximum stake is %s SOL", ErrValidation, solana.FormatSOL(l.MaxStake))
	}
	return nil
}

// Encryptor turns a wager choice into a ciphertext the program accepts.
type Encryptor interface {
	Encrypt(ctx context.Context, value uint64) ([]byte, error)
}

// RevealChallenge is one message the player must sign to reveal a handle.
type RevealChallenge struct {
	Handle  domain.Handle `json:"handle"`
	Nonce   string        `json:"nonce"`
	Message string        `json:"message"`
}

// IncoClient is the confidential-compute API: encryption of choices and
// decryption of results.
type IncoClient interface {
	Encryptor
	Decryptor
}

// WagerDeps wires a WagerService. Store, Challenges and Notifier fall back
// to in-memory or no-op versions when nil.
type WagerDeps struct {
	Program      *casino.Program
	Ledger       Ledger
	Inco         IncoClient
	Store        SessionStore
	Challenges   ChallengeStore
	Notifier     Notifier
	Audit        *AuditService
	Limits       WagerLimits
	ChallengeTTL time.Duration
}

// WagerService drives wagers from submission to claim. A player has at
// most one active wager unless they abandon it.
type WagerService struct {
	program    *casino.Program
	ledger     Ledger
	executor   *Executor
	reveals    *RevealService
	claims     *ClaimService
	encryptor  Encryptor
	factory    *game.Factory
	store      SessionStore
	challenges ChallengeStore
	notifier   Notifier
	audit      *AuditService
	limits     WagerLimits
	ttl        time.Duration
	newSeed    func() (uint64, error)

	sessions map[solana.PublicKey]*game.Session // by session address
	active   map[solana.PublicKey]*game.Session // by player
	pending  map[solana.PublicKey]uint64        // stake of in-flight submits
	hydrated map[solana.PublicKey]bool
	mu       sync.RWMutex
}

func NewWagerService(d WagerDeps) *WagerService {
	if d.Program == nil {
		d.Program = casino.DefaultProgram()
	}
	if d.Store == nil {
		d.Store = NewMemoryStore()
	}
	if d.Challenges == nil {
		d.Challenges = NewMemoryChallengeStore()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.ChallengeTTL <= 0 {
		d.ChallengeTTL = 5 * time.Minute
	}

	executor := NewExecutor(d.Ledger, d.Program)
	return &WagerService{
		program:    d.Program,
		ledger:     d.Ledger,
		executor:   executor,
		reveals:    NewRevealService(d.Inco),
		claims:     NewClaimService(executor, d.Program),
		encryptor:  d.Inco,
		factory:    game.NewFactory(),
		store:      d.Store,
		challenges: d.Challenges,
		notifier:   d.Notifier,
		audit:      d.Audit,
		limits:     d.Limits,
		ttl:        d.ChallengeTTL,
		newSeed:    randomSeed,
		sessions:   make(map[solana.PublicKey]*game.Session),
		active:     make(map[solana.PublicKey]*game.Session),
		pending:    make(map[solana.PublicKey]uint64),
		hydrated:   make(map[solana.PublicKey]bool),
	}
}

func randomSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Factory exposes the game strategies for display purposes.
func (s *WagerService) Factory() *game.Factory { return s.factory }

func (s *WagerService) Limits() WagerLimits { return s.limits }

// Submit validates, simulates and executes a wager. On any failure before
// the ledger commits, nothing is left behind. A wager that was sent but not
// confirmed is kept and returned with ErrUnconfirmed; Recheck resolves it.
func (s *WagerService) Submit(ctx context.Context, signer solana.Signer, kind domain.GameKind, choice, stake uint64) (*game.Session, error) {
	player := signer.PublicKey()
	log := logger.WithContext(ctx).With("player", player.String(), "kind", kind)

	strategy, err := s.factory.Strategy(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.limits.ValidateStake(stake); err != nil {
		return nil, err
	}
	sess, err := game.NewSession(strategy, player, stake, choice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.hydrate(ctx, player); err != nil {
		log.Warn("failed to load open wagers", "error", err)
	}

	// reserve the player's slot and stake; a submit still in betting holds pending stake
	s.mu.Lock()
	cur := s.active[player]
	if s.pending[player] > 0 || (cur != nil && cur.IsActive() && !cur.Abandoned()) {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.active[player] = sess
	s.pending[player] += stake
	reserved := s.pending[player]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending[player] -= stake
		if s.pending[player] == 0 {
			delete(s.pending, player)
		}
		s.mu.Unlock()
	}()

	if err := s.submit(ctx, sess, signer, strategy, reserved-stake); err != nil {
		s.mu.Lock()
		if s.active[player] == sess {
			delete(s.active, player)
		}
		s.mu.Unlock()

		sess.SubmitFailed(err)
		WagersSubmitted.WithLabelValues(string(kind), "error").Inc()
		log.Warn("wager submission failed", "error", err)
		var sid string
		if errors.Is(err, ErrUnconfirmed) {
			sid = sess.ID().String()
		}
		s.audit.LogWager(ctx, player.String(), sid, domain.AuditActionFail, map[string]interface{}{
			"stage": "submit",
			"kind":  string(kind),
			"stake": stake,
			"error": err.Error(),
		})
		if errors.Is(err, ErrUnconfirmed) {
			return sess, err
		}
		return nil, err
	}

	id := sess.ID()
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.persist(ctx, sess)
	s.notify(sess, EventSubmitted)
	WagersSubmitted.WithLabelValues(string(kind), "ok").Inc()
	s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionSubmit, map[string]interface{}{
		"kind":      string(kind),
		"stake":     stake,
		"signature": sess.Snapshot().TxSignature.String(),
	})
	log.Info("wager submitted", "session", id.String(), "stake", stake)
	return sess, nil
}

func (s *WagerService) submit(ctx context.Context, sess *game.Session, signer solana.Signer, strategy game.Strategy, otherPending uint64) error {
	player := signer.PublicKey()
	snap := sess.Snapshot()

	balance, err := s.ledger.GetBalance(ctx, player)
	if err != nil {
		return fmt.Errorf("%w: balance: %v", ErrSimulationRejected, err)
	}
	var available uint64
	if balance > otherPending {
		available = balance - otherPending
	}
	if snap.Stake > available {
		return fmt.Errorf("%w: %w: have %s SOL", ErrValidation, ErrInsufficientFunds, solana.FormatSOL(available))
	}

	seed, err := s.newSeed()
	if err != nil {
		return err
	}

	var encrypted []byte
	if strategy.HasChoice() {
		encrypted, err = s.encryptor.Encrypt(ctx, snap.Choice)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEncryptUnavailable, err)
		}
	}

	id := s.program.SessionAddress(strategy.Kind(), player, seed)
	if err := sess.BeginSubmit(id, seed, encrypted); err != nil {
		return err
	}

	sim, err := s.executor.Simulate(ctx, Intent{
		Kind:            strategy.Kind(),
		Signer:          signer,
		Seed:            seed,
		EncryptedChoice: encrypted,
		Stake:           snap.Stake,
	})
	if err != nil {
		return err
	}

	perms := s.program.BuildPermissionAccounts(sim.Handles.Payout, sim.Handles.Results, player)
	receipt, err := s.executor.Execute(ctx, sim, perms)
	if errors.Is(err, ErrUnconfirmed) {
		// the stake may still land, keep the bound address and seed
		sess.SubmitUnconfirmed(receipt.Signature, err)
		s.keep(ctx, sess)
		return err
	}
	if err != nil {
		return err
	}
	if err := sess.SubmitSucceeded(receipt.Record()); err != nil {
		// the wager is on the ledger, keep its record
		s.keep(ctx, sess)
		return err
	}
	return nil
}

func (s *WagerService) keep(ctx context.Context, sess *game.Session) {
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	s.persist(ctx, sess)
}

// Recheck looks up a wager whose submission was never confirmed. If it landed,
// its handles are read from the session account and it can be revealed.
func (s *WagerService) Recheck(ctx context.Context, player, id solana.PublicKey) (*game.Session, error) {
	sess, err := s.owned(ctx, player, id)
	if err != nil {
		return nil, err
	}
	if !sess.Unconfirmed() {
		return sess, nil
	}
	snap := sess.Snapshot()

	acct, err := s.executor.GameAccount(ctx, id)
	switch {
	case errors.Is(err, solana.ErrAccountNotFound):
		return sess, ErrNotLanded
	case err != nil:
		return sess, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	case acct.Player != player || acct.Seed != snap.Seed:
		return sess, fmt.Errorf("%w: account belongs to another wager", ErrNotLanded)
	}

	hs := acct.Handles()
	err = sess.Reconcile(domain.TransactionRecord{
		Signature:       snap.TxSignature,
		ExecutedPayout:  hs.Payout,
		ExecutedResults: hs.Results,
		Recovered:       true,
	})
	if err != nil {
		return sess, err
	}

	s.persist(ctx, sess)
	s.notify(sess, EventSubmitted)
	s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionSubmit, map[string]interface{}{
		"kind":      string(sess.Kind()),
		"stake":     snap.Stake,
		"recovered": true,
	})
	logger.WithContext(ctx).Info("unconfirmed wager found on ledger", "session", id.String())
	return sess, nil
}

func revealKey(id solana.PublicKey) string { return "reveal:" + id.String() }

// PrepareReveal issues one message per handle, payout first. The requests
// are kept until Reveal consumes them or the TTL passes.
func (s *WagerService) PrepareReveal(ctx context.Context, player, id solana.PublicKey) ([]RevealChallenge, error) {
	sess, err := s.owned(ctx, player, id)
	if err != nil {
		return nil, err
	}
	hs, err := sess.RevealHandles()
	if err != nil {
		return nil, err
	}

	reqs := s.reveals.Prepare(hs, player)
	raw, err := json.Marshal(reqs)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Put(ctx, revealKey(id), raw, s.ttl); err != nil {
		return nil, err
	}

	out := make([]RevealChallenge, len(reqs))
	for i, r := range reqs {
		out[i] = RevealChallenge{Handle: r.Handles[0], Nonce: r.Nonce, Message: string(r.Message())}
	}
	return out, nil
}

// Reveal decrypts the wager's handles with the player's signatures and
// settles it. Prepared challenges are used when present.
func (s *WagerService) Reveal(ctx context.Context, player, id solana.PublicKey, sign inco.SignFunc) (*game.Session, error) {
	sess, err := s.owned(ctx, player, id)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx).With("session", id.String(), "kind", sess.Kind())

	if sess.Unconfirmed() {
		if _, err := s.Recheck(ctx, player, id); err != nil {
			return sess, err
		}
	}

	hs, err := sess.BeginReveal()
	if err != nil {
		return nil, err
	}

	reqs, err := s.takeChallenges(ctx, id, hs)
	if err != nil {
		log.Debug("no usable prepared reveal, preparing fresh", "error", err)
		reqs = s.reveals.Prepare(hs, player)
	}

	outcome, err := s.reveal(ctx, sess, reqs, sign)
	if err != nil {
		sess.RevealFailed(err)
		s.persist(ctx, sess)
		s.notify(sess, EventFailed)
		WagersRevealed.WithLabelValues(string(sess.Kind()), "error").Inc()
		s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionFail, map[string]interface{}{
			"stage": "reveal",
			"error": err.Error(),
		})
		log.Warn("reveal failed", "error", err)
		return sess, err
	}

	s.release(sess)
	s.persist(ctx, sess)
	s.notify(sess, EventRevealed)

	result := "loss"
	if outcome.IsWin {
		result = "win"
	}
	WagersRevealed.WithLabelValues(string(sess.Kind()), result).Inc()
	s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionReveal, map[string]interface{}{
		"payout":  outcome.Payout,
		"results": outcome.Results,
	})
	log.Info("wager revealed", "payout", outcome.Payout, "win", outcome.IsWin)
	return sess, nil
}

func (s *WagerService) reveal(ctx context.Context, sess *game.Session, reqs []inco.DecryptRequest, sign inco.SignFunc) (*domain.RevealedOutcome, error) {
	results, err := s.reveals.Reveal(ctx, reqs, sign)
	if err != nil {
		return nil, err
	}
	payout, values, proof, err := Plaintexts(results)
	if err != nil {
		return nil, err
	}
	return sess.RevealSucceeded(payout, values, proof)
}

// takeChallenges returns the prepared requests if they cover exactly hs.
func (s *WagerService) takeChallenges(ctx context.Context, id solana.PublicKey, hs []domain.Handle) ([]inco.DecryptRequest, error) {
	raw, err := s.challenges.Take(ctx, revealKey(id))
	if err != nil {
		return nil, err
	}
	var reqs []inco.DecryptRequest
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, err
	}
	if len(reqs) != len(hs) {
		return nil, errors.New("prepared reveal does not match handles")
	}
	for i, r := range reqs {
		if len(r.Handles) != 1 || !r.Handles[0].Equal(hs[i]) {
			return nil, errors.New("prepared reveal does not match handles")
		}
	}
	return reqs, nil
}

// Claim pays out a revealed win. A claim the ledger already holds is
// reported as ErrAlreadyClaimed together with the stored receipt, if any.
func (s *WagerService) Claim(ctx context.Context, signer solana.Signer, id solana.PublicKey) (*domain.ClaimReceipt, error) {
	player := signer.PublicKey()
	sess, err := s.owned(ctx, player, id)
	if err != nil {
		return nil, err
	}
	log := logger.WithContext(ctx).With("session", id.String())

	snap := sess.Snapshot()
	if snap.Claimed {
		return snap.Claim, ErrAlreadyClaimed
	}
	if snap.Outcome != nil && snap.Outcome.Payout == 0 {
		return nil, ErrNothingToClaim
	}

	ticket, err := sess.BeginClaim()
	if err != nil {
		return nil, err
	}

	receipt, err := s.claims.Claim(ctx, signer, ClaimRequest{
		Session:      ticket.SessionID,
		PayoutHandle: ticket.PayoutHandle,
		Payout:       ticket.Payout,
		Proof:        ticket.Proof,
	})
	switch {
	case errors.Is(err, ErrAlreadyClaimed):
		sess.MarkClaimed()
		s.settle(ctx, sess)
		s.notify(sess, EventClaimed)
		WagersClaimed.WithLabelValues("already_claimed").Inc()
		log.Info("claim already on ledger")
		return nil, ErrAlreadyClaimed
	case err != nil:
		sess.ClaimFailed(err, proofRejected(err))
		s.persist(ctx, sess)
		s.notify(sess, EventFailed)
		WagersClaimed.WithLabelValues("error").Inc()
		s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionFail, map[string]interface{}{
			"stage": "claim",
			"error": err.Error(),
		})
		log.Warn("claim failed", "error", err)
		return nil, err
	}

	sess.ClaimSucceeded(*receipt)
	s.settle(ctx, sess)
	s.notify(sess, EventClaimed)
	WagersClaimed.WithLabelValues("ok").Inc()
	s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionClaim, map[string]interface{}{
		"amount":    receipt.Amount,
		"signature": receipt.Signature.String(),
	})
	return receipt, nil
}

// Get returns one of the player's wagers.
func (s *WagerService) Get(ctx context.Context, player, id solana.PublicKey) (*game.Session, error) {
	return s.owned(ctx, player, id)
}

// List returns the player's recent wagers, newest first.
func (s *WagerService) List(ctx context.Context, player solana.PublicKey, limit int) ([]game.View, error) {
	rows, err := s.store.List(ctx, player, limit)
	if err != nil {
		return nil, err
	}
	out := make([]game.View, 0, len(rows))
	for _, row := range rows {
		sess, err := s.adopt(row)
		if err != nil {
			continue
		}
		out = append(out, sess.View())
	}
	return out, nil
}

// ListOpen returns wagers that still need a reveal or a claim, so they can
// be resumed after a restart.
func (s *WagerService) ListOpen(ctx context.Context, player solana.PublicKey) ([]*game.Session, error) {
	rows, err := s.store.ListOpen(ctx, player)
	if err != nil {
		return nil, err
	}
	out := make([]*game.Session, 0, len(rows))
	for _, row := range rows {
		sess, err := s.adopt(row)
		if err != nil {
			logger.Warn("skipping unreadable wager", "session", row.ID.String(), "error", err)
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// Abandon frees the player's active slot. The wager stays on the ledger and
// can still be revealed through ListOpen.
func (s *WagerService) Abandon(ctx context.Context, player, id solana.PublicKey) error {
	sess, err := s.owned(ctx, player, id)
	if err != nil {
		return err
	}
	if err := sess.Abandon(); err != nil {
		return err
	}
	s.release(sess)
	s.persist(ctx, sess)
	s.notify(sess, EventAbandoned)
	s.audit.LogWager(ctx, player.String(), id.String(), domain.AuditActionAbandon, nil)
	return nil
}

// owned loads a session and checks it belongs to player.
func (s *WagerService) owned(ctx context.Context, player, id solana.PublicKey) (*game.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		row, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess, err = s.adopt(*row); err != nil {
			return nil, err
		}
	}
	if sess.Player() != player {
		return nil, ErrNotOwner
	}
	return sess, nil
}

// adopt returns the cached session for row, restoring it if needed.
func (s *WagerService) adopt(row domain.WagerSession) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[row.ID]; ok {
		return sess, nil
	}
	strategy, err := s.factory.Strategy(row.Kind)
	if err != nil {
		return nil, err
	}
	sess := game.Restore(strategy, row)
	s.sessions[row.ID] = sess
	if sess.IsActive() && !sess.Abandoned() && s.active[row.Player] == nil {
		s.active[row.Player] = sess
	}
	return sess, nil
}

// hydrate loads the player's open wagers once, so the active slot survives restarts.
func (s *WagerService) hydrate(ctx context.Context, player solana.PublicKey) error {
	s.mu.RLock()
	done := s.hydrated[player]
	s.mu.RUnlock()
	if done {
		return nil
	}
	if _, err := s.ListOpen(ctx, player); err != nil {
		return err
	}
	s.mu.Lock()
	s.hydrated[player] = true
	s.mu.Unlock()
	return nil
}

// release drops sess from the player's active slot.
func (s *WagerService) release(sess *game.Session) {
	player := sess.Player()
	s.mu.Lock()
	if s.active[player] == sess {
		delete(s.active, player)
	}
	s.mu.Unlock()
}

// settle persists a terminal session and drops it from memory.
func (s *WagerService) settle(ctx context.Context, sess *game.Session) {
	if !s.persist(ctx, sess) {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
}

func (s *WagerService) persist(ctx context.Context, sess *game.Session) bool {
	if err := s.store.Save(ctx, sess.Snapshot()); err != nil {
		logger.WithContext(ctx).Error("failed to persist wager", "session", sess.ID().String(), "error", err)
		return false
	}
	return true
}

func (s *WagerService) notify(sess *game.Session, eventType string) {
	s.notifier.Notify(sess.Player(), SessionEvent{Type: eventType, Session: sess.View()})
}
