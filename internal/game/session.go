package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"
)

var (
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrOperationPending = errors.New("another operation is in flight")
	ErrProofRequired    = errors.New("claim proof missing, reveal again")
	ErrOutcomeMismatch  = errors.New("revealed outcome differs from recorded outcome")
	ErrHandlesMissing   = errors.New("result handles missing")
)

// Session is one wager moving through
// betting → submitting → awaiting_reveal → revealing → settled → claimable → claimed,
// with failed reachable from every transient step.
type Session struct {
	strategy Strategy
	data     domain.WagerSession
	record   *domain.TransactionRecord
	proof    []solana.Instruction
	claiming bool
	mu       sync.RWMutex
}

// NewSession validates the choice and stake and starts in betting.
func NewSession(strategy Strategy, player solana.PublicKey, stake, choice uint64) (*Session, error) {
	if stake == 0 {
		return nil, errors.New("stake must be positive")
	}
	if err := strategy.ValidateChoice(choice); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Session{
		strategy: strategy,
		data: domain.WagerSession{
			Kind:      strategy.Kind(),
			Player:    player,
			Stake:     stake,
			Choice:    choice,
			State:     domain.StateBetting,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}, nil
}

// Restore rebuilds a session from its persisted form. Proofs are never
// persisted, so a restored claimable session needs a fresh reveal before claiming.
func Restore(strategy Strategy, data domain.WagerSession) *Session {
	if data.State == domain.StateSubmitting || data.State == domain.StateRevealing {
		// the process died mid-operation
		data.FailedFrom = data.State
		data.State = domain.StateFailed
		data.LastError = "interrupted"
		if data.FailedFrom == domain.StateRevealing || data.PayoutHandle != nil {
			data.FailedFrom = domain.StateRevealing
		}
	}
	return &Session{strategy: strategy, data: data}
}

func (s *Session) ID() solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ID
}

func (s *Session) Player() solana.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Player
}

func (s *Session) Kind() domain.GameKind { return s.strategy.Kind() }

func (s *Session) Strategy() Strategy { return s.strategy }

func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.State
}

// IsActive is true while the wager is unresolved.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.data.State {
	case domain.StateSubmitting, domain.StateAwaitingReveal, domain.StateRevealing:
		return true
	}
	return false
}

// InFlight is true while an operation owns the session.
func (s *Session) InFlight() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight()
}

func (s *Session) inFlight() bool {
	return s.data.State == domain.StateSubmitting || s.data.State == domain.StateRevealing || s.claiming
}

// Snapshot returns a copy of the persisted form, outcome included.
func (s *Session) Snapshot() domain.WagerSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.data
	out.ResultHandles = append([]*domain.Handle(nil), s.data.ResultHandles...)
	if s.data.Outcome != nil {
		o := *s.data.Outcome
		o.ProofInstructions = nil
		out.Outcome = &o
	}
	return out
}

// Record returns the in-memory transaction record while one exists.
func (s *Session) Record() *domain.TransactionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// Abandoned is set once the player gave up the active slot for this wager.
func (s *Session) Abandoned() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Abandoned
}

// Abandon detaches an unrevealed wager from the player. The stake stays on
// the ledger and the wager can still be revealed later.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(domain.StateAwaitingReveal); err != nil {
		return err
	}
	s.data.Abandoned = true
	s.touch()
	return nil
}

func (s *Session) HasProof() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proof) > 0
}

func (s *Session) guard(allowed ...domain.SessionState) error {
	if s.inFlight() {
		return fmt.Errorf("%w: session is %s", ErrOperationPending, s.data.State)
	}
	for _, st := range allowed {
		if s.data.State == st {
			return nil
		}
	}
	return fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
}

func (s *Session) touch() { s.data.UpdatedAt = time.Now().UTC() }

func (s *Session) fail(from domain.SessionState, err error) {
	s.data.State = domain.StateFailed
	s.data.FailedFrom = from
	if err != nil {
		s.data.LastError = err.Error()
	}
	s.touch()
}

// BeginSubmit binds the session to its ledger address and seed.
func (s *Session) BeginSubmit(id solana.PublicKey, seed uint64, encryptedChoice []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(domain.StateBetting); err != nil {
		return err
	}
	s.data.ID = id
	s.data.Seed = seed
	s.data.EncryptedChoice = encryptedChoice
	s.data.State = domain.StateSubmitting
	s.touch()
	return nil
}

// SubmitSucceeded fixes the handles. The executed handles in rec are used
// when present; otherwise the simulated ones.
func (s *Session) SubmitSucceeded(rec domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State != domain.StateSubmitting {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
	}
	return s.bindHandles(rec)
}

func (s *Session) bindHandles(rec domain.TransactionRecord) error {
	payout, results := rec.ExecutedPayout, rec.ExecutedResults
	if payout == nil {
		payout, results = rec.SimulatedPayout, rec.SimulatedResults
	}
	if payout == nil || len(results) != s.strategy.ResultSlots() {
		s.fail(domain.StateSubmitting, ErrHandlesMissing)
		return ErrHandlesMissing
	}

	s.record = &rec
	s.data.PayoutHandle = payout
	s.data.ResultHandles = append([]*domain.Handle(nil), results...)
	if !rec.Signature.IsZero() {
		s.data.TxSignature = rec.Signature
	}
	s.data.State = domain.StateAwaitingReveal
	s.data.FailedFrom = ""
	s.data.LastError = ""
	s.touch()
	return nil
}

// SubmitUnconfirmed marks a wager whose transaction went out but was never
// confirmed. The address and seed stay bound so Reconcile can pick it up.
func (s *Session) SubmitUnconfirmed(sig solana.Signature, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State != domain.StateSubmitting {
		return
	}
	s.data.TxSignature = sig
	s.fail(domain.StateSubmitting, err)
}

func (s *Session) Unconfirmed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Unconfirmed()
}

// Reconcile binds the handles of an unconfirmed wager that was found on the
// ledger afterwards.
func (s *Session) Reconcile(rec domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.data.Unconfirmed() {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
	}
	return s.bindHandles(rec)
}

func (s *Session) SubmitFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State == domain.StateSubmitting || s.data.State == domain.StateBetting {
		s.fail(domain.StateSubmitting, err)
	}
}

func (s *Session) revealable() error {
	if s.inFlight() {
		return fmt.Errorf("%w: session is %s", ErrOperationPending, s.data.State)
	}
	switch s.data.State {
	case domain.StateAwaitingReveal, domain.StateSettled, domain.StateClaimable:
		return nil
	case domain.StateFailed:
		if s.data.FailedFrom == domain.StateRevealing || s.data.FailedFrom == domain.StateClaimable {
			return nil
		}
	}
	return fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
}

// RevealHandles returns payout then result handles, checking the session can be revealed.
func (s *Session) RevealHandles() ([]domain.Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.revealable(); err != nil {
		return nil, err
	}
	return s.revealHandles()
}

func (s *Session) revealHandles() ([]domain.Handle, error) {
	hs := s.data.RevealHandles()
	if s.data.PayoutHandle == nil || len(hs) != 1+s.strategy.ResultSlots() {
		return nil, ErrHandlesMissing
	}
	return hs, nil
}

// BeginReveal moves to revealing and returns the handles to decrypt.
func (s *Session) BeginReveal() ([]domain.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.revealable(); err != nil {
		return nil, err
	}
	hs, err := s.revealHandles()
	if err != nil {
		return nil, err
	}
	s.data.State = domain.StateRevealing
	s.touch()
	return hs, nil
}

// RevealSucceeded records the decrypted values. A repeated reveal must agree
// with the stored outcome.
func (s *Session) RevealSucceeded(payout uint64, rawResults []uint64, proof []solana.Instruction) (*domain.RevealedOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State != domain.StateRevealing {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
	}

	results := s.strategy.Normalize(rawResults)
	outcome := &domain.RevealedOutcome{
		Results:    results,
		Payout:     payout,
		IsWin:      payout > 0,
		RevealedAt: time.Now().UTC(),
	}

	if prev := s.data.Outcome; prev != nil {
		if prev.Payout != payout || !equalResults(prev.Results, results) {
			s.fail(domain.StateRevealing, ErrOutcomeMismatch)
			return nil, ErrOutcomeMismatch
		}
		outcome.RevealedAt = prev.RevealedAt
	}

	s.data.Outcome = outcome
	s.proof = proof
	s.record = nil
	s.data.LastError = ""
	s.data.FailedFrom = ""
	s.data.State = domain.StateSettled
	if payout > 0 && !s.data.Claimed {
		s.data.State = domain.StateClaimable
	}
	if s.data.Claimed {
		s.data.State = domain.StateClaimed
	}
	s.touch()

	out := *outcome
	out.ProofInstructions = proof
	return &out, nil
}

func (s *Session) RevealFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.State == domain.StateRevealing {
		s.fail(domain.StateRevealing, err)
	}
}

// ClaimTicket is what the claim transaction needs.
type ClaimTicket struct {
	SessionID    solana.PublicKey
	PayoutHandle domain.Handle
	Payout       uint64
	Proof        []solana.Instruction
}

// BeginClaim reserves the session for a claim. Allowed from claimable, or
// from a failed claim that still holds its proof.
func (s *Session) BeginClaim() (*ClaimTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight() {
		return nil, fmt.Errorf("%w: session is %s", ErrOperationPending, s.data.State)
	}
	ok := s.data.State == domain.StateClaimable ||
		(s.data.State == domain.StateFailed && s.data.FailedFrom == domain.StateClaimable)
	if !ok || s.data.Outcome == nil || s.data.PayoutHandle == nil {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, s.data.State)
	}
	if len(s.proof) == 0 {
		return nil, ErrProofRequired
	}
	s.claiming = true
	return &ClaimTicket{
		SessionID:    s.data.ID,
		PayoutHandle: *s.data.PayoutHandle,
		Payout:       s.data.Outcome.Payout,
		Proof:        s.proof,
	}, nil
}

func (s *Session) ClaimSucceeded(receipt domain.ClaimReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claiming = false
	s.markClaimed()
	s.data.Claim = &receipt
}

// MarkClaimed records a claim the ledger already holds.
func (s *Session) MarkClaimed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claiming = false
	s.markClaimed()
}

func (s *Session) markClaimed() {
	s.data.Claimed = true
	s.data.State = domain.StateClaimed
	s.data.FailedFrom = ""
	s.data.LastError = ""
	s.proof = nil
	s.record = nil
	s.touch()
}

// ClaimFailed records the failure. dropProof forces a re-reveal before retrying.
func (s *Session) ClaimFailed(err error, dropProof bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claiming = false
	if dropProof {
		s.proof = nil
	}
	s.fail(domain.StateClaimable, err)
}

// View is the client-facing form. Nothing about the outcome is present
// before the session is settled.
type View struct {
	ID            string               `json:"id"`
	Kind          domain.GameKind      `json:"kind"`
	Player        string               `json:"player"`
	Stake         uint64               `json:"stake"`
	StakeSOL      string               `json:"stake_sol"`
	Choice        *uint64              `json:"choice,omitempty"`
	State         domain.SessionState  `json:"state"`
	FailedFrom    domain.SessionState  `json:"failed_from,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
	PayoutHandle  *domain.Handle       `json:"payout_handle,omitempty"`
	ResultHandles []*domain.Handle     `json:"result_handles,omitempty"`
	TxSignature   string               `json:"tx_signature,omitempty"`
	Outcome       *OutcomeView         `json:"outcome,omitempty"`
	Claim         *domain.ClaimReceipt `json:"claim,omitempty"`
	Claimed       bool                 `json:"claimed"`
	Abandoned     bool                 `json:"abandoned,omitempty"`
	CanClaim      bool                 `json:"can_claim"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type OutcomeView struct {
	Results     []uint64 `json:"results"`
	Description string   `json:"description"`
	Payout      uint64   `json:"payout"`
	PayoutSOL   string   `json:"payout_sol"`
	IsWin       bool     `json:"is_win"`
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := View{
		ID:            s.data.ID.String(),
		Kind:          s.data.Kind,
		Player:        s.data.Player.String(),
		Stake:         s.data.Stake,
		StakeSOL:      solana.FormatSOL(s.data.Stake),
		State:         s.data.State,
		FailedFrom:    s.data.FailedFrom,
		LastError:     s.data.LastError,
		PayoutHandle:  s.data.PayoutHandle,
		ResultHandles: s.data.ResultHandles,
		Claimed:       s.data.Claimed,
		Abandoned:     s.data.Abandoned,
		Claim:         s.data.Claim,
		CanClaim:      s.data.State == domain.StateClaimable && len(s.proof) > 0,
		CreatedAt:     s.data.CreatedAt,
		UpdatedAt:     s.data.UpdatedAt,
	}
	if s.strategy.HasChoice() {
		c := s.data.Choice
		v.Choice = &c
	}
	if !s.data.TxSignature.IsZero() {
		v.TxSignature = s.data.TxSignature.String()
	}

	// Outcome is only ever set by a successful reveal
	if s.data.Outcome != nil {
		o := s.data.Outcome
		v.Outcome = &OutcomeView{
			Results:     o.Results,
			Description: s.strategy.Describe(s.data.Choice, o.Results),
			Payout:      o.Payout,
			PayoutSOL:   solana.FormatSOL(o.Payout),
			IsWin:       o.IsWin,
		}
	}
	return v
}

func equalResults(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
