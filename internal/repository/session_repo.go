package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/solana"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists wager sessions in Postgres
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, kind, player, seed, stake, choice, payout_handle, result_handles,
	claimed, abandoned, state, failed_from, last_error, outcome, claim, tx_signature, created_at, updated_at`

// Save upserts the session keyed by its ledger address
func (r *SessionRepository) Save(ctx context.Context, s domain.WagerSession) error {
	var payout *string
	if s.PayoutHandle != nil {
		p := s.PayoutHandle.String()
		payout = &p
	}
	// absent handles are stored as empty strings to keep slot positions
	results := make([]string, len(s.ResultHandles))
	for i, h := range s.ResultHandles {
		if h != nil {
			results[i] = h.String()
		}
	}

	outcomeJSON, err := nullableJSON(s.Outcome)
	if err != nil {
		return err
	}
	claimJSON, err := nullableJSON(s.Claim)
	if err != nil {
		return err
	}

	var sig string
	if !s.TxSignature.IsZero() {
		sig = s.TxSignature.String()
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO wager_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			payout_handle = EXCLUDED.payout_handle,
			result_handles = EXCLUDED.result_handles,
			claimed = EXCLUDED.claimed,
			abandoned = EXCLUDED.abandoned,
			state = EXCLUDED.state,
			failed_from = EXCLUDED.failed_from,
			last_error = EXCLUDED.last_error,
			outcome = EXCLUDED.outcome,
			claim = EXCLUDED.claim,
			tx_signature = EXCLUDED.tx_signature,
			updated_at = EXCLUDED.updated_at
	`,
		s.ID.String(),
		string(s.Kind),
		s.Player.String(),
		int64(s.Seed), // u64 bit pattern
		int64(s.Stake),
		int64(s.Choice),
		payout,
		results,
		s.Claimed,
		s.Abandoned,
		string(s.State),
		string(s.FailedFrom),
		s.LastError,
		outcomeJSON,
		claimJSON,
		sig,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id solana.PublicKey) (*domain.WagerSession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM wager_sessions WHERE id = $1`, id.String())
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	return s, err
}

// List returns the player's newest sessions
func (r *SessionRepository) List(ctx context.Context, player solana.PublicKey, limit int) ([]domain.WagerSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM wager_sessions
		WHERE player = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, player.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListOpen returns sessions that can still be revealed or claimed
func (r *SessionRepository) ListOpen(ctx context.Context, player solana.PublicKey) ([]domain.WagerSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM wager_sessions
		WHERE player = $1
		  AND (state IN ('awaiting_reveal', 'revealing', 'claimable')
		       OR (state = 'failed' AND failed_from IN ('submitting', 'revealing', 'claimable')))
		ORDER BY created_at DESC
	`, player.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func nullableJSON(v any) ([]byte, error) {
	switch x := v.(type) {
	case *domain.RevealedOutcome:
		if x == nil {
			return nil, nil
		}
	case *domain.ClaimReceipt:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func scanSessions(rows pgx.Rows) ([]domain.WagerSession, error) {
	var out []domain.WagerSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSession(row pgx.Row) (*domain.WagerSession, error) {
	var (
		s                        domain.WagerSession
		id, kind, player         string
		seed, stake, choice      int64
		payout                   *string
		results                  []string
		state, failedFrom, txSig string
		outcomeJSON, claimJSON   []byte
	)
	err := row.Scan(&id, &kind, &player, &seed, &stake, &choice, &payout, &results,
		&s.Claimed, &s.Abandoned, &state, &failedFrom, &s.LastError, &outcomeJSON, &claimJSON, &txSig,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if s.ID, err = solana.PublicKeyFromBase58(id); err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	if s.Player, err = solana.PublicKeyFromBase58(player); err != nil {
		return nil, fmt.Errorf("session player: %w", err)
	}
	s.Kind = domain.GameKind(kind)
	s.Seed = uint64(seed)
	s.Stake = uint64(stake)
	s.Choice = uint64(choice)
	s.State = domain.SessionState(state)
	s.FailedFrom = domain.SessionState(failedFrom)

	if payout != nil {
		h, err := domain.ParseHandle(*payout)
		if err != nil {
			return nil, err
		}
		s.PayoutHandle = &h
	}
	s.ResultHandles = make([]*domain.Handle, len(results))
	for i, raw := range results {
		if raw == "" {
			continue
		}
		h, err := domain.ParseHandle(raw)
		if err != nil {
			return nil, err
		}
		s.ResultHandles[i] = &h
	}

	if len(outcomeJSON) > 0 {
		s.Outcome = &domain.RevealedOutcome{}
		if err := json.Unmarshal(outcomeJSON, s.Outcome); err != nil {
			return nil, fmt.Errorf("session outcome: %w", err)
		}
	}
	if len(claimJSON) > 0 {
		s.Claim = &domain.ClaimReceipt{}
		if err := json.Unmarshal(claimJSON, s.Claim); err != nil {
			return nil, fmt.Errorf("session claim: %w", err)
		}
	}
	if txSig != "" {
		if s.TxSignature, err = solana.SignatureFromBase58(txSig); err != nil {
			return nil, fmt.Errorf("session signature: %w", err)
		}
	}
	return &s, nil
}
