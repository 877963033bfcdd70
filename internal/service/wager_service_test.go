package service

import (
	"context"
	"encoding/json"
	"testing"

	"confidential_casino/internal/casino"
	"confidential_casino/internal/domain"
	"confidential_casino/internal/game"
	"confidential_casino/internal/inco"
	"confidential_casino/internal/solana"
	"confidential_casino/internal/wallet"

	"github.com/stretchr/testify/require"
)

const stake = 10_000_000

func TestCoinflipWinAndDoubleClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, game.CoinHeads, stake)
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingReveal, sess.State())
	require.True(t, sess.IsActive())
	require.Nil(t, sess.View().Outcome)
	require.Equal(t, env.svc.program.SessionAddress(domain.GameKindCoinflip, env.player.PublicKey(), 41), sess.ID())
	require.Equal(t, 1, env.ledger.sentCount())

	env.outcome(t, sess.ID(), 19_500_000, 0)
	sess, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	require.Equal(t, domain.StateClaimable, sess.State())
	v := sess.View()
	require.NotNil(t, v.Outcome)
	require.True(t, v.Outcome.IsWin)
	require.Equal(t, uint64(19_500_000), v.Outcome.Payout)
	require.Equal(t, "heads", v.Outcome.Description)
	require.True(t, v.CanClaim)

	receipt, err := env.svc.Claim(ctx, env.player, sess.ID())
	require.NoError(t, err)
	require.Equal(t, uint64(19_500_000), receipt.Amount)
	require.Equal(t, 2, env.ledger.sentCount())

	// the claim tx carries the proof before claim_rewards
	claimTx := env.ledger.sent[1]
	require.Len(t, claimTx.Message.Instructions, 2)
	keys := claimTx.Message.AccountKeys
	require.Equal(t, solana.Ed25519ProgramID, keys[claimTx.Message.Instructions[0].ProgramIDIndex])

	got, err := env.svc.Get(ctx, env.player.PublicKey(), sess.ID())
	require.NoError(t, err)
	require.Equal(t, domain.StateClaimed, got.State())

	prev, err := env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	require.NotNil(t, prev)
	require.Equal(t, receipt.Signature, prev.Signature)
	require.Equal(t, 2, env.ledger.sentCount())

	require.Equal(t, []string{EventSubmitted, EventRevealed, EventClaimed}, env.notifier.types())
}

func TestRouletteLossHasNothingToClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 17, stake)
	require.NoError(t, err)

	env.outcome(t, sess.ID(), 0, 4)
	sess, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	require.Equal(t, domain.StateSettled, sess.State())
	require.False(t, sess.View().Outcome.IsWin)
	require.Equal(t, "spin 4", sess.View().Outcome.Description)

	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrNothingToClaim)
	require.Equal(t, 1, env.ledger.sentCount())

	// settled frees the slot
	_, err = env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 3, stake)
	require.NoError(t, err)
}

func TestSlotRevealWithFailingDecryption(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindSlot, 0, stake)
	require.NoError(t, err)
	snap := sess.Snapshot()
	require.Len(t, snap.ResultHandles, 3)

	env.outcome(t, sess.ID(), 49_250_000, 7, 17, 3)
	env.inco.fail(snap.ResultHandles[1], inco.ErrUnavailable)

	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.ErrorIs(t, err, ErrRevealUnavailable)
	require.True(t, IsRetryable(err))
	require.Equal(t, domain.StateFailed, sess.State())
	require.Equal(t, domain.StateRevealing, sess.Snapshot().FailedFrom)
	require.Nil(t, sess.View().Outcome)

	env.inco.fail(snap.ResultHandles[1], nil)
	sess, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	out := sess.View().Outcome
	require.Equal(t, []uint64{7, 7, 3}, out.Results)
	require.True(t, out.IsWin)
	require.Equal(t, domain.StateClaimable, sess.State())
}

func TestClaimAlreadyOnLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, game.CoinTails, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 19_500_000, 1)
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)

	env.ledger.markClaimed(sess.ID())
	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	require.Equal(t, domain.StateClaimed, sess.State())
	require.Equal(t, 1, env.ledger.sentCount())
}

func TestSimulationFailureMovesNoFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	before := env.ledger.balance

	env.ledger.simErr = customErr(casino.ErrCodeMaximumBet)
	_, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.ErrorIs(t, err, ErrSimulationRejected)
	require.Contains(t, err.Error(), "MaximumBet")
	require.False(t, IsRetryable(err))

	require.Equal(t, 0, env.ledger.sentCount())
	require.Equal(t, before, env.ledger.balance)
	open, err := env.svc.ListOpen(ctx, env.player.PublicKey())
	require.NoError(t, err)
	require.Empty(t, open)
	require.Empty(t, env.svc.pending)
	require.Empty(t, env.svc.active)

	_, err = env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)
}

func TestExecutionFailureLeavesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// preflight refusal: the transaction never reached the ledger
	env.ledger.sendErr = &solana.RPCError{Code: -32002, Message: "Transaction simulation failed"}
	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 1, stake)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.NotErrorIs(t, err, ErrUnconfirmed)
	require.Nil(t, sess)
	require.True(t, IsRetryable(err))
	require.Empty(t, env.svc.active)

	open, err := env.svc.ListOpen(ctx, env.player.PublicKey())
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestUnconfirmedWagerIsKeptAndRechecked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.player.PublicKey()

	env.ledger.sendErr = errBoom
	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.ErrorIs(t, err, ErrUnconfirmed)
	require.NotNil(t, sess)
	require.True(t, sess.Unconfirmed())
	require.Empty(t, env.svc.active)

	stored, err := env.store.Get(ctx, sess.ID())
	require.NoError(t, err)
	require.Equal(t, uint64(41), stored.Seed)
	require.False(t, stored.TxSignature.IsZero())

	open, err := env.svc.ListOpen(ctx, player)
	require.NoError(t, err)
	require.Len(t, open, 1)

	_, err = env.svc.Recheck(ctx, player, sess.ID())
	require.ErrorIs(t, err, ErrNotLanded)
	require.True(t, IsRetryable(err))
	_, err = env.svc.Reveal(ctx, player, sess.ID(), env.player.SignMessage)
	require.ErrorIs(t, err, ErrNotLanded)

	// the transaction lands late
	env.ledger.sendErr = nil
	_, err = env.ledger.SendTransaction(ctx, env.ledger.sent[0])
	require.NoError(t, err)

	want := seedHandles(domain.GameKindCoinflip, 41, 0)
	env.inco.set(want.Payout, 19_500_000)
	env.inco.set(want.Results[0], 0)

	revealed, err := env.svc.Reveal(ctx, player, sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	require.Equal(t, domain.StateClaimable, revealed.State())
	require.Equal(t, *want.Payout, *revealed.Snapshot().PayoutHandle)
	require.Contains(t, env.notifier.types(), EventSubmitted)
}

func TestExecutionLandedDespiteTimeout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.ledger.confirmErr = solana.ErrConfirmTimeout
	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCrash, 20_000, stake)
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingReveal, sess.State())
	require.True(t, sess.Record().Recovered)
}

func TestExecutedHandlesWin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.ledger.drift = 5
	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)

	want := seedHandles(domain.GameKindCoinflip, 41, 5)
	snap := sess.Snapshot()
	require.Equal(t, *want.Payout, *snap.PayoutHandle)
	require.Equal(t, *want.Results[0], *snap.ResultHandles[0])
}

func TestClaimBeforeReveal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)

	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, domain.StateAwaitingReveal, sess.State())
	require.Equal(t, 1, env.ledger.sentCount())
}

func TestActiveWagerGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)

	_, err = env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 5, stake)
	require.ErrorIs(t, err, ErrSessionActive)

	other, err := wallet.GenerateKeypair()
	require.NoError(t, err)
	require.ErrorIs(t, env.svc.Abandon(ctx, other.PublicKey(), first.ID()), ErrNotOwner)
	_, err = env.svc.Submit(ctx, other, domain.GameKindRoulette, 5, stake)
	require.NoError(t, err, "other players are not gated")

	require.NoError(t, env.svc.Abandon(ctx, env.player.PublicKey(), first.ID()))
	second, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 5, stake)
	require.NoError(t, err)

	open, err := env.svc.ListOpen(ctx, env.player.PublicKey())
	require.NoError(t, err)
	require.Len(t, open, 2)

	// the abandoned wager can still be revealed
	env.outcome(t, first.ID(), 19_500_000, 0)
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), first.ID(), env.player.SignMessage)
	require.NoError(t, err)
	require.Equal(t, domain.StateAwaitingReveal, second.State())
}

func TestOverlappingSubmitIsGated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hold := make(chan struct{})
	env.ledger.holdBalance = hold

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
		done <- err
	}()
	<-hold // first submit is still in betting, reading the balance

	_, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 5, stake)
	require.ErrorIs(t, err, ErrSessionActive)

	hold <- struct{}{}
	require.NoError(t, <-done)
	require.Equal(t, 1, env.ledger.sentCount())

	// a failed submit frees the slot again
	env.ledger.simErr = customErr(casino.ErrCodeMaximumBet)
	other, err := wallet.GenerateKeypair()
	require.NoError(t, err)
	_, err = env.svc.Submit(ctx, other, domain.GameKindSlot, 0, stake)
	require.ErrorIs(t, err, ErrSimulationRejected)
	_, err = env.svc.Submit(ctx, other, domain.GameKindSlot, 0, stake)
	require.NoError(t, err)
}

func TestValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		kind   domain.GameKind
		choice uint64
		stake  uint64
	}{
		{"unknown kind", "dice", 0, stake},
		{"bad coin side", domain.GameKindCoinflip, 2, stake},
		{"bad roulette number", domain.GameKindRoulette, 37, stake},
		{"crash target too low", domain.GameKindCrash, 10_000, stake},
		{"stake below minimum", domain.GameKindCoinflip, 0, stake - 1},
		{"stake above maximum", domain.GameKindCoinflip, 0, casino.MaxBetLamports + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Submit(ctx, env.player, tt.kind, tt.choice, tt.stake)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	env.ledger.balance = stake / 2
	_, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, 0, env.ledger.sims)
}

func TestRevealIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 9, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 354_600_000, 9)

	sess, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	first := *sess.View().Outcome

	sess, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	require.Equal(t, first, *sess.View().Outcome)

	env.outcome(t, sess.ID(), 0, 2)
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.ErrorIs(t, err, game.ErrOutcomeMismatch)
}

func TestPreparedRevealWithPresignedMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.player.PublicKey()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 1, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 0, 0)

	challenges, err := env.svc.PrepareReveal(ctx, player, sess.ID())
	require.NoError(t, err)
	require.Len(t, challenges, 2)
	require.Equal(t, *sess.Snapshot().PayoutHandle, challenges[0].Handle)

	var sigs [][]byte
	for _, c := range challenges {
		sig, err := env.player.SignMessage(ctx, []byte(c.Message))
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}

	sess, err = env.svc.Reveal(ctx, player, sess.ID(), wallet.Presigned(player, sigs))
	require.NoError(t, err)
	require.Equal(t, domain.StateSettled, sess.State())
}

func TestRevealDeniedWithoutPlayerSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := env.player.PublicKey()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 1, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 0, 0)

	_, err = env.svc.Reveal(ctx, player, sess.ID(), wallet.Presigned(player, nil))
	require.ErrorIs(t, err, ErrRevealDenied)
	require.False(t, IsRetryable(err))
	require.Equal(t, 0, env.inco.decrypts)
	require.Nil(t, sess.View().Outcome)
}

func TestRejectedProofNeedsFreshReveal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 19_500_000, 0)
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)

	env.ledger.claimErr = customErr(casino.ErrCodeInvalidDecryptionProof)
	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrClaimRejected)
	require.Contains(t, err.Error(), "InvalidDecryptionProof")

	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, game.ErrProofRequired)

	env.ledger.claimErr = nil
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)
	receipt, err := env.svc.Claim(ctx, env.player, sess.ID())
	require.NoError(t, err)
	require.Equal(t, uint64(19_500_000), receipt.Amount)
}

func TestVaultShortfallIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)
	env.outcome(t, sess.ID(), 19_500_000, 0)
	_, err = env.svc.Reveal(ctx, env.player.PublicKey(), sess.ID(), env.player.SignMessage)
	require.NoError(t, err)

	env.ledger.claimErr = customErr(casino.ErrCodeInsufficientVaultFunds)
	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.ErrorIs(t, err, ErrExecutionFailed)
	require.True(t, IsRetryable(err))

	// proof kept
	env.ledger.claimErr = nil
	_, err = env.svc.Claim(ctx, env.player, sess.ID())
	require.NoError(t, err)
}

func TestResumeAfterRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sess, err := env.svc.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.NoError(t, err)
	id := sess.ID()

	restarted := env.newService()
	_, err = restarted.Submit(ctx, env.player, domain.GameKindCoinflip, 0, stake)
	require.ErrorIs(t, err, ErrSessionActive)

	open, err := restarted.ListOpen(ctx, env.player.PublicKey())
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, id, open[0].ID())

	env.outcome(t, id, 19_500_000, 0)
	_, err = restarted.Reveal(ctx, env.player.PublicKey(), id, env.player.SignMessage)
	require.NoError(t, err)
	_, err = restarted.Claim(ctx, env.player, id)
	require.NoError(t, err)
}

func TestEventsCarryNoOutcomeBeforeReveal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Submit(ctx, env.player, domain.GameKindRoulette, 7, stake)
	require.NoError(t, err)
	require.Len(t, env.notifier.events, 1)

	raw, err := json.Marshal(env.notifier.events[0])
	require.NoError(t, err)
	require.NotContains(t, string(raw), "outcome")
	require.NotContains(t, string(raw), "is_win")
}
