package service

import (
	"context"
	"os"
	"testing"
	"time"

	"confidential_casino/internal/wallet"

	"github.com/cosmos/btcutil/base58"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	kp, err := wallet.GenerateKeypair()
	require.NoError(t, err)

	token, err := GenerateJWT(kp.PublicKey())
	require.NoError(t, err)

	player, err := ParseJWT(token)
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey(), player)

	_, err = ParseJWT(token + "x")
	require.Error(t, err)

	InitJWT("other-secret", time.Hour)
	_, err = ParseJWT(token)
	require.Error(t, err)
}

func TestWalletLogin(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	ctx := context.Background()
	auth := NewAuthService(NewMemoryChallengeStore(), nil, "casino.local", time.Minute)

	kp, err := wallet.GenerateKeypair()
	require.NoError(t, err)
	addr := kp.PublicKey().String()

	ch, err := auth.Challenge(ctx, addr)
	require.NoError(t, err)
	sig, err := kp.SignMessage(ctx, []byte(ch.Message))
	require.NoError(t, err)

	proof := wallet.Proof{
		Address:   addr,
		Domain:    ch.Domain,
		Timestamp: ch.Timestamp,
		Payload:   ch.Payload,
		Signature: base58.Encode(sig),
	}
	token, player, err := auth.Login(ctx, proof, "127.0.0.1", "test")
	require.NoError(t, err)
	require.Equal(t, kp.PublicKey(), player)
	require.NotEmpty(t, token)

	// challenges are single use
	_, _, err = auth.Login(ctx, proof, "127.0.0.1", "test")
	require.ErrorIs(t, err, ErrAuthFailed)

	_, err = auth.Challenge(ctx, "not-an-address")
	require.ErrorIs(t, err, ErrValidation)
}

func TestWalletLoginWrongSigner(t *testing.T) {
	InitJWT("test-secret", time.Hour)
	ctx := context.Background()
	auth := NewAuthService(NewMemoryChallengeStore(), nil, "casino.local", time.Minute)

	kp, err := wallet.GenerateKeypair()
	require.NoError(t, err)
	impostor, err := wallet.GenerateKeypair()
	require.NoError(t, err)

	ch, err := auth.Challenge(ctx, kp.PublicKey().String())
	require.NoError(t, err)
	sig, err := impostor.SignMessage(ctx, []byte(ch.Message))
	require.NoError(t, err)

	_, _, err = auth.Login(ctx, wallet.Proof{
		Address:   ch.Address,
		Domain:    ch.Domain,
		Timestamp: ch.Timestamp,
		Payload:   ch.Payload,
		Signature: base58.Encode(sig),
	}, "", "")
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestMemoryChallengeStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Put(ctx, "b", []byte("2"), time.Minute))

	v, err := store.Take(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)
	_, err = store.Take(ctx, "a")
	require.ErrorIs(t, err, ErrChallengeNotFound)

	now = now.Add(2 * time.Minute)
	_, err = store.Take(ctx, "b")
	require.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestRedisChallengeStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis integration test")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	store := NewRedisChallengeStore(rdb)
	key := "test-" + time.Now().Format("150405.000000")
	require.NoError(t, store.Put(ctx, key, []byte("payload"), time.Minute))

	v, err := store.Take(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), v)

	_, err = store.Take(ctx, key)
	require.ErrorIs(t, err, ErrChallengeNotFound)
}
