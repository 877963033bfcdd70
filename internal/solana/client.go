package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrTransactionFailed  = errors.New("solana: transaction failed")
	ErrConfirmTimeout     = errors.New("solana: confirmation timed out")
	ErrTransactionUnknown = errors.New("solana: transaction not found")
)

// Client is a Solana JSON-RPC client
type Client struct {
	endpoint       string
	httpClient     *http.Client
	commitment     Commitment
	confirmTimeout time.Duration
	nextID         atomic.Uint64
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithCommitment(cm Commitment) ClientOption {
	return func(c *Client) { c.commitment = cm }
}

func WithConfirmTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.confirmTimeout = d
		}
	}
}

// NewClient creates a new RPC client
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:       endpoint,
		commitment:     CommitmentConfirmed,
		confirmTimeout: DefaultConfirmTimeout,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: RPC error: %s - %s", method, resp.Status, string(b))
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// GetLatestBlockhash returns a blockhash to build transactions against
func (c *Client) GetLatestBlockhash(ctx context.Context) (Hash, error) {
	var res struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": c.commitment}}, &res); err != nil {
		return Hash{}, err
	}
	return HashFromBase58(res.Value.Blockhash)
}

// SimulationResult is the outcome of a dry-run transaction
type SimulationResult struct {
	Err           *TransactionError
	Logs          []string
	UnitsConsumed uint64
}

// SimulateTransaction dry-runs tx against current ledger state. Nothing is committed.
func (c *Client) SimulateTransaction(ctx context.Context, tx *Transaction) (*SimulationResult, error) {
	var res struct {
		Value struct {
			Err           json.RawMessage `json:"err"`
			Logs          []string        `json:"logs"`
			UnitsConsumed uint64          `json:"unitsConsumed"`
		} `json:"value"`
	}
	params := []any{
		tx.Base64(),
		map[string]any{
			"encoding":               "base64",
			"sigVerify":              false,
			"replaceRecentBlockhash": false,
			"commitment":             c.commitment,
		},
	}
	if err := c.call(ctx, "simulateTransaction", params, &res); err != nil {
		return nil, err
	}

	out := &SimulationResult{
		Err:           ParseTransactionError(res.Value.Err),
		Logs:          res.Value.Logs,
		UnitsConsumed: res.Value.UnitsConsumed,
	}
	if out.Err != nil {
		out.Err.Logs = res.Value.Logs
	}
	return out, nil
}

// SendTransaction submits a signed transaction and returns its signature
func (c *Client) SendTransaction(ctx context.Context, tx *Transaction) (Signature, error) {
	var sig string
	params := []any{
		tx.Base64(),
		map[string]any{
			"encoding":            "base64",
			"preflightCommitment": c.commitment,
		},
	}
	if err := c.call(ctx, "sendTransaction", params, &sig); err != nil {
		return Signature{}, err
	}
	return SignatureFromBase58(sig)
}

// SignatureStatus is one entry of getSignatureStatuses
type SignatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus Commitment      `json:"confirmationStatus"`
}

// GetSignatureStatuses returns nil entries for unknown signatures
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs ...Signature) ([]*SignatureStatus, error) {
	encoded := make([]string, len(sigs))
	for i, s := range sigs {
		encoded[i] = s.String()
	}
	var res struct {
		Value []*SignatureStatus `json:"value"`
	}
	params := []any{encoded, map[string]any{"searchTransactionHistory": true}}
	if err := c.call(ctx, "getSignatureStatuses", params, &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

// ConfirmTransaction polls until sig reaches the client's commitment level,
// fails on-chain, or the confirm timeout passes.
func (c *Client) ConfirmTransaction(ctx context.Context, sig Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 400 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0

	op := func() error {
		statuses, err := c.GetSignatureStatuses(ctx, sig)
		if err != nil {
			return err
		}
		if len(statuses) == 0 || statuses[0] == nil {
			return ErrTransactionUnknown
		}
		st := statuses[0]
		if txErr := ParseTransactionError(st.Err); txErr != nil {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrTransactionFailed, txErr))
		}
		if !reached(st.ConfirmationStatus, c.commitment) {
			return fmt.Errorf("status %q", st.ConfirmationStatus)
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrTransactionFailed) {
		return fmt.Errorf("%w: %s: %v", ErrConfirmTimeout, sig, err)
	}
	return err
}

func reached(have, want Commitment) bool {
	rank := map[Commitment]int{CommitmentProcessed: 1, CommitmentConfirmed: 2, CommitmentFinalized: 3}
	return rank[have] >= rank[want]
}

// GetAccountInfo returns the raw account data, or ErrAccountNotFound
func (c *Client) GetAccountInfo(ctx context.Context, addr PublicKey) ([]byte, error) {
	var res struct {
		Value *struct {
			Data     []string  `json:"data"`
			Owner    PublicKey `json:"owner"`
			Lamports uint64    `json:"lamports"`
		} `json:"value"`
	}
	params := []any{addr.String(), map[string]any{"encoding": "base64", "commitment": c.commitment}}
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if len(res.Value.Data) == 0 {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(res.Value.Data[0])
}

// GetBalance returns the lamport balance of addr
func (c *Client) GetBalance(ctx context.Context, addr PublicKey) (uint64, error) {
	var res struct {
		Value uint64 `json:"value"`
	}
	params := []any{addr.String(), map[string]any{"commitment": c.commitment}}
	if err := c.call(ctx, "getBalance", params, &res); err != nil {
		return 0, err
	}
	return res.Value, nil
}
