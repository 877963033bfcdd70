package inco

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"confidential_casino/internal/domain"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Client is the confidential-compute network API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetry   time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryWindow bounds how long retryable failures are retried. Zero disables retries.
func WithRetryWindow(d time.Duration) Option {
	return func(c *Client) { c.maxRetry = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxRetry: 30 * time.Second,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// post sends body and decodes a 200 answer into out. Errors are classified
// into the package sentinels.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		msg := ae.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("%w: %s %s", classify(resp.StatusCode, ae.Code), resp.Status, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func classify(status int, code string) error {
	switch {
	case code == "not_allowed" || status == http.StatusForbidden || status == http.StatusNotFound:
		return ErrNotAllowed
	case status == http.StatusUnauthorized:
		return ErrSignatureInvalid
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrUnavailable
	default:
		return ErrBadRequest
	}
}

// Retryable reports whether err may succeed when the same request is sent again.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotAllowed)
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	if c.maxRetry <= 0 {
		return fn()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = c.maxRetry

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		RetriesTotal.WithLabelValues(op).Inc()
		logger.Debug("inco retry", "op", op, "attempt", attempt, "wait", wait, "error", err)
	})
}

// Encrypt returns the ciphertext of value for use as an encrypted wager choice.
func (c *Client) Encrypt(ctx context.Context, value uint64) ([]byte, error) {
	var res struct {
		Ciphertext string `json:"ciphertext"`
	}
	err := c.retry(ctx, "encrypt", func() error {
		return c.post(ctx, "/encrypt", map[string]string{"value": strconv.FormatUint(value, 10)}, &res)
	})
	if err != nil {
		return nil, err
	}
	ct, err := hex.DecodeString(strings.TrimPrefix(res.Ciphertext, "0x"))
	if err != nil || len(ct) == 0 {
		return nil, fmt.Errorf("%w: ciphertext %q", ErrBadResponse, res.Ciphertext)
	}
	return ct, nil
}

// NewRequest binds handles to address under a fresh nonce.
func (c *Client) NewRequest(handles []domain.Handle, address solana.PublicKey) DecryptRequest {
	return DecryptRequest{
		Handles: append([]domain.Handle(nil), handles...),
		Address: address,
		Nonce:   uuid.NewString(),
	}
}

// Decrypt submits a signed request. Retryable failures are retried with the
// same signature until the retry window closes.
func (c *Client) Decrypt(ctx context.Context, req DecryptRequest, signature []byte) (*DecryptResult, error) {
	if len(req.Handles) == 0 {
		return nil, fmt.Errorf("%w: no handles", ErrBadRequest)
	}

	body := map[string]any{
		"handles":   req.Handles,
		"address":   req.Address,
		"message":   string(req.Message()),
		"signature": hex.EncodeToString(signature),
	}
	var res struct {
		Plaintexts        []string          `json:"plaintexts"`
		ProofInstructions []WireInstruction `json:"proof_instructions"`
	}

	if err := c.retry(ctx, "decrypt", func() error {
		return c.post(ctx, "/decrypt", body, &res)
	}); err != nil {
		return nil, err
	}

	if len(res.Plaintexts) != len(req.Handles) {
		return nil, fmt.Errorf("%w: %d plaintexts for %d handles", ErrBadResponse, len(res.Plaintexts), len(req.Handles))
	}

	out := &DecryptResult{
		Handles:    req.Handles,
		Plaintexts: res.Plaintexts,
	}
	for _, w := range res.ProofInstructions {
		ix, err := w.instruction()
		if err != nil {
			return nil, err
		}
		out.ProofInstructions = append(out.ProofInstructions, ix)
	}
	if len(out.ProofInstructions) == 0 {
		return nil, fmt.Errorf("%w: no proof instructions", ErrBadResponse)
	}
	return out, nil
}

// Health pings the API root; any answer below 500 counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	}
	return nil
}
