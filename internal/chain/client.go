package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 1 * time.Second
	DefaultMaxDelay     = 10 * time.Second
	DefaultBackoffMult  = 2.0
	DefaultPollInterval = 2 * time.Second
)

// Client implements Gateway over HTTP JSON-RPC 2.0.
//
// Queries are retried with exponential backoff and degrade to a nil result.
// Mutations are submitted exactly once; finality is observed by polling the
// transaction-status query until the receipt is sealed or reverted.
type Client struct {
	endpoint     string
	client       *http.Client
	maxRetries   int
	retryDelay   time.Duration
	maxDelay     time.Duration
	backoffMult  float64
	pollInterval time.Duration
	logger       *log.Logger
	requestID    atomic.Uint64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum query retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial query retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithPollInterval sets the finality polling interval.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a gateway client for the given JSON-RPC endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:     endpoint,
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
		maxDelay:     DefaultMaxDelay,
		backoffMult:  DefaultBackoffMult,
		pollInterval: DefaultPollInterval,
		logger:       log.New(log.Writer(), "[gateway] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []Arg  `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Query issues a read-only request. All transport and decoding failures are
// logged and reported as nil; callers treat nil as "unknown", not "empty".
func (c *Client) Query(ctx context.Context, desc Descriptor, args ...Arg) json.RawMessage {
	result, err := c.callWithRetry(ctx, desc.Method, args)
	if err != nil {
		c.logger.Printf("query %s failed: %v", desc.Method, err)
		return nil
	}
	return result
}

// Mutate submits a state-changing request. It never retries: a retry could
// double-submit a funds-moving operation. Pre-broadcast rejection surfaces
// as *SubmissionError; transport failure wraps ErrTransport.
func (c *Client) Mutate(ctx context.Context, desc Descriptor, args ...Arg) (*Submission, error) {
	result, err := c.call(ctx, desc.Method, args)
	if err != nil {
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			return nil, &SubmissionError{Code: rpcErr.Code, Message: rpcErr.Message}
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var payload struct {
		SubmissionID string `json:"submissionId"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, &SubmissionError{Message: fmt.Sprintf("malformed broadcast response: %v", err)}
	}
	if payload.SubmissionID == "" {
		return nil, &SubmissionError{Message: "broadcast response missing submission id"}
	}

	id := payload.SubmissionID
	return NewSubmission(id, func(ctx context.Context) (*Receipt, error) {
		return c.awaitFinality(ctx, id)
	}), nil
}

// awaitFinality polls the transaction status until sealed or reverted.
// Transient query failures keep polling; only ctx expiry aborts the wait.
func (c *Client) awaitFinality(ctx context.Context, submissionID string) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.callWithRetry(ctx, DescTxStatus.Method, []Arg{StringArg("submissionId", submissionID)})
		if err == nil && status != nil {
			var payload struct {
				Status       string `json:"status"`
				RevertReason string `json:"revertReason"`
			}
			if err := json.Unmarshal(status, &payload); err != nil {
				c.logger.Printf("tx %s: malformed status payload: %v", submissionID, err)
			} else {
				switch ReceiptStatus(payload.Status) {
				case StatusSealed:
					return &Receipt{Status: StatusSealed}, nil
				case StatusReverted:
					return &Receipt{Status: StatusReverted, RevertReason: payload.RevertReason},
						&FinalityError{SubmissionID: submissionID, Reason: payload.RevertReason}
				}
				// PENDING / EXECUTED: keep polling
			}
		} else if err != nil {
			c.logger.Printf("tx %s: status poll failed: %v", submissionID, err)
		}

		select {
		case <-ctx.Done():
			return nil, &FinalityError{SubmissionID: submissionID, Timeout: true}
		case <-ticker.C:
		}
	}
}

// callWithRetry performs a JSON-RPC call with retries and exponential
// backoff. RPC-level errors are not retried.
func (c *Client) callWithRetry(ctx context.Context, method string, params []Arg) (json.RawMessage, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		result, err := c.call(ctx, method, params)
		if err == nil {
			return result, nil
		}
		var rpcErr *rpcError
		if errors.As(err, &rpcErr) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// call performs a single JSON-RPC call attempt.
func (c *Client) call(ctx context.Context, method string, params []Arg) (json.RawMessage, error) {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// Verify interface compliance at compile time.
var _ Gateway = (*Client)(nil)
