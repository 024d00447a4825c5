// Package jobclient talks to hosts that expose the enqueue/job protocol: a JSON-RPC
// style envelope is POSTed to <endpoint>/enqueue and, unless the host answers
// inline, the returned job id is polled at <endpoint>/job/<id> until it settles.
package jobclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/agenthands/snapdiff/internal/core/common"
)

const (
	DefaultPollInterval = 300 * time.Millisecond
	DefaultTimeout      = 60 * time.Second
	protocolVersion     = "2.0"
)

// HTTPClient allows injecting a custom transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Caller is the contract shared by the remote client and in-process providers.
type Caller interface {
	Call(ctx context.Context, endpoint, method string, params interface{}, opts ...CallOption) (map[string]interface{}, error)
}

// CallOption tweaks a single call.
type CallOption func(*callConfig)

type callConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the client's default deadline for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Envelope is the request body sent to /enqueue.
type Envelope struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      string      `json:"id"`
}

// JobStatus is the body returned by /job/<id>.
type JobStatus struct {
	State      string          `json:"state"`
	ResultJSON json.RawMessage `json:"result_json,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	ErrorMsg   string          `json:"error_msg,omitempty"`
}

const (
	StateQueued    = "QUEUED"
	StateRunning   = "RUNNING"
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
)

// Client is a blocking enqueue/poll client. It keeps no connections or state
// between calls.
type Client struct {
	HTTP         HTTPClient
	PollInterval time.Duration
	Timeout      time.Duration
	IDGenerator  func() string
	Logger       *slog.Logger
}

// NewClient returns a client with the default poll interval and timeout.
func NewClient(httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		HTTP:         httpClient,
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultTimeout,
		IDGenerator:  func() string { return uuid.New().String() },
		Logger:       slog.Default(),
	}
}

// Call invokes method on endpoint and returns the unwrapped payload.
func (c *Client) Call(ctx context.Context, endpoint, method string, params interface{}, opts ...CallOption) (map[string]interface{}, error) {
	cfg := callConfig{timeout: c.Timeout}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	base := strings.TrimRight(endpoint, "/")
	if params == nil {
		params = map[string]interface{}{}
	}
	env := Envelope{JSONRPC: protocolVersion, Method: method, Params: params, ID: c.newID()}

	reply, err := c.enqueue(ctx, base, env)
	if err != nil {
		return nil, c.transportError(ctx, endpoint, method, err)
	}

	obj, ok := reply.(map[string]interface{})
	if !ok {
		return nil, Failed(endpoint, method, "enqueue reply is not an object")
	}
	if msg := rpcError(obj); msg != "" {
		return nil, Failed(endpoint, method, msg)
	}

	if jobID := pendingJob(obj); jobID != "" {
		return c.poll(ctx, base, endpoint, method, jobID)
	}
	if isDirect(obj) {
		payload := Unwrap(obj)
		if jobID := pendingJob(payload); jobID != "" && !isPayload(payload) {
			return c.poll(ctx, base, endpoint, method, jobID)
		}
		return payload, nil
	}
	return nil, Failed(endpoint, method, "reply carried neither a result nor a job id")
}

// pendingJob returns the job id of a reply that still has to be polled.
func pendingJob(obj map[string]interface{}) string {
	jobID := common.String(obj, "jobId", "job_id")
	if jobID == "" || hasResultBody(obj) {
		return ""
	}
	return jobID
}

func (c *Client) newID() string {
	if c.IDGenerator != nil {
		return c.IDGenerator()
	}
	return uuid.New().String()
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) enqueue(ctx context.Context, base string, env Envelope) (interface{}, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/enqueue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doJSON(req)
}

func (c *Client) poll(ctx context.Context, base, endpoint, method, jobID string) (map[string]interface{}, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	jobURL := base + "/job/" + url.PathEscape(jobID)
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, &RemoteError{Kind: KindTimeout, Endpoint: endpoint, Method: method,
				Message: fmt.Sprintf("job %s did not settle", jobID), Err: ctx.Err()}
		case <-ticker.C:
		}

		status, err := c.fetchStatus(ctx, jobURL)
		if err != nil {
			// The host may be busy executing the job; only the deadline ends polling.
			c.logger().Debug("job poll failed", "endpoint", endpoint, "job_id", jobID, "attempt", attempt, "error", err)
			continue
		}

		switch strings.ToUpper(status.State) {
		case StateSucceeded:
			return Unwrap(resultValue(status)), nil
		case StateFailed:
			msg := status.ErrorMsg
			if msg == "" {
				msg = fmt.Sprintf("job %s failed", jobID)
			}
			return nil, Failed(endpoint, method, msg)
		default:
			c.logger().Debug("job pending", "endpoint", endpoint, "job_id", jobID, "state", status.State, "attempt", attempt)
		}
	}
}

func (c *Client) fetchStatus(ctx context.Context, jobURL string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("job status returned HTTP %d", resp.StatusCode)
	}

	var status JobStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to decode job status: %w", err)
	}
	return &status, nil
}

func (c *Client) doJSON(req *http.Request) (interface{}, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned HTTP %d", req.URL.Path, resp.StatusCode)
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return v, nil
}

func (c *Client) transportError(ctx context.Context, endpoint, method string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &RemoteError{Kind: KindTimeout, Endpoint: endpoint, Method: method, Err: err}
	}
	return &RemoteError{Kind: KindUnreachable, Endpoint: endpoint, Method: method, Err: err}
}

// resultValue prefers result_json and falls back to an inline result.
func resultValue(s *JobStatus) interface{} {
	raw := s.ResultJSON
	if len(raw) == 0 || string(raw) == "null" {
		raw = s.Result
	}
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func rpcError(obj map[string]interface{}) string {
	errVal, ok := obj["error"]
	if !ok || errVal == nil {
		return ""
	}
	if _, hasResult := obj["result"]; hasResult {
		return ""
	}
	switch t := errVal.(type) {
	case string:
		return t
	case map[string]interface{}:
		if msg := common.String(t, "message", "msg"); msg != "" {
			return msg
		}
		return common.CompactJSON(t)
	}
	return fmt.Sprintf("%v", errVal)
}

func hasResultBody(obj map[string]interface{}) bool {
	return hasAny(obj, wrapperKeys) || hasAny(obj, DomainKeys)
}
