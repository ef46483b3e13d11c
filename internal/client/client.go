package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/instaweb/internal/model"
	"github.com/ppiankov/instaweb/internal/util"
	"github.com/ppiankov/instaweb/internal/validate"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is the number of rate-limit retries
	DefaultMaxRetries = 1

	// DefaultRetryDelay is used when the server does not send retryAfter
	DefaultRetryDelay = 2 * time.Second

	maxResponseBytes = 1 << 20
)

// sleepFunc waits between attempts (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Result is the outcome of a remote extraction. Error is a short user-facing message.
type Result struct {
	Success bool                  `json:"success"`
	Data    *model.BusinessRecord `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// response is the server envelope
type response struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	RetryAfter int             `json:"retryAfter,omitempty"` // milliseconds
}

// Client calls a remote /extract endpoint
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxRetries int
	logger     *zap.Logger
}

// New creates a client for the server at baseURL
func New(baseURL string, cfg model.HTTPConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/extract",
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		maxRetries: DefaultMaxRetries,
		logger:     logger,
	}
}

// Extract sends transcript to the server. A 429 is retried once after the
// server's retryAfter (2s by default); every other outcome is returned as is.
func (c *Client) Extract(ctx context.Context, transcript string) Result {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		status, body, err := c.post(ctx, transcript)
		if err != nil {
			c.logger.Warn("extract request failed", zap.Error(err))
			return Result{Error: model.MsgConnectionFailed}
		}

		if status == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				break
			}
			delay := DefaultRetryDelay
			if body.RetryAfter > 0 {
				delay = time.Duration(body.RetryAfter) * time.Millisecond
			}
			c.logger.Info("rate limited, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries),
				zap.Duration("delay", delay),
			)
			if err := sleepFunc(ctx, delay); err != nil {
				return Result{Error: model.MsgConnectionFailed}
			}
			continue
		}

		if status == http.StatusGatewayTimeout {
			return Result{Error: model.MsgServerSlow}
		}

		if status < 200 || status >= 300 {
			msg := body.Error
			if msg == "" {
				msg = model.MsgExtractFailed
			}
			return Result{Error: msg}
		}

		rec, err := decodeRecord(body.Data)
		if err != nil {
			c.logger.Warn("server returned an invalid record", zap.Error(err))
			return Result{Error: model.UserMessage(err)}
		}
		return Result{Success: true, Data: rec}
	}

	return Result{Error: model.MsgServerBusy}
}

// post sends one request. A body that is not an envelope decodes to the zero value.
func (c *Client) post(ctx context.Context, transcript string) (int, response, error) {
	payload, err := json.Marshal(map[string]string{"transcript": transcript})
	if err != nil {
		return 0, response{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, response{}, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, response{}, fmt.Errorf("%w: read response: %v", model.ErrNetwork, err)
	}

	var body response
	_ = json.Unmarshal(data, &body)

	return resp.StatusCode, body, nil
}

// decodeRecord re-validates the server's record before handing it out
func decodeRecord(data json.RawMessage) (*model.BusinessRecord, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, errors.New("empty data")
	}
	var candidate model.Partial
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrParseFailure, err)
	}
	return validate.Record(candidate)
}
