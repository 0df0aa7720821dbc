package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mealdesk/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 15 * time.Second

const maxResponseBodyBytes int64 = 4 * 1024 * 1024

// TokenSource returns the current auth token, or "" when signed out.
type TokenSource func() string

// ClientConfig configures the provider backend client.
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Token             TokenSource
	Logger            *zap.Logger
	HTTPClient        *http.Client
}

// Client is a thin HTTP wrapper around the provider backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	token      TokenSource
	logger     *zap.Logger
}

// NewClient creates a new provider backend client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", base, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	token := cfg.Token
	if token == nil {
		token = func() string { return "" }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    limiter,
		token:      token,
		logger:     logger,
	}, nil
}

// Close releases idle HTTP transport connections held by the client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p errorPayload) text() string {
	if strings.TrimSpace(p.Message) != "" {
		return strings.TrimSpace(p.Message)
	}
	return strings.TrimSpace(p.Error)
}

// do issues a request and returns the raw success body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError(op, err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("remote request failed",
			zap.String("op", op),
			zap.String("requestId", requestID),
			zap.Error(err),
		)
		return nil, apperrors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError(op, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("remote request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("requestId", requestID),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classify(op, resp.StatusCode, raw)
	}
	return raw, nil
}

// classify maps a non-2xx response onto the error taxonomy.
func classify(op string, status int, raw []byte) error {
	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)
	msg := payload.text()

	if status == http.StatusConflict {
		return apperrors.NewConflictError(op, status, msg)
	}
	if status == http.StatusBadRequest && reportsDuplicate(msg) {
		return apperrors.NewConflictError(op, status, msg)
	}
	return apperrors.NewServerError(op, status, msg)
}

func reportsDuplicate(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "already exists") || strings.Contains(lower, "duplicate")
}

// decodeRecord decodes a single-record body that may be wrapped in {"data": ...}.
func decodeRecord(op string, raw []byte, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if data, ok := envelope["data"]; ok && len(data) > 0 && data[0] == '{' {
			raw = data
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed(op, err)
	}
	return nil
}

func malformed(op string, err error) error {
	return &apperrors.Error{
		Kind:    apperrors.KindServer,
		Op:      op,
		Message: "The server sent an unexpected response.",
		Err:     err,
	}
}

var errMissingID = errors.New("record has no id")
