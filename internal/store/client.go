package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/adi-253/msglist/internal/config"
	"github.com/adi-253/msglist/internal/logger"
	"github.com/adi-253/msglist/internal/metrics"
	"github.com/adi-253/msglist/internal/models"
	"github.com/adi-253/msglist/internal/version"
	"github.com/google/uuid"
)

// messagePath is the collection endpoint of the store.
const messagePath = "/api/message/"

var (
	// ErrConnectivity means no usable response body was obtained:
	// transport errors, timeouts, non-2xx statuses and undecodable bodies all end up here.
	ErrConnectivity = errors.New("cannot connect to the message store")

	// ErrNotFound means the store answered a get-by-id with no message.
	ErrNotFound = errors.New("message not found")
)

// Client is a wrapper around the message store REST API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *metrics.Recorder
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics records every call on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// NewClient creates a new store client with the given configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(cfg.StoreURL, "/"),
		userAgent: version.UserAgent(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type requestIDKey struct{}

// WithRequestID attaches the id sent as X-Request-ID by calls made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// doRequest executes an HTTP request against the store and returns the raw body.
// Any failure to obtain a 2xx body is reported as ErrConnectivity.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	logger.Debug("store request", "method", method, "endpoint", endpoint, "request_id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrConnectivity, method, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrConnectivity, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: store error (status %d): %s", ErrConnectivity, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	return respBody, nil
}

// ListMessages retrieves the whole message collection.
func (c *Client) ListMessages(ctx context.Context) ([]models.Message, error) {
	done := c.metrics.Begin("list")

	respBody, err := c.doRequest(ctx, http.MethodGet, messagePath, nil)
	if err != nil {
		done(metrics.OutcomeConnectivity)
		return nil, err
	}

	var messages []models.Message
	if err := json.Unmarshal(respBody, &messages); err != nil {
		done(metrics.OutcomeConnectivity)
		return nil, fmt.Errorf("%w: failed to parse messages: %w", ErrConnectivity, err)
	}
	if messages == nil {
		// "null" is not a collection
		done(metrics.OutcomeConnectivity)
		return nil, fmt.Errorf("%w: store returned no collection", ErrConnectivity)
	}

	done(metrics.OutcomeOK)
	return messages, nil
}

// GetMessage retrieves a single message by its id.
func (c *Client) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	done := c.metrics.Begin("get")

	respBody, err := c.doRequest(ctx, http.MethodGet, messagePath+strconv.FormatInt(id, 10), nil)
	if err != nil {
		done(metrics.OutcomeConnectivity)
		return nil, err
	}

	// The store answers an unknown id with an empty body
	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		done(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	var msg models.Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		done(metrics.OutcomeConnectivity)
		return nil, fmt.Errorf("%w: failed to parse message: %w", ErrConnectivity, err)
	}

	done(metrics.OutcomeOK)
	return &msg, nil
}

// AddMessage creates msg in the store and returns the store's result code.
func (c *Client) AddMessage(ctx context.Context, msg models.Message) (models.ResultCode, error) {
	form := url.Values{
		"id":      {strconv.FormatInt(msg.ID, 10)},
		"message": {msg.Text},
	}
	return c.mutate(ctx, "add", http.MethodPost, messagePath, form)
}

// DeleteMessage removes the message with the given id and returns the store's result code.
func (c *Client) DeleteMessage(ctx context.Context, id int64) (models.ResultCode, error) {
	return c.mutate(ctx, "delete", http.MethodDelete, messagePath+strconv.FormatInt(id, 10), nil)
}

// mutate issues a create or delete and decodes the result code.
func (c *Client) mutate(ctx context.Context, op, method, endpoint string, form url.Values) (models.ResultCode, error) {
	done := c.metrics.Begin(op)

	respBody, err := c.doRequest(ctx, method, endpoint, form)
	if err != nil {
		done(metrics.OutcomeConnectivity)
		return "", err
	}

	var code models.ResultCode
	if err := json.Unmarshal(respBody, &code); err != nil {
		done(metrics.OutcomeConnectivity)
		return "", fmt.Errorf("%w: failed to parse result code: %w", ErrConnectivity, err)
	}

	if code.OK() {
		done(metrics.OutcomeOK)
	} else {
		done(metrics.OutcomeRejected)
		logger.Warn("store rejected mutation", "op", op, "endpoint", endpoint, "code", string(code))
	}
	return code, nil
}
