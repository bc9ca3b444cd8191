package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/genbridge/genbridge/internal/backoff"
)

// Shape selects the provider's dispatch style for a submission.
type Shape string

// Dispatch shapes.
const (
	// ShapeFunction is a multipart call requiring an implementation
	// selector, POSTed to /functions/{id}.
	ShapeFunction Shape = "function"

	// ShapeNetwork is a JSON/URL-driven call POSTed to /networks/{id}.
	ShapeNetwork Shape = "network"
)

// Terminal statuses reported by the provider.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Common provider client errors.
var (
	ErrUnsupportedShape = errors.New("unsupported dispatch shape")
	ErrNoRequestID      = errors.New("no request_id in provider response")
	ErrRequestFailed    = errors.New("provider request failed after retries")
	ErrHTTPStatus       = errors.New("provider returned error status")
)

// retryableStatuses are transient HTTP statuses retried with backoff.
// 419 is the provider's rate-limit status.
var retryableStatuses = map[int]struct{}{
	419: {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// File is one multipart input slot.
type File struct {
	Field string
	Name  string
	Data  []byte
	MIME  string
}

// Request describes one provider submission. It is the tagged variant
// both dispatch shapes share; the executor builds it once and the
// encoding differences stay inside this package.
type Request struct {
	Shape          Shape
	Target         string
	Implementation string
	Params         map[string]any
	Files          []File
}

// Result is the terminal outcome of a submission. TimedOut marks a
// locally synthesized failure (the poll deadline elapsed), which is
// distinct from the provider itself reporting failed.
type Result struct {
	Status   string
	Payload  map[string]any
	Message  string
	TimedOut bool
}

// Config holds the provider client settings.
type Config struct {
	BaseURL          string
	Token            string
	SubmitTimeout    time.Duration
	PollHTTPTimeout  time.Duration
	PollDeadline     time.Duration
	MaxSubmitRetries int
	MaxPollRetries   int
	Retry            backoff.Policy
	Poll             backoff.Policy
}

// Client submits generation requests to the gateway and long-polls for
// their terminal status. Transient failures (5xx, rate limit, network
// errors) are retried with exponential backoff on both paths.
type Client struct {
	cfg        Config
	submitHTTP *http.Client
	pollHTTP   *http.Client
	logger     *slog.Logger
}

// NewClient creates a provider client. The logger must not be nil.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		submitHTTP: &http.Client{Timeout: cfg.SubmitTimeout},
		pollHTTP:   &http.Client{Timeout: cfg.PollHTTPTimeout},
		logger:     logger.With("component", "provider"),
	}
}

// Submit sends a generation request and returns the provider-assigned
// request identifier.
func (c *Client) Submit(ctx context.Context, req Request) (int64, error) {
	var url string
	payload := make(map[string]any, len(req.Params)+1)

	switch req.Shape {
	case ShapeFunction:
		url = fmt.Sprintf("%s/functions/%s", c.cfg.BaseURL, req.Target)
		payload["implementation"] = req.Implementation
	case ShapeNetwork:
		url = fmt.Sprintf("%s/networks/%s", c.cfg.BaseURL, req.Target)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedShape, req.Shape)
	}

	for k, v := range req.Params {
		payload[k] = v
	}
	payload = cleanPayload(payload)

	var build func() (*http.Request, error)
	if len(req.Files) == 0 {
		// JSON keeps native types; the provider validates booleans and
		// numbers strictly.
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to encode submit payload: %w", err)
		}
		build = func() (*http.Request, error) {
			hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			hr.Header.Set("Content-Type", "application/json")
			return hr, nil
		}
	} else {
		body, contentType, err := encodeMultipart(payload, req.Files)
		if err != nil {
			return 0, err
		}
		build = func() (*http.Request, error) {
			hr, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			hr.Header.Set("Content-Type", contentType)
			return hr, nil
		}
	}

	resp, err := c.doWithRetry(ctx, c.submitHTTP, build, c.cfg.MaxSubmitRetries, 0, time.Time{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read submit response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("%w: HTTP %d for %s: %s", ErrHTTPStatus, resp.StatusCode, url, truncate(string(raw), 512))
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("failed to decode submit response from %s: %w", url, err)
	}

	id, ok := requestIDOf(parsed)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoRequestID, url)
	}

	c.logger.Debug("submitted provider request",
		"shape", req.Shape,
		"target", req.Target,
		"request_id", id)

	return id, nil
}

// Poll repeatedly fetches the request status at backoff-governed
// intervals until it is terminal or the overall deadline elapses.
// A deadline expiry returns a synthetic failed Result with TimedOut
// set; it is a local condition, not a provider failure.
func (c *Client) Poll(ctx context.Context, requestID int64) (Result, error) {
	url := fmt.Sprintf("%s/request/get/%d", c.cfg.BaseURL, requestID)
	deadline := time.Now().Add(c.cfg.PollDeadline)

	delay := c.cfg.Poll.Next(0)

	for {
		if time.Now().After(deadline) {
			c.logger.Warn("poll deadline elapsed", "request_id", requestID)
			return Result{
				Status:   StatusFailed,
				Payload:  map[string]any{},
				Message:  "timeout waiting for provider result",
				TimedOut: true,
			}, nil
		}

		build := func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		}

		resp, err := c.doWithRetry(ctx, c.pollHTTP, build, c.cfg.MaxPollRetries, delay, deadline)
		if err != nil {
			return Result{}, err
		}

		raw, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return Result{}, fmt.Errorf("failed to read poll response: %w", err)
		}

		// Client errors while polling are not retryable.
		if resp.StatusCode >= 400 {
			return Result{}, fmt.Errorf("%w: HTTP %d while polling %s: %s",
				ErrHTTPStatus, resp.StatusCode, url, truncate(string(raw), 512))
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return Result{}, fmt.Errorf("failed to decode poll response: %w", err)
		}

		status := statusOf(payload)
		if status == StatusSuccess || status == StatusFailed {
			return Result{Status: status, Payload: payload}, nil
		}

		if err := c.cfg.Poll.Sleep(ctx, delay, deadline); err != nil {
			return Result{}, err
		}
		delay = c.cfg.Poll.Next(delay)
	}
}

// doWithRetry performs an HTTP request, retrying transient statuses and
// network errors with the retry policy. baseDelay, when positive, seeds
// the schedule (the poll loop passes its current interval). A non-zero
// hard deadline bounds the waiting.
func (c *Client) doWithRetry(
	ctx context.Context,
	httpClient *http.Client,
	build func() (*http.Request, error),
	maxRetries int,
	baseDelay time.Duration,
	deadline time.Time,
) (*http.Response, error) {
	delay := c.cfg.Retry.Next(0)
	if baseDelay > delay {
		delay = baseDelay
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to build provider request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt == maxRetries {
				break
			}

			c.logger.Warn("provider request error, retrying",
				"url", req.URL.String(),
				"attempt", attempt+1,
				"error", err)

			if err := c.cfg.Retry.Sleep(ctx, delay, deadline); err != nil {
				return nil, err
			}
			delay = c.cfg.Retry.Next(delay)
			continue
		}

		if _, transient := retryableStatuses[resp.StatusCode]; transient {
			if attempt == maxRetries {
				// Out of retries, hand the response to the caller.
				return resp, nil
			}

			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			c.logger.Warn("provider returned transient status, retrying",
				"url", req.URL.String(),
				"status", resp.StatusCode,
				"attempt", attempt+1)

			if err := c.cfg.Retry.Sleep(ctx, delay, deadline); err != nil {
				return nil, err
			}
			delay = c.cfg.Retry.Next(delay)
			continue
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, lastErr)
	}
	return nil, fmt.Errorf("%w: aborted by deadline", ErrRequestFailed)
}

// requestIDOf reads the request identifier from a submit response.
// The gateway usually sends a number but has been seen quoting it.
func requestIDOf(payload map[string]any) (int64, bool) {
	switch id := payload["request_id"].(type) {
	case float64:
		return int64(id), true
	case string:
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// statusOf reads the request status from a poll payload. Some provider
// shapes report it as "state" instead of "status".
func statusOf(payload map[string]any) string {
	if s, ok := payload["status"].(string); ok && s != "" {
		return s
	}
	if s, ok := payload["state"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// cleanPayload drops nil values and empty collections before send.
func cleanPayload(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
		case []any:
			if len(val) == 0 {
				continue
			}
		case []string:
			if len(val) == 0 {
				continue
			}
		case map[string]any:
			if len(val) == 0 {
				continue
			}
		}
		out[k] = v
	}
	return out
}

// encodeMultipart builds a multipart/form-data body with string-coerced
// scalar parameters plus one part per file.
func encodeMultipart(params map[string]any, files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range params {
		if err := w.WriteField(k, coerceString(v)); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", k, err)
		}
	}

	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		header.Set("Content-Type", f.MIME)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %q: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write form file %q: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// coerceString renders a scalar parameter for a form field.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truncate bounds provider payload text embedded in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
