package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/astraljournal/lunarlog/pkg/errors"
	"github.com/astraljournal/lunarlog/pkg/logger"
	"github.com/astraljournal/lunarlog/pkg/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	retryBackoff   = 300 * time.Millisecond
)

// Quirks captures upstream-API-shape oddities as configuration rather than
// control flow, so an upstream changing its manners does not require touching
// client logic.
type Quirks struct {
	// RetryGetAsPost lists request paths where a 405 response to a GET is
	// retried once as a POST with an empty body.
	RetryGetAsPost []string `mapstructure:"retry_get_as_post"`
}

func (q Quirks) retryGetAsPost(path string) bool {
	for _, candidate := range q.RetryGetAsPost {
		if candidate == path {
			return true
		}
	}
	return false
}

// Config bundles what a Client needs to reach one upstream API.
type Config struct {
	Name         string
	BaseURL      string
	APIKeyHeader string
	APIKey       string
	Timeout      time.Duration
	Quirks       Quirks
}

// Client issues JSON requests against a single third-party API base URL,
// enforcing a per-call timeout and retrying transient failures exactly once.
// It never caches; whether and how long results are cached is owned by the
// data services.
type Client struct {
	name    string
	baseURL *url.URL
	header  string
	apiKey  string
	timeout time.Duration
	quirks  Quirks
	httpc   *http.Client
	backoff time.Duration
	log     *zap.Logger
}

// NewClient validates the configuration and builds a Client. A missing base
// URL is a configuration error the caller should treat as startup-fatal.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("upstream %s: base url is required", cfg.Name)
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: parse base url: %w", cfg.Name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("upstream %s: base url %q must be absolute", cfg.Name, base)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		name:    cfg.Name,
		baseURL: parsed,
		header:  cfg.APIKeyHeader,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		quirks:  cfg.Quirks,
		httpc:   &http.Client{},
		backoff: retryBackoff,
		log:     logger.WithModule("upstream." + cfg.Name),
	}, nil
}

// Request describes a single upstream exchange.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    any // JSON-encoded when non-nil
}

// Result is the parsed upstream response.
type Result struct {
	Status int
	Body   []byte
	JSON   map[string]any // populated when the response declares JSON and decodes to an object
}

// Text returns the raw body as a string, for the rare upstream that answers
// with something other than JSON.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Do performs the exchange. Timeouts surface as ErrUpstreamTimeout, transport
// failures as ErrUpstreamUnreachable, and non-2xx statuses as upstream-rejected
// errors carrying the upstream's status and message. Transient failures
// (timeout, unreachable, 429/502/503/504) are retried exactly once after a
// fixed backoff; everything else propagates immediately.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	retried := false
	fellBack := false

	for {
		result, err := c.doOnce(ctx, req)
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(c.name, "success").Inc()
			return result, nil
		}

		// Method-not-allowed on a GET against a quirk path falls back to a
		// bare POST, once, without consuming the transient retry.
		if !fellBack && req.Method == http.MethodGet && isRejectedWithStatus(err, http.StatusMethodNotAllowed) && c.quirks.retryGetAsPost(req.Path) {
			fellBack = true
			req.Method = http.MethodPost
			req.Body = nil
			c.log.Debug("405 on GET, falling back to POST", zap.String("path", req.Path))
			continue
		}

		if retried || !apperrors.IsTransient(err) {
			metrics.UpstreamRequests.WithLabelValues(c.name, outcomeLabel(err)).Inc()
			return nil, err
		}

		retried = true
		metrics.UpstreamRetries.WithLabelValues(c.name).Inc()
		c.log.Warn("transient upstream failure, retrying once",
			zap.String("path", req.Path),
			zap.Error(err),
		)

		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
			metrics.UpstreamRequests.WithLabelValues(c.name, "timeout").Inc()
			return nil, apperrors.ErrUpstreamTimeout.WithInternal(ctx.Err())
		}
	}
}

func (c *Client) doOnce(ctx context.Context, req Request) (*Result, error) {
	target := *c.baseURL
	target.Path = joinPath(c.baseURL.Path, req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.ErrInvalidRequest.WithInternal(err)
		}
		body = bytes.NewReader(encoded)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, target.String(), body)
	if err != nil {
		return nil, apperrors.ErrInvalidRequest.WithInternal(err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.header != "" && c.apiKey != "" {
		httpReq.Header.Set(c.header, c.apiKey)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewUpstreamRejected(resp.StatusCode, errorMessage(raw))
	}

	result := &Result{Status: resp.StatusCode, Body: raw}
	if isJSONContentType(resp.Header.Get("Content-Type")) {
		var decoded any
		if jsonErr := json.Unmarshal(raw, &decoded); jsonErr == nil {
			if object, ok := decoded.(map[string]any); ok {
				result.JSON = object
			}
		}
	}

	return result, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrUpstreamTimeout.WithInternal(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrUpstreamTimeout.WithInternal(err)
	}

	if errors.Is(err, context.Canceled) {
		return apperrors.ErrUpstreamTimeout.WithInternal(err)
	}

	return apperrors.ErrUpstreamUnreachable.WithInternal(err)
}

func isRejectedWithStatus(err error, status int) bool {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return false
	}
	return appErr.Code == "UPSTREAM_REJECTED" && appErr.StatusCode == status
}

func outcomeLabel(err error) string {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr == nil {
		return "error"
	}
	switch appErr.Code {
	case apperrors.ErrUpstreamTimeout.Code:
		return "timeout"
	case apperrors.ErrUpstreamUnreachable.Code:
		return "unreachable"
	case "UPSTREAM_REJECTED":
		return "rejected"
	default:
		return "error"
	}
}

// errorMessage pulls the upstream's own error description out of a failure
// body so it can be relayed for diagnostics.
func errorMessage(raw []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return strings.TrimSpace(string(raw))
	}

	if msg, ok := FirstString(decoded, "message", "error.message", "error", "detail", "errors.0"); ok {
		return msg
	}
	return strings.TrimSpace(string(raw))
}

func isJSONContentType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return strings.EqualFold(mediaType, "application/json") ||
		strings.HasSuffix(strings.ToLower(mediaType), "+json")
}

func joinPath(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
