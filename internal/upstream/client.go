package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderproxy/internal/config"
)

var clientTracer = otel.Tracer("github.com/Additional-Code/orderproxy/upstream")

const defaultMaxBodyBytes = 32 << 20

// Module provides the upstream orders client to Fx.
var Module = fx.Provide(New)

// ErrBodyTooLarge is returned when the upstream body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("upstream response body too large")

// UnavailableError reports that the upstream could not be reached at all.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string { return e.Err.Error() }

func (e *UnavailableError) Unwrap() error { return e.Err }

// StatusError reports a 4xx/5xx answer from the upstream.
type StatusError struct {
	StatusCode int
	Reason     string
	URL        string
}

func (e *StatusError) Error() string {
	side := "Server"
	if e.StatusCode < 500 {
		side = "Client"
	}
	return fmt.Sprintf("%d %s Error: %s for url: %s", e.StatusCode, side, e.Reason, e.URL)
}

// Response is a successful upstream answer.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client fetches the raw orders payload from the configured upstream URL.
type Client struct {
	url        string
	maxBody    int64
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds a Client with an OTel-instrumented transport and the configured timeout.
func New(cfg config.Config, logger *zap.Logger) *Client {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   cfg.Upstream.Timeout,
	}
	return NewClient(cfg.Upstream, httpClient, logger)
}

// NewClient wires a Client around an existing HTTP client.
func NewClient(cfg config.Upstream, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Client{
		url:        cfg.URL,
		maxBody:    maxBody,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchOrders performs a single GET against the upstream. Network failures
// are returned as *UnavailableError and error statuses as *StatusError.
func (c *Client) FetchOrders(ctx context.Context) (*Response, error) {
	ctx, span := clientTracer.Start(ctx, "UpstreamClient.FetchOrders", trace.WithAttributes(attribute.String("http.url", c.url)))
	defer span.End()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream unreachable")
		c.logger.Warn("upstream request failed", zap.String("url", c.url), zap.Error(err))
		return nil, &UnavailableError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if isErrorStatus(resp.StatusCode) {
		statusErr := &StatusError{
			StatusCode: resp.StatusCode,
			Reason:     reason(resp),
			URL:        resp.Request.URL.String(),
		}
		span.SetStatus(codes.Error, "upstream error status")
		c.logger.Warn("upstream returned error status",
			zap.String("url", c.url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return nil, &UnavailableError{Err: fmt.Errorf("read upstream body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		span.SetStatus(codes.Error, "body too large")
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, c.maxBody)
	}

	c.logger.Debug("upstream orders fetched",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// isErrorStatus matches the 4xx and 5xx classes only; codes past 599 are not errors.
func isErrorStatus(code int) bool {
	return code >= http.StatusBadRequest && code < 600
}

func reason(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
