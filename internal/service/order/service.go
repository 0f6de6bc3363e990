package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderproxy/internal/config"
	"github.com/Additional-Code/orderproxy/internal/dto"
	"github.com/Additional-Code/orderproxy/internal/messaging"
	"github.com/Additional-Code/orderproxy/internal/upstream"
	"github.com/Additional-Code/orderproxy/pkg/errorbank"
)

const instrumentationName = "github.com/Additional-Code/orderproxy/service/order"

var serviceTracer = otel.Tracer(instrumentationName)

// Schema error messages returned to callers.
const (
	MsgOrdersNotList = "Unexpected response format: 'orders' is not a list"
	MsgBodyNotObject = "Unexpected response format: body is not an object"
)

const publishTimeout = 5 * time.Second

// Service fetches upstream orders and reshapes them for clients.
type Service struct {
	upstream    *upstream.Client
	passthrough bool
	logger      *zap.Logger
	publisher   messaging.Client
	metrics     serviceMetrics
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Upstream  *upstream.Client
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client `optional:"true"`
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		upstream:    p.Upstream,
		passthrough: p.Config.Upstream.Passthrough(),
		logger:      logger,
		publisher:   p.Publisher,
		metrics:     newServiceMetrics(logger),
	}
}

// Passthrough reports whether the service is configured to return the upstream body untouched.
func (s *Service) Passthrough() bool {
	return s.passthrough
}

// List fetches the upstream orders and projects each one, preserving upstream order.
func (s *Service) List(ctx context.Context) (orders []dto.OrderResponse, err error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	run := s.begin(config.ModeProjection)
	defer func() { s.finish(ctx, span, run, err) }()

	resp, err := s.fetch(ctx, run)
	if err != nil {
		return nil, err
	}

	items, err := decodeOrders(resp.Body)
	if err != nil {
		return nil, err
	}

	orders = ProjectAll(items)
	run.count = len(orders)
	return orders, nil
}

// Raw fetches the upstream payload and returns it verbatim once it is known to be JSON.
func (s *Service) Raw(ctx context.Context) (body json.RawMessage, err error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Raw")
	defer span.End()

	run := s.begin(config.ModePassthrough)
	defer func() { s.finish(ctx, span, run, err) }()

	resp, err := s.fetch(ctx, run)
	if err != nil {
		return nil, err
	}

	if !json.Valid(resp.Body) {
		return nil, errorbank.Internal("upstream returned invalid JSON")
	}

	if items, derr := decodeOrders(resp.Body); derr == nil {
		run.count = len(items)
	}
	return json.RawMessage(resp.Body), nil
}

type fetchRun struct {
	mode   string
	start  time.Time
	status int
	count  int
}

func (s *Service) begin(mode string) *fetchRun {
	return &fetchRun{mode: mode, start: time.Now()}
}

func (s *Service) fetch(ctx context.Context, run *fetchRun) (*upstream.Response, error) {
	resp, err := s.upstream.FetchOrders(ctx)
	if err != nil {
		var statusErr *upstream.StatusError
		if errors.As(err, &statusErr) {
			run.status = statusErr.StatusCode
			return nil, errorbank.UpstreamHTTP(statusErr.StatusCode, statusErr.Error(), errorbank.WithCause(err))
		}
		var unavailable *upstream.UnavailableError
		if errors.As(err, &unavailable) {
			return nil, errorbank.UpstreamUnavailable(err.Error(), errorbank.WithCause(err))
		}
		return nil, errorbank.Internal(err.Error(), errorbank.WithCause(err))
	}
	run.status = resp.StatusCode
	return resp, nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, run *fetchRun, err error) {
	duration := time.Since(run.start)
	outcome := "ok"
	if err != nil {
		outcome = string(errorbank.From(err).Kind())
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn("orders fetch failed",
			zap.String("mode", run.mode),
			zap.Int("upstream_status", run.status),
			zap.Error(err),
		)
	} else {
		s.logger.Info("orders fetched",
			zap.String("mode", run.mode),
			zap.Int("orders", run.count),
			zap.Duration("duration", duration),
		)
	}
	span.SetAttributes(
		attribute.String("orders.mode", run.mode),
		attribute.Int("orders.count", run.count),
		attribute.Int("upstream.status", run.status),
	)

	s.metrics.record(ctx, run, outcome, duration)
	s.publishFetched(ctx, run, duration, err)
}

func (s *Service) publishFetched(ctx context.Context, run *fetchRun, duration time.Duration, fetchErr error) {
	if s.publisher == nil {
		return
	}
	event := OrdersFetchedEvent{
		Mode:           run.mode,
		UpstreamStatus: run.status,
		OrderCount:     run.count,
		DurationMillis: duration.Milliseconds(),
		FetchedAt:      run.start.UTC(),
	}
	if fetchErr != nil {
		event.Error = errorbank.From(fetchErr).Message()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal orders fetched", zap.Error(err))
		return
	}

	// the event outlives a caller that has already hung up
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	msg := messaging.Message{
		Key:     []byte("orders-fetch-" + strconv.FormatInt(run.start.UnixNano(), 10)),
		Value:   payload,
		Headers: map[string]string{messaging.HeaderEventType: EventOrdersFetched},
	}
	if err := s.publisher.Publish(pubCtx, msg); err != nil {
		s.logger.Error("publish orders fetched", zap.Error(err))
	}
}

// decodeOrders extracts the orders list from an upstream body. A missing
// orders key is an empty list.
func decodeOrders(body []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, errorbank.Internal(fmt.Sprintf("decode upstream body: %v", err), errorbank.WithCause(err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errorbank.Internal("decode upstream body: unexpected data after JSON value")
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, errorbank.Schema(MsgBodyNotObject)
	}
	raw, present := obj["orders"]
	if !present {
		return []any{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errorbank.Schema(MsgOrdersNotList)
	}
	return items, nil
}

type serviceMetrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	projected metric.Int64Counter
}

func newServiceMetrics(logger *zap.Logger) serviceMetrics {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	requests, err := meter.Int64Counter("orders.upstream.requests",
		metric.WithDescription("Upstream orders fetches by mode and outcome."))
	if err != nil {
		logger.Warn("create requests counter", zap.Error(err))
		requests, _ = fallback.Int64Counter("orders.upstream.requests")
	}
	duration, err := meter.Float64Histogram("orders.upstream.duration",
		metric.WithDescription("Upstream orders fetch latency."),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("create duration histogram", zap.Error(err))
		duration, _ = fallback.Float64Histogram("orders.upstream.duration")
	}
	projected, err := meter.Int64Counter("orders.projected",
		metric.WithDescription("Orders returned to clients."))
	if err != nil {
		logger.Warn("create projected counter", zap.Error(err))
		projected, _ = fallback.Int64Counter("orders.projected")
	}

	return serviceMetrics{requests: requests, duration: duration, projected: projected}
}

func (m serviceMetrics) record(ctx context.Context, run *fetchRun, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("mode", run.mode),
		attribute.String("outcome", outcome),
		attribute.Int("upstream.status", run.status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
	if outcome == "ok" {
		m.projected.Add(ctx, int64(run.count), metric.WithAttributes(attribute.String("mode", run.mode)))
	}
}
