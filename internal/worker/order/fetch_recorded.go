package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderproxy/internal/config"
	"github.com/Additional-Code/orderproxy/internal/entity"
	"github.com/Additional-Code/orderproxy/internal/messaging"
	auditrepo "github.com/Additional-Code/orderproxy/internal/repository/audit"
	ordersvc "github.com/Additional-Code/orderproxy/internal/service/order"
	"github.com/Additional-Code/orderproxy/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/orderproxy/worker/order")

// AuditRecorder stores fetch audit rows.
type AuditRecorder interface {
	Create(ctx context.Context, audit *entity.FetchAudit) error
}

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		func(repo *auditrepo.Repository) AuditRecorder { return repo },
		fx.Annotate(
			NewFetchRecordedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewFetchRecordedHandler persists every orders.fetched event as a fetch audit row.
func NewFetchRecordedHandler(recorder AuditRecorder, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.fetched", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.Int64("messaging.offset", msg.Offset),
		))
		defer span.End()

		var event ordersvc.OrdersFetchedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// a malformed payload will never decode; drop it instead of retrying forever
			logger.Error("failed to decode orders fetched event", zap.Error(err), zap.Int64("offset", msg.Offset))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}

		audit := &entity.FetchAudit{
			Mode:           event.Mode,
			UpstreamStatus: event.UpstreamStatus,
			OrderCount:     event.OrderCount,
			DurationMillis: event.DurationMillis,
			Error:          event.Error,
			FetchedAt:      event.FetchedAt.UTC(),
		}
		if err := recorder.Create(ctx, audit); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist error")
			return fmt.Errorf("record fetch audit: %w", err)
		}

		logger.Info("fetch audit recorded",
			zap.Int64("id", audit.ID),
			zap.String("mode", audit.Mode),
			zap.Int("upstream_status", audit.UpstreamStatus),
			zap.Int("order_count", audit.OrderCount),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:     cfg.Messaging.Kafka.Topic,
		EventType: ordersvc.EventOrdersFetched,
		Handler:   handler,
	}
}
