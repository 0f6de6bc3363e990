package audit

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderproxy/internal/database"
	"github.com/Additional-Code/orderproxy/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/orderproxy/repository/audit")

// DefaultListLimit bounds ListRecent when no positive limit is given.
const DefaultListLimit = 20

// Repository persists fetch audit rows.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create inserts a fetch audit row using the write connection.
func (r *Repository) Create(ctx context.Context, audit *entity.FetchAudit) error {
	if audit == nil {
		return errors.New("nil fetch audit")
	}
	ctx, span := repoTracer.Start(ctx, "AuditRepository.Create", trace.WithAttributes(
		attribute.String("audit.mode", audit.Mode),
		attribute.Int("audit.upstream_status", audit.UpstreamStatus),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(audit).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListRecent returns the newest audit rows first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]entity.FetchAudit, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ctx, span := repoTracer.Start(ctx, "AuditRepository.ListRecent", trace.WithAttributes(attribute.Int("audit.limit", limit)))
	defer span.End()

	var audits []entity.FetchAudit
	err := r.reader.NewSelect().
		Model(&audits).
		OrderExpr("fetched_at DESC").
		OrderExpr("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return audits, nil
}
