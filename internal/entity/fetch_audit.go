package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// FetchAudit records the outcome of one upstream orders fetch.
type FetchAudit struct {
	bun.BaseModel `bun:"table:fetch_audits"`

	ID             int64     `bun:",pk,autoincrement"`
	Mode           string    `bun:"mode,notnull"`
	UpstreamStatus int       `bun:"upstream_status"`
	OrderCount     int       `bun:"order_count"`
	DurationMillis int64     `bun:"duration_ms"`
	Error          string    `bun:"error"`
	FetchedAt      time.Time `bun:"fetched_at,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
