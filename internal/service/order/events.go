package order

import "time"

// EventOrdersFetched is the event type header value for OrdersFetchedEvent.
const EventOrdersFetched = "orders.fetched"

// OrdersFetchedEvent is emitted after every upstream fetch, successful or not.
type OrdersFetchedEvent struct {
	Mode           string    `json:"mode"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	OrderCount     int       `json:"order_count"`
	DurationMillis int64     `json:"duration_ms"`
	Error          string    `json:"error,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}
