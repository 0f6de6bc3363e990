package order

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderproxy/internal/presentation/http/response"
	service "github.com/Additional-Code/orderproxy/internal/service/order"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderproxy/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/orders", h.list)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list",
		trace.WithAttributes(attribute.Bool("orders.passthrough", h.svc.Passthrough())))
	defer span.End()

	if h.svc.Passthrough() {
		raw, err := h.svc.Raw(ctx)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithRawJSON(raw).Build()
	}

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))

	return b.WithData(orders).Build()
}
