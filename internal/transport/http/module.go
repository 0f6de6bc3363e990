package http

import (
	"go.uber.org/fx"

	ordertransport "github.com/Additional-Code/orderproxy/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Module("transport_http",
	ordertransport.Module,
)
