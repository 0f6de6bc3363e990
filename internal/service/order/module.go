package order

import "go.uber.org/fx"

// Module provides the orders service to Fx.
var Module = fx.Module("service_order",
	fx.Provide(NewService),
)
