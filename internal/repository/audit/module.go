package audit

import "go.uber.org/fx"

// Module provides the fetch audit repository to Fx.
var Module = fx.Module("repository_audit",
	fx.Provide(NewRepository),
)
