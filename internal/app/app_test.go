package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"

	"github.com/Additional-Code/orderproxy/internal/migration"
	"github.com/Additional-Code/orderproxy/internal/repository/audit"
	serviceorder "github.com/Additional-Code/orderproxy/internal/service/order"
	"github.com/Additional-Code/orderproxy/internal/worker"
)

func TestGraphsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts fx.Option
	}{
		{name: "http", opts: Module},
		{name: "worker", opts: Worker},
		{name: "fetch", opts: fx.Options(Core, fx.Invoke(func(*serviceorder.Service) {}))},
		{name: "migrate", opts: fx.Options(Core, Storage, migration.Module, fx.Invoke(func(*migration.Migrator) {}))},
		{name: "audit", opts: fx.Options(Core, Storage, fx.Invoke(func(*audit.Repository) {}))},
		{name: "engine", opts: fx.Options(Worker, fx.Invoke(func(*worker.Engine) {}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, fx.ValidateApp(tt.opts, fx.NopLogger))
		})
	}
}
