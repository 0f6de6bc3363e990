package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/orderproxy/internal/config"
	"github.com/Additional-Code/orderproxy/internal/database"
	"github.com/Additional-Code/orderproxy/internal/logger"
	"github.com/Additional-Code/orderproxy/internal/messaging"
	"github.com/Additional-Code/orderproxy/internal/observability"
	repositoryaudit "github.com/Additional-Code/orderproxy/internal/repository/audit"
	httpserver "github.com/Additional-Code/orderproxy/internal/server/http"
	serviceorder "github.com/Additional-Code/orderproxy/internal/service/order"
	transporthttp "github.com/Additional-Code/orderproxy/internal/transport/http"
	"github.com/Additional-Code/orderproxy/internal/upstream"
	"github.com/Additional-Code/orderproxy/internal/worker"
	workerorder "github.com/Additional-Code/orderproxy/internal/worker/order"
)

// Core provides the modules every executable needs to fetch orders.
var Core = fx.Options(
	config.Module,
	logger.Module,
	observability.Module,
	upstream.Module,
	messaging.Module,
	serviceorder.Module,
)

// Storage opens the audit database. Only commands that touch fetch audits include it.
var Storage = fx.Options(
	database.Module,
	repositoryaudit.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// Worker consumes fetch events and records them in the audit store.
var Worker = fx.Options(
	Core,
	Storage,
	worker.Module,
	workerorder.Module,
	fx.Invoke(func(*observability.Manager) {}),
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
