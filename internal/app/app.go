package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/logger"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/internal/observability"
	httpserver "github.com/Additional-Code/bistro/internal/server/http"
	lifecyclesvc "github.com/Additional-Code/bistro/internal/service/lifecycle"
	progresssvc "github.com/Additional-Code/bistro/internal/service/progress"
	revenuesvc "github.com/Additional-Code/bistro/internal/service/revenue"
	"github.com/Additional-Code/bistro/internal/store"
	transporthttp "github.com/Additional-Code/bistro/internal/transport/http"
	"github.com/Additional-Code/bistro/internal/worker"
	workerlifecycle "github.com/Additional-Code/bistro/internal/worker/lifecycle"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	store.Module,
	mirror.Module,
	lifecyclesvc.Module,
	revenuesvc.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	progresssvc.Module,
	httpserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerlifecycle.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
