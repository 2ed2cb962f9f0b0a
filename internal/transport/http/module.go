package http

import (
	"go.uber.org/fx"

	bookingtransport "github.com/Additional-Code/bistro/internal/transport/http/booking"
	ordertransport "github.com/Additional-Code/bistro/internal/transport/http/order"
	progresstransport "github.com/Additional-Code/bistro/internal/transport/http/progress"
	revenuetransport "github.com/Additional-Code/bistro/internal/transport/http/revenue"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	bookingtransport.Module,
	revenuetransport.Module,
	progresstransport.Module,
)
