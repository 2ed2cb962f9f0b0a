package progress

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	progresssvc "github.com/Additional-Code/bistro/internal/service/progress"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// Module wires HTTP delivery-progress handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)

// Handler exposes delivery progress snapshots over HTTP.
type Handler struct {
	sim *progresssvc.Simulator
}

// NewHandler constructs a progress Handler.
func NewHandler(sim *progresssvc.Simulator) *Handler {
	return &Handler{sim: sim}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/orders/:id/progress", h.snapshot)
}

func (h *Handler) snapshot(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	snap, ok := h.sim.Snapshot(id)
	if !ok {
		return b.WithError(errorbank.NotFound("no progress tracked for order", errorbank.WithDetail("id", id))).Build()
	}
	return b.WithData(snap).Build()
}
