package revenue

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	revenuesvc "github.com/Additional-Code/bistro/internal/service/revenue"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// Module wires HTTP revenue handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)

// Handler exposes revenue aggregation endpoints over HTTP.
type Handler struct {
	svc *revenuesvc.Service
}

// NewHandler constructs a revenue Handler.
func NewHandler(svc *revenuesvc.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/revenue")
	g.GET("", h.aggregate)
	g.GET("/trend", h.trend)
}

func (h *Handler) aggregate(c echo.Context) error {
	b := response.New(c)

	window := revenuesvc.Window(c.QueryParam("window"))
	if window == "" {
		window = revenuesvc.WindowToday
	}

	res, err := h.svc.Aggregate(c.Request().Context(), window, c.QueryParam("restaurantId"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(res).WithMeta("window", string(window)).Build()
}

func (h *Handler) trend(c echo.Context) error {
	b := response.New(c)

	window := revenuesvc.Window(c.QueryParam("window"))
	if window == "" {
		return b.WithError(errorbank.BadRequest("window is required")).Build()
	}

	trend, err := h.svc.Trend(c.Request().Context(), window, c.QueryParam("restaurantId"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(trend).WithMeta("window", string(window)).Build()
}
