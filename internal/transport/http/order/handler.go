package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/dto"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/internal/presentation/http/response"
	lifecycle "github.com/Additional-Code/bistro/internal/service/lifecycle"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/order")

// Module wires HTTP order handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)

// Handler exposes order lifecycle endpoints over HTTP.
type Handler struct {
	svc    *lifecycle.Service
	mirror *mirror.Manager
}

// NewHandler constructs an order Handler.
func NewHandler(svc *lifecycle.Service, m *mirror.Manager) *Handler {
	return &Handler{svc: svc, mirror: m}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.POST("/:id/status", h.transition)
	g.GET("/:id/history", h.history)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		UserID          string            `json:"userId"`
		RestaurantID    string            `json:"restaurantId"`
		Items           []entity.LineItem `json:"items"`
		FulfillmentType string            `json:"fulfillmentType"`
		Total           float64           `json:"total"`
		CustomerName    string            `json:"customerName"`
		CustomerPhone   string            `json:"customerPhone"`
		DeliveryAddress string            `json:"deliveryAddress"`
		PaymentID       string            `json:"paymentId"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("order.restaurant_id", payload.RestaurantID),
	))
	defer span.End()

	order, err := h.svc.CreateOrder(ctx, lifecycle.OrderDraft{
		UserID:          payload.UserID,
		RestaurantID:    payload.RestaurantID,
		Items:           payload.Items,
		Fulfillment:     entity.FulfillmentType(payload.FulfillmentType),
		Total:           payload.Total,
		CustomerName:    payload.CustomerName,
		CustomerPhone:   payload.CustomerPhone,
		DeliveryAddress: payload.DeliveryAddress,
		PaymentID:       payload.PaymentID,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	order, ok := h.mirror.Order(id)
	if !ok {
		return b.WithError(errorbank.NotFound("order not found", errorbank.WithDetail("id", id))).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) transition(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	var payload struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Status == "" {
		return b.WithError(errorbank.BadRequest("status is required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.transition", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.requested_status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.TransitionOrderStatus(ctx, id, entity.OrderStatus(payload.Status))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) history(c echo.Context) error {
	b := response.New(c)

	events, err := h.svc.StatusHistory(c.Param("id"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(events).Build()
}
