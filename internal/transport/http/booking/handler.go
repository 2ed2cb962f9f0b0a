package booking

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

var httpTracer = otel.Tracer("github.com/Additional-Code/bistro/transport/http/booking")

// Module wires HTTP booking handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler) {
		Register(e, h)
	}),
)

// Handler exposes booking lifecycle endpoints over HTTP.
type Handler struct {
	svc    *lifecycle.Service
	mirror *mirror.Manager
}

// NewHandler constructs a booking Handler.
func NewHandler(svc *lifecycle.Service, m *mirror.Manager) *Handler {
	return &Handler{svc: svc, mirror: m}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/bookings")
	g.POST("", h.create)
	g.GET("/:id", h.getByID)
	g.POST("/:id/status", h.transition)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		UserID          string         `json:"userId"`
		RestaurantID    string         `json:"restaurantId"`
		Kind            string         `json:"kind"`
		Date            string         `json:"date"`
		Time            string         `json:"time"`
		PartySize       int            `json:"partySize"`
		CustomerName    string         `json:"customerName"`
		CustomerPhones  []string       `json:"customerPhones"`
		Amount          float64        `json:"amount"`
		PaymentStatus   string         `json:"paymentStatus"`
		PaymentID       string         `json:"paymentId"`
		SpecialRequests string         `json:"specialRequests"`
		Occasion        string         `json:"occasion"`
		SelectedItems   map[string]int `json:"selectedItems"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "bookings.create", trace.WithAttributes(
		attribute.String("booking.restaurant_id", payload.RestaurantID),
	))
	defer span.End()

	booking, err := h.svc.CreateBooking(ctx, lifecycle.BookingDraft{
		UserID:          payload.UserID,
		RestaurantID:    payload.RestaurantID,
		Kind:            entity.BookingKind(payload.Kind),
		Date:            payload.Date,
		Time:            payload.Time,
		PartySize:       payload.PartySize,
		CustomerName:    payload.CustomerName,
		CustomerPhones:  payload.CustomerPhones,
		Amount:          payload.Amount,
		PaymentStatus:   entity.PaymentStatus(payload.PaymentStatus),
		PaymentID:       payload.PaymentID,
		SpecialRequests: payload.SpecialRequests,
		Occasion:        payload.Occasion,
		SelectedItems:   payload.SelectedItems,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.FromBooking(booking)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	booking, ok := h.mirror.Booking(id)
	if !ok {
		return b.WithError(errorbank.NotFound("booking not found", errorbank.WithDetail("id", id))).Build()
	}
	return b.WithData(dto.FromBooking(booking)).Build()
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

	ctx, span := httpTracer.Start(c.Request().Context(), "bookings.transition", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.requested_status", payload.Status),
	))
	defer span.End()

	booking, err := h.svc.TransitionBookingStatus(ctx, id, entity.BookingStatus(payload.Status))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromBooking(booking)).Build()
}
