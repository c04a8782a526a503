package appointment

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/pkg/pagination"
)

// Event types published after each successful mutation.
const (
	EventBooked      = "appointment.booked"
	EventCancelled   = "appointment.cancelled"
	EventConfirmed   = "appointment.confirmed"
	EventRescheduled = "appointment.rescheduled"
	EventCompleted   = "appointment.completed"
	EventNoShow      = "appointment.noshow"
)

const dateLayout = "2006-01-02"

type Handler struct {
	engine    *Engine
	publisher events.Publisher
}

func NewHandler(engine *Engine, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{engine: engine, publisher: publisher}
}

// RegisterRoutes mounts the appointment endpoints. Access control happens in
// the engine, so no role middleware is applied here.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/doctors/:id/availability", h.Availability)
	api.GET("/doctors/:id/appointments", h.DoctorDay)

	api.POST("/appointments", h.Book)
	api.GET("/appointments", h.List)
	api.GET("/appointments/:id", h.Get)
	api.POST("/appointments/:id/cancel", h.Cancel)
	api.POST("/appointments/:id/confirm", h.Confirm)
	api.POST("/appointments/:id/reschedule", h.Reschedule)
	api.POST("/appointments/:id/complete", h.Complete)
	api.POST("/appointments/:id/no-show", h.NoShow)
}

// -- Query Handlers --

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := parseID(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	slots, err := h.engine.Availability(c.Request().Context(), doctorID, date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id":       doctorID,
		"date":            date.Format(dateLayout),
		"available_slots": slots,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	a, err := h.engine.Get(ctx, auth.IdentityFromContext(ctx), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	var patientID int64
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = id
	}
	var status Status
	if raw := c.QueryParam("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		status = st
	}

	ctx := c.Request().Context()
	caller := auth.IdentityFromContext(ctx)
	if caller.IsAdmin() && patientID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	items, err := h.engine.ListForPatient(ctx, caller, patientID, status)
	if err != nil {
		return httpError(err)
	}
	pg := pagination.FromContext(c)
	return c.JSON(http.StatusOK, pagination.Slice(items, pg))
}

func (h *Handler) DoctorDay(c echo.Context) error {
	doctorID, err := parseID(c)
	if err != nil {
		return err
	}
	date, err := h.parseDate(c.QueryParam("date"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := h.engine.ListForDoctorDay(ctx, auth.IdentityFromContext(ctx), doctorID, date, c.QueryParam("patient_name"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

// -- Mutation Handlers --

func (h *Handler) Book(c echo.Context) error {
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := auth.IdentityFromContext(ctx)
	conf, err := h.engine.Book(ctx, caller, req)
	if err != nil {
		return httpError(err)
	}
	h.publish(ctx, EventBooked, caller, conf)
	return c.JSON(http.StatusCreated, conf)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Reason string `json:"reason" validate:"max=500"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := auth.IdentityFromContext(ctx)
	a, err := h.engine.Cancel(ctx, caller, id, body.Reason)
	if err != nil {
		return httpError(err)
	}
	h.publish(ctx, EventCancelled, caller, a)
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error {
	return h.transition(c, EventConfirmed, h.engine.Confirm)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, EventCompleted, h.engine.Complete)
}

func (h *Handler) NoShow(c echo.Context) error {
	return h.transition(c, EventNoShow, h.engine.MarkNoShow)
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		StartTime time.Time `json:"start_time" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := auth.IdentityFromContext(ctx)
	a, err := h.engine.Reschedule(ctx, caller, id, body.StartTime)
	if err != nil {
		return httpError(err)
	}
	h.publish(ctx, EventRescheduled, caller, a)
	return c.JSON(http.StatusOK, a)
}

type transitionFunc func(ctx context.Context, caller auth.Identity, id int64) (*Appointment, error)

func (h *Handler) transition(c echo.Context, event string, fn transitionFunc) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	caller := auth.IdentityFromContext(ctx)
	a, err := fn(ctx, caller, id)
	if err != nil {
		return httpError(err)
	}
	h.publish(ctx, event, caller, a)
	return c.JSON(http.StatusOK, a)
}

// publish never fails the request; the change is already committed.
func (h *Handler) publish(ctx context.Context, eventType string, caller auth.Identity, payload interface{}) {
	ev := events.Event{Type: eventType, Actor: caller.String(), Payload: payload}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", eventType).Msg("event publish failed")
	}
}

func (h *Handler) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "date is required (YYYY-MM-DD)")
	}
	d, err := time.ParseInLocation(dateLayout, raw, h.engine.Policy().Location)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// httpError maps engine errors to HTTP responses.
func httpError(err error) error {
	var conflict *SlotConflictError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, "not allowed for this appointment")
	case errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrPatientNotFound),
		errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrLeadTimeViolation):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &conflict):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"message":         ErrSlotConflict.Error(),
			"available_slots": conflict.Available,
		})
	case errors.Is(err, ErrNotCancellable),
		errors.Is(err, ErrNotConfirmable),
		errors.Is(err, ErrNotReschedulable),
		errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "appointment store unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}
