package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tazhibayda/greetings-service/internal/converter"
	"github.com/tazhibayda/greetings-service/internal/domain"
	"github.com/tazhibayda/greetings-service/internal/dto"
	"github.com/tazhibayda/greetings-service/internal/service"
)

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Svc    *service.Greetings
	Checks map[string]Pinger
}

func NewHandler(svc *service.Greetings, checks map[string]Pinger) *Handler {
	return &Handler{Svc: svc, Checks: checks}
}

// Accepted forms of the ?date= parameter. Zone-less values are UTC.
const localDateTime = "2006-01-02T15:04:05"

func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(localDateTime, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: msg})
}

func statusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindMalformedInput:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusOf(err), dto.ErrorResponse{Message: service.Message(err)})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func invalidID(c *gin.Context) {
	badRequest(c, "Invalid UUID format: "+c.Param("id"))
}

var fieldMessages = map[string]map[string]string{
	"Message": {
		"required": domain.ErrBlankMessage.Error(),
		"max":      domain.ErrMessageTooLong.Error(),
	},
	"Sender":    {"max": domain.ErrSenderTooLong.Error()},
	"Recipient": {"max": domain.ErrRecipientTooLong.Error()},
}

// bindMessage turns a ShouldBindJSON failure into a client-facing message.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if m, ok := fieldMessages[fe.Field()][fe.Tag()]; ok {
			return m
		}
	}
	return "Invalid request body"
}

// Hello @Summary Fixed greeting
// @Tags hello
// @Produce json
// @Success 200 {object} dto.HelloResponse
// @Router /api/hello [get]
func (h *Handler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HelloResponse{Message: "Hello World"})
}

// Healthz @Summary Dependency health
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.Checks))
	WithSpan(c.Request.Context(), "healthz", func(ctx context.Context) {
		for name, p := range h.Checks {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = "down"
				continue
			}
			checks[name] = "up"
		}
	})
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// CreateGreeting @Summary Create greeting
// @Tags greetings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body dto.CreateGreetingRequest true "message, sender, recipient"
// @Success 201 {object} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/greetings [post]
func (h *Handler) CreateGreeting(c *gin.Context) {
	var in dto.CreateGreetingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, bindMessage(err))
		return
	}
	g, err := h.Svc.Create(c.Request.Context(), converter.FromCreateRequest(in))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, converter.ToResponse(*g))
}

// GetGreeting @Summary Get greeting by id
// @Tags greetings
// @Produce json
// @Param id path string true "greeting id (UUID)"
// @Success 200 {object} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/greetings/{id} [get]
func (h *Handler) GetGreeting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		invalidID(c)
		return
	}
	g, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, converter.ToResponse(*g))
}

// HeadGreeting answers existence checks with a bare status code.
func (h *Handler) HeadGreeting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}
	found, err := h.Svc.Exists(c.Request.Context(), id)
	switch {
	case err != nil:
		c.Status(statusOf(err))
	case !found:
		c.Status(http.StatusNotFound)
	default:
		c.Status(http.StatusOK)
	}
}

func (h *Handler) respondList(c *gin.Context, gs []domain.Greeting, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, converter.ToResponseList(gs))
}

// ListGreetings @Summary List all greetings
// @Tags greetings
// @Produce json
// @Success 200 {array} dto.GreetingResponse
// @Router /api/greetings [get]
func (h *Handler) ListGreetings(c *gin.Context) {
	gs, err := h.Svc.List(c.Request.Context())
	h.respondList(c, gs, err)
}

// UpdateGreeting @Summary Update greeting
// @Tags greetings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "greeting id (UUID)"
// @Param payload body dto.UpdateGreetingRequest true "message, sender, recipient"
// @Success 200 {object} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/greetings/{id} [put]
func (h *Handler) UpdateGreeting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		invalidID(c)
		return
	}
	var in dto.UpdateGreetingRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, bindMessage(err))
		return
	}
	g, err := h.Svc.Update(c.Request.Context(), id, converter.FromUpdateRequest(in))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, converter.ToResponse(*g))
}

// DeleteGreeting @Summary Delete greeting
// @Tags greetings
// @Security BearerAuth
// @Param id path string true "greeting id (UUID)"
// @Success 204
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/greetings/{id} [delete]
func (h *Handler) DeleteGreeting(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		invalidID(c)
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BySender @Summary Greetings by sender
// @Tags greetings
// @Produce json
// @Param sender path string true "sender"
// @Success 200 {array} dto.GreetingResponse
// @Router /api/greetings/sender/{sender} [get]
func (h *Handler) BySender(c *gin.Context) {
	gs, err := h.Svc.BySender(c.Request.Context(), c.Param("sender"))
	h.respondList(c, gs, err)
}

// ByRecipient @Summary Greetings by recipient
// @Tags greetings
// @Produce json
// @Param recipient path string true "recipient"
// @Success 200 {array} dto.GreetingResponse
// @Router /api/greetings/recipient/{recipient} [get]
func (h *Handler) ByRecipient(c *gin.Context) {
	gs, err := h.Svc.ByRecipient(c.Request.Context(), c.Param("recipient"))
	h.respondList(c, gs, err)
}

// Search @Summary Case-insensitive message search
// @Tags greetings
// @Produce json
// @Param message query string true "fragment"
// @Success 200 {array} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/greetings/search [get]
func (h *Handler) Search(c *gin.Context) {
	q := c.Query("message")
	if strings.TrimSpace(q) == "" {
		badRequest(c, "Message query parameter is required")
		return
	}
	gs, err := h.Svc.SearchMessage(c.Request.Context(), q)
	h.respondList(c, gs, err)
}

// Between @Summary Greetings from sender to recipient
// @Tags greetings
// @Produce json
// @Param sender query string true "sender"
// @Param recipient query string true "recipient"
// @Success 200 {array} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/greetings/between [get]
func (h *Handler) Between(c *gin.Context) {
	sender, recipient := c.Query("sender"), c.Query("recipient")
	if strings.TrimSpace(sender) == "" || strings.TrimSpace(recipient) == "" {
		badRequest(c, "Both sender and recipient query parameters are required")
		return
	}
	gs, err := h.Svc.Between(c.Request.Context(), sender, recipient)
	h.respondList(c, gs, err)
}

// After @Summary Greetings created after a date
// @Tags greetings
// @Produce json
// @Param date query string true "ISO date-time, e.g. 2024-01-01T00:00:00"
// @Success 200 {array} dto.GreetingResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/greetings/after [get]
func (h *Handler) After(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("date"))
	if raw == "" {
		badRequest(c, "Date query parameter is required (ISO format)")
		return
	}
	t, ok := parseDate(raw)
	if !ok {
		badRequest(c, "Invalid date format. Use ISO format (yyyy-MM-ddTHH:mm:ss)")
		return
	}
	gs, err := h.Svc.CreatedAfter(c.Request.Context(), t)
	h.respondList(c, gs, err)
}

// Latest @Summary Most recent greeting by sender
// @Tags greetings
// @Produce json
// @Param sender path string true "sender"
// @Success 200 {object} dto.GreetingResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/greetings/latest/{sender} [get]
func (h *Handler) Latest(c *gin.Context) {
	g, err := h.Svc.LatestBySender(c.Request.Context(), c.Param("sender"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, converter.ToResponse(*g))
}

// Count @Summary Number of greetings
// @Tags greetings
// @Produce json
// @Success 200 {object} dto.CountResponse
// @Router /api/greetings/count [get]
func (h *Handler) Count(c *gin.Context) {
	n, err := h.Svc.Count(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, converter.ToCountResponse(n))
}
