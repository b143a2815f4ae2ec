package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// EventCatalog manages events.
type EventCatalog interface {
	Create(ctx context.Context, caller *domain.Session, input usecase.EventInput) (domain.Event, error)
	Update(ctx context.Context, caller *domain.Session, id string, input usecase.EventInput) (domain.Event, error)
	Publish(ctx context.Context, caller *domain.Session, id string) (domain.Event, error)
	Unpublish(ctx context.Context, caller *domain.Session, id string) (domain.Event, error)
	Delete(ctx context.Context, caller *domain.Session, id string) error
	ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Event, error)
	ListPublished(ctx context.Context, search string, limit, offset int) ([]domain.Event, error)
	Get(ctx context.Context, viewer *domain.Session, id string) (usecase.EventView, error)
}

// EventRegistrations registers residents for events.
type EventRegistrations interface {
	Register(ctx context.Context, caller *domain.Session, eventID string, input usecase.RegisterForEventInput) (domain.EventRegistration, error)
	Cancel(ctx context.Context, caller *domain.Session, eventID string) error
	ListMine(ctx context.Context, caller *domain.Session) ([]domain.EventRegistration, error)
	ListForEvent(ctx context.Context, caller *domain.Session, eventID string) ([]domain.RegistrationDetail, error)
	ExportCSV(ctx context.Context, caller *domain.Session, eventID string, w io.Writer) error
}

// EventHandler exposes events and event registration.
type EventHandler struct {
	events        EventCatalog
	registrations EventRegistrations
	log           *zap.Logger
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events EventCatalog, registrations EventRegistrations, log *zap.Logger) *EventHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{events: events, registrations: registrations, log: log}
}

// RegisterPublicRoutes binds the published event listing.
func (h *EventHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/events", h.listPublished)
	r.GET("/events/:id", h.get)
}

// RegisterDashboardRoutes binds resident registration routes.
func (h *EventHandler) RegisterDashboardRoutes(r *gin.RouterGroup) {
	r.GET("/registrations", h.listMine)
	r.POST("/events/:id/registration", h.register)
	r.DELETE("/events/:id/registration", h.cancel)
}

// RegisterAdminRoutes binds event management routes.
func (h *EventHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	events.GET("", h.listAll)
	events.POST("", h.create)
	events.GET("/:id", h.get)
	events.PUT("/:id", h.update)
	events.DELETE("/:id", h.delete)
	events.POST("/:id/publish", h.publish)
	events.POST("/:id/unpublish", h.unpublish)
	events.GET("/:id/registrations", h.listRegistrations)
	events.GET("/:id/registrations/export", h.exportRegistrations)
}

func (h *EventHandler) listPublished(c *gin.Context) {
	limit, offset := pageParams(c)
	events, err := h.events.ListPublished(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(events, newEventPayload))
}

func (h *EventHandler) listAll(c *gin.Context) {
	limit, offset := pageParams(c)
	events, err := h.events.ListAll(c.Request.Context(), middleware.GetSession(c), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(events, newEventPayload))
}

func (h *EventHandler) get(c *gin.Context) {
	view, err := h.events.Get(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newEventViewPayload(view))
}

func (h *EventHandler) create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	event, err := h.events.Create(c.Request.Context(), middleware.GetSession(c), eventInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, newEventPayload(event))
}

func (h *EventHandler) update(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	event, err := h.events.Update(c.Request.Context(), middleware.GetSession(c), c.Param("id"), eventInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newEventPayload(event))
}

func (h *EventHandler) publish(c *gin.Context) {
	event, err := h.events.Publish(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newEventPayload(event))
}

func (h *EventHandler) unpublish(c *gin.Context) {
	event, err := h.events.Unpublish(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newEventPayload(event))
}

func (h *EventHandler) delete(c *gin.Context) {
	if err := h.events.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *EventHandler) register(c *gin.Context) {
	var req EventRegistrationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalidBody(c)
			return
		}
	}

	reg, err := h.registrations.Register(c.Request.Context(), middleware.GetSession(c), c.Param("id"), usecase.RegisterForEventInput{
		TeamName:    req.TeamName,
		TeamMembers: req.TeamMembers,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, newRegistrationPayload(reg))
}

func (h *EventHandler) cancel(c *gin.Context) {
	if err := h.registrations.Cancel(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cancelled": c.Param("id")})
}

func (h *EventHandler) listMine(c *gin.Context) {
	regs, err := h.registrations.ListMine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(regs, newRegistrationPayload))
}

func (h *EventHandler) listRegistrations(c *gin.Context) {
	details, err := h.registrations.ListForEvent(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(details, newRegistrationDetailPayload))
}

// exportRegistrations buffers the CSV so a failure can still produce an
// error envelope instead of a truncated file.
func (h *EventHandler) exportRegistrations(c *gin.Context) {
	eventID := c.Param("id")
	var buf bytes.Buffer
	if err := h.registrations.ExportCSV(c.Request.Context(), middleware.GetSession(c), eventID, &buf); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "event-"+eventID+"-registrations.csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func eventInput(req EventRequest) usecase.EventInput {
	return usecase.EventInput{
		Title:                 req.Title,
		Description:           req.Description,
		Type:                  req.Type,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		Venue:                 req.Venue,
		ImageURL:              req.ImageURL,
		RegistrationRequired:  req.RegistrationRequired,
		RegistrationStartDate: req.RegistrationStartDate,
		RegistrationEndDate:   req.RegistrationEndDate,
		ParticipationType:     req.ParticipationType,
		MaxParticipants:       req.MaxParticipants,
		Published:             req.Published,
	}
}
