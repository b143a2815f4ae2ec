package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// NoticeBoard manages notices and filters them by audience.
type NoticeBoard interface {
	Create(ctx context.Context, caller *domain.Session, input usecase.NoticeInput) (domain.Notice, error)
	Update(ctx context.Context, caller *domain.Session, id string, input usecase.NoticeInput) (domain.Notice, error)
	Publish(ctx context.Context, caller *domain.Session, id string) (domain.Notice, error)
	Unpublish(ctx context.Context, caller *domain.Session, id string) (domain.Notice, error)
	Delete(ctx context.Context, caller *domain.Session, id string) error
	ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Notice, error)
	ListPublic(ctx context.Context, limit, offset int) ([]domain.Notice, error)
	ListForUser(ctx context.Context, viewer *domain.Session, limit, offset int) ([]domain.Notice, error)
	Get(ctx context.Context, viewer *domain.Session, id string) (domain.Notice, error)
}

// NoticeHandler exposes the notice board.
type NoticeHandler struct {
	notices NoticeBoard
	log     *zap.Logger
}

// NewNoticeHandler constructs NoticeHandler.
func NewNoticeHandler(notices NoticeBoard, log *zap.Logger) *NoticeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoticeHandler{notices: notices, log: log}
}

// RegisterPublicRoutes binds the anonymous notice board.
func (h *NoticeHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/notices", h.listPublic)
	r.GET("/notices/:id", h.get)
}

// RegisterDashboardRoutes binds the resident notice board.
func (h *NoticeHandler) RegisterDashboardRoutes(r *gin.RouterGroup) {
	r.GET("/notices", h.listForUser)
	r.GET("/notices/:id", h.get)
}

// RegisterAdminRoutes binds notice management.
func (h *NoticeHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	notices := r.Group("/notices")
	notices.GET("", h.listAll)
	notices.POST("", h.create)
	notices.GET("/:id", h.get)
	notices.PUT("/:id", h.update)
	notices.DELETE("/:id", h.delete)
	notices.POST("/:id/publish", h.publish)
	notices.POST("/:id/unpublish", h.unpublish)
}

func (h *NoticeHandler) listPublic(c *gin.Context) {
	limit, offset := pageParams(c)
	h.list(c)(h.notices.ListPublic(c.Request.Context(), limit, offset))
}

func (h *NoticeHandler) listForUser(c *gin.Context) {
	limit, offset := pageParams(c)
	h.list(c)(h.notices.ListForUser(c.Request.Context(), middleware.GetSession(c), limit, offset))
}

func (h *NoticeHandler) listAll(c *gin.Context) {
	limit, offset := pageParams(c)
	h.list(c)(h.notices.ListAll(c.Request.Context(), middleware.GetSession(c), c.Query("search"), limit, offset))
}

func (h *NoticeHandler) list(c *gin.Context) func([]domain.Notice, error) {
	return func(notices []domain.Notice, err error) {
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		respond(c, http.StatusOK, mapSlice(notices, newNoticePayload))
	}
}

func (h *NoticeHandler) get(c *gin.Context) {
	h.one(c, http.StatusOK)(h.notices.Get(c.Request.Context(), middleware.GetSession(c), c.Param("id")))
}

func (h *NoticeHandler) create(c *gin.Context) {
	var req NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	h.one(c, http.StatusCreated)(h.notices.Create(c.Request.Context(), middleware.GetSession(c), noticeInput(req)))
}

func (h *NoticeHandler) update(c *gin.Context) {
	var req NoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	h.one(c, http.StatusOK)(h.notices.Update(c.Request.Context(), middleware.GetSession(c), c.Param("id"), noticeInput(req)))
}

func (h *NoticeHandler) publish(c *gin.Context) {
	h.one(c, http.StatusOK)(h.notices.Publish(c.Request.Context(), middleware.GetSession(c), c.Param("id")))
}

func (h *NoticeHandler) unpublish(c *gin.Context) {
	h.one(c, http.StatusOK)(h.notices.Unpublish(c.Request.Context(), middleware.GetSession(c), c.Param("id")))
}

func (h *NoticeHandler) delete(c *gin.Context) {
	if err := h.notices.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *NoticeHandler) one(c *gin.Context, status int) func(domain.Notice, error) {
	return func(notice domain.Notice, err error) {
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		respond(c, status, newNoticePayload(notice))
	}
}

func noticeInput(req NoticeRequest) usecase.NoticeInput {
	return usecase.NoticeInput{
		Title:       req.Title,
		Content:     req.Content,
		Type:        req.Type,
		Visibility:  req.Visibility,
		Attachments: req.Attachments,
		Published:   req.Published,
	}
}
