package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
)

// UserAdministration is the admin-side account lifecycle.
type UserAdministration interface {
	Approve(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	Reject(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	Suspend(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	Reactivate(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	MakeAdmin(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	RemoveAdmin(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
	ResetPassword(ctx context.Context, caller *domain.Session, userID string) (string, error)
	ListUsers(ctx context.Context, caller *domain.Session, filter port.UserFilter) ([]domain.User, error)
	GetUser(ctx context.Context, caller *domain.Session, userID string) (domain.User, error)
}

// userAction is a UserAdministration method expression such as UserAdministration.Approve.
type userAction func(users UserAdministration, ctx context.Context, caller *domain.Session, userID string) (domain.User, error)

// AdminUserHandler exposes user approval and role management.
type AdminUserHandler struct {
	users UserAdministration
	log   *zap.Logger
}

// NewAdminUserHandler constructs AdminUserHandler.
func NewAdminUserHandler(users UserAdministration, log *zap.Logger) *AdminUserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminUserHandler{users: users, log: log}
}

// RegisterRoutes binds the admin user routes.
func (h *AdminUserHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	users.GET("", h.list)
	users.GET("/:id", h.get)
	users.POST("/:id/approve", h.action(UserAdministration.Approve))
	users.POST("/:id/reject", h.action(UserAdministration.Reject))
	users.POST("/:id/suspend", h.action(UserAdministration.Suspend))
	users.POST("/:id/reactivate", h.action(UserAdministration.Reactivate))
	users.POST("/:id/make-admin", h.action(UserAdministration.MakeAdmin))
	users.POST("/:id/remove-admin", h.action(UserAdministration.RemoveAdmin))
	users.POST("/:id/reset-password", h.resetPassword)
}

func (h *AdminUserHandler) list(c *gin.Context) {
	limit, offset := pageParams(c)
	users, err := h.users.ListUsers(c.Request.Context(), middleware.GetSession(c), port.UserFilter{
		Status:     domain.UserStatus(strings.ToUpper(c.Query("status"))),
		Role:       domain.Role(strings.ToUpper(c.Query("role"))),
		BuildingID: c.Query("buildingId"),
		Search:     c.Query("search"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(users, newUserPayload))
}

func (h *AdminUserHandler) get(c *gin.Context) {
	user, err := h.users.GetUser(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newUserPayload(user))
}

func (h *AdminUserHandler) action(fn userAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := fn(h.users, c.Request.Context(), middleware.GetSession(c), c.Param("id"))
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		respond(c, http.StatusOK, newUserPayload(user))
	}
}

func (h *AdminUserHandler) resetPassword(c *gin.Context) {
	userID := c.Param("id")
	password, err := h.users.ResetPassword(c.Request.Context(), middleware.GetSession(c), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	respond(c, http.StatusOK, PasswordResetResponse{UserID: userID, TemporaryPassword: password})
}
