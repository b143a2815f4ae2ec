package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/core/port"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// VehicleRegistry manages resident vehicles.
type VehicleRegistry interface {
	Add(ctx context.Context, caller *domain.Session, input usecase.VehicleInput) (domain.Vehicle, error)
	Update(ctx context.Context, caller *domain.Session, id string, input usecase.VehicleInput) (domain.Vehicle, error)
	Delete(ctx context.Context, caller *domain.Session, id string) error
	ListMine(ctx context.Context, caller *domain.Session) ([]domain.Vehicle, error)
	ListAll(ctx context.Context, caller *domain.Session, search string, limit, offset int) ([]domain.Vehicle, error)
}

// Directory lists neighbours who opted into the directory.
type Directory interface {
	List(ctx context.Context, caller *domain.Session, filter port.DirectoryFilter) ([]usecase.DirectoryEntry, error)
}

// Profiles lets residents manage their own account.
type Profiles interface {
	Get(ctx context.Context, caller *domain.Session) (domain.User, error)
	Update(ctx context.Context, caller *domain.Session, update domain.ProfileUpdate) (domain.User, error)
	ChangePassword(ctx context.Context, caller *domain.Session, input usecase.ChangePasswordInput) error
}

// ActivityFeed reads the audit log.
type ActivityFeed interface {
	List(ctx context.Context, caller *domain.Session, limit, offset int) ([]domain.ActivityLog, error)
}

// ResidentHandler exposes the resident dashboard: profile, vehicles and
// directory, plus the admin views over vehicles and activity.
type ResidentHandler struct {
	vehicles  VehicleRegistry
	directory Directory
	profiles  Profiles
	activity  ActivityFeed
	log       *zap.Logger
}

// NewResidentHandler constructs ResidentHandler.
func NewResidentHandler(vehicles VehicleRegistry, directory Directory, profiles Profiles, activity ActivityFeed, log *zap.Logger) *ResidentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ResidentHandler{
		vehicles:  vehicles,
		directory: directory,
		profiles:  profiles,
		activity:  activity,
		log:       log,
	}
}

// RegisterDashboardRoutes binds the resident routes.
func (h *ResidentHandler) RegisterDashboardRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.getProfile)
	r.PUT("/profile", h.updateProfile)
	r.POST("/profile/password", h.changePassword)

	r.GET("/vehicles", h.listMyVehicles)
	r.POST("/vehicles", h.addVehicle)
	r.PUT("/vehicles/:id", h.updateVehicle)
	r.DELETE("/vehicles/:id", h.deleteVehicle)

	r.GET("/directory", h.listDirectory)
}

// RegisterAdminRoutes binds the admin vehicle and activity views.
func (h *ResidentHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/vehicles", h.listAllVehicles)
	r.GET("/activity", h.listActivity)
}

func (h *ResidentHandler) getProfile(c *gin.Context) {
	user, err := h.profiles.Get(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newUserPayload(user))
}

func (h *ResidentHandler) updateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	user, err := h.profiles.Update(c.Request.Context(), middleware.GetSession(c), domain.ProfileUpdate{
		Name:            req.Name,
		Phone:           req.Phone,
		IsProfilePublic: req.IsProfilePublic,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newUserPayload(user))
}

func (h *ResidentHandler) changePassword(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	err := h.profiles.ChangePassword(c.Request.Context(), middleware.GetSession(c), usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"passwordChanged": true})
}

func (h *ResidentHandler) listMyVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.ListMine(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(vehicles, newVehiclePayload))
}

func (h *ResidentHandler) listAllVehicles(c *gin.Context) {
	limit, offset := pageParams(c)
	vehicles, err := h.vehicles.ListAll(c.Request.Context(), middleware.GetSession(c), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(vehicles, newVehiclePayload))
}

func (h *ResidentHandler) addVehicle(c *gin.Context) {
	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	vehicle, err := h.vehicles.Add(c.Request.Context(), middleware.GetSession(c), vehicleInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, newVehiclePayload(vehicle))
}

func (h *ResidentHandler) updateVehicle(c *gin.Context) {
	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	vehicle, err := h.vehicles.Update(c.Request.Context(), middleware.GetSession(c), c.Param("id"), vehicleInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newVehiclePayload(vehicle))
}

func (h *ResidentHandler) deleteVehicle(c *gin.Context) {
	if err := h.vehicles.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *ResidentHandler) listDirectory(c *gin.Context) {
	limit, offset := pageParams(c)
	entries, err := h.directory.List(c.Request.Context(), middleware.GetSession(c), port.DirectoryFilter{
		BuildingID: c.Query("buildingId"),
		Search:     c.Query("search"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(entries, func(e usecase.DirectoryEntry) DirectoryPayload {
		return DirectoryPayload(e)
	}))
}

func (h *ResidentHandler) listActivity(c *gin.Context) {
	limit, offset := pageParams(c)
	entries, err := h.activity.List(c.Request.Context(), middleware.GetSession(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(entries, newActivityPayload))
}

func vehicleInput(req VehicleRequest) usecase.VehicleInput {
	return usecase.VehicleInput{
		Number:      req.VehicleNumber,
		Type:        req.VehicleType,
		Brand:       req.Brand,
		Model:       req.Model,
		Color:       req.Color,
		ParkingSlot: req.ParkingSlot,
	}
}
