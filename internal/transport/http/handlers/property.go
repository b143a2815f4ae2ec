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

// BuildingAdministration manages buildings.
type BuildingAdministration interface {
	Create(ctx context.Context, caller *domain.Session, input usecase.BuildingInput) (domain.Building, error)
	Update(ctx context.Context, caller *domain.Session, id string, input usecase.BuildingInput) (domain.Building, error)
	Delete(ctx context.Context, caller *domain.Session, id string) error
	List(ctx context.Context, caller *domain.Session) ([]domain.Building, error)
}

// FlatAdministration manages flats.
type FlatAdministration interface {
	Create(ctx context.Context, caller *domain.Session, input usecase.FlatInput) (domain.Flat, error)
	Update(ctx context.Context, caller *domain.Session, id string, input usecase.FlatInput) (domain.Flat, error)
	Delete(ctx context.Context, caller *domain.Session, id string) error
	ListByBuilding(ctx context.Context, caller *domain.Session, buildingID string) ([]domain.Flat, error)
}

// PropertyHandler exposes building and flat administration.
type PropertyHandler struct {
	buildings BuildingAdministration
	flats     FlatAdministration
	log       *zap.Logger
}

// NewPropertyHandler constructs PropertyHandler.
func NewPropertyHandler(buildings BuildingAdministration, flats FlatAdministration, log *zap.Logger) *PropertyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PropertyHandler{buildings: buildings, flats: flats, log: log}
}

// RegisterRoutes binds the admin property routes.
func (h *PropertyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/buildings", h.listBuildings)
	r.POST("/buildings", h.createBuilding)
	r.PUT("/buildings/:id", h.updateBuilding)
	r.DELETE("/buildings/:id", h.deleteBuilding)
	r.GET("/buildings/:id/flats", h.listFlats)

	r.POST("/flats", h.createFlat)
	r.PUT("/flats/:id", h.updateFlat)
	r.DELETE("/flats/:id", h.deleteFlat)
}

func (h *PropertyHandler) listBuildings(c *gin.Context) {
	buildings, err := h.buildings.List(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(buildings, newBuildingPayload))
}

func (h *PropertyHandler) createBuilding(c *gin.Context) {
	var req BuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	building, err := h.buildings.Create(c.Request.Context(), middleware.GetSession(c), buildingInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, newBuildingPayload(building))
}

func (h *PropertyHandler) updateBuilding(c *gin.Context) {
	var req BuildingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	building, err := h.buildings.Update(c.Request.Context(), middleware.GetSession(c), c.Param("id"), buildingInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newBuildingPayload(building))
}

func (h *PropertyHandler) deleteBuilding(c *gin.Context) {
	if err := h.buildings.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *PropertyHandler) listFlats(c *gin.Context) {
	flats, err := h.flats.ListByBuilding(c.Request.Context(), middleware.GetSession(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(flats, newFlatPayload))
}

func (h *PropertyHandler) createFlat(c *gin.Context) {
	var req FlatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	flat, err := h.flats.Create(c.Request.Context(), middleware.GetSession(c), flatInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, newFlatPayload(flat))
}

func (h *PropertyHandler) updateFlat(c *gin.Context) {
	var req FlatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}
	flat, err := h.flats.Update(c.Request.Context(), middleware.GetSession(c), c.Param("id"), flatInput(req))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, newFlatPayload(flat))
}

func (h *PropertyHandler) deleteFlat(c *gin.Context) {
	if err := h.flats.Delete(c.Request.Context(), middleware.GetSession(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func buildingInput(req BuildingRequest) usecase.BuildingInput {
	return usecase.BuildingInput{
		Name:                   req.Name,
		Code:                   req.Code,
		TotalFloors:            req.TotalFloors,
		VisibleForRegistration: req.VisibleForRegistration,
	}
}

func flatInput(req FlatRequest) usecase.FlatInput {
	return usecase.FlatInput{
		BuildingID: req.BuildingID,
		FlatNumber: req.FlatNumber,
		Floor:      req.Floor,
		BHKType:    req.BHKType,
	}
}
