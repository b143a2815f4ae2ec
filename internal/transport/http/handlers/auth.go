package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/transport/http/middleware"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// Authenticator verifies credentials and issues sessions.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password, ip string) (usecase.LoginResult, error)
}

// Registrar onboards new residents.
type Registrar interface {
	Register(ctx context.Context, input usecase.RegisterInput) (usecase.RegisterResult, error)
}

// RegistrationBuildings lists the buildings offered on the registration form.
type RegistrationBuildings interface {
	ListForRegistration(ctx context.Context) ([]domain.Building, error)
}

// AuthHandler exposes login, logout and self-registration.
type AuthHandler struct {
	auth         Authenticator
	registration Registrar
	buildings    RegistrationBuildings
	cookie       middleware.CookieOptions
	log          *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth Authenticator, registration Registrar, buildings RegistrationBuildings, cookie middleware.CookieOptions, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		auth:         auth,
		registration: registration,
		buildings:    buildings,
		cookie:       cookie,
		log:          log,
	}
}

// RegisterRoutes binds authentication routes. Login and register accept
// extra middleware, typically rate limits, ahead of the handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares, registerMiddlewares []gin.HandlerFunc) {
	r.POST("/login", append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.login)...)
	r.POST("/register", append(append([]gin.HandlerFunc{}, registerMiddlewares...), h.register)...)
	r.POST("/logout", h.logout)
	r.GET("/session", h.session)
	r.GET("/buildings", h.registrationBuildings)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	result, err := h.auth.Authenticate(c.Request.Context(), strings.TrimSpace(req.Email), req.Password, c.ClientIP())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetSessionCookie(c, h.cookie, result.Token, result.ExpiresAt)
	respond(c, http.StatusOK, LoginResponse{
		Token:   result.Token,
		Session: newSessionPayload(result.Session),
		User:    newUserPayload(result.User),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.cookie)
	respond(c, http.StatusOK, gin.H{"loggedOut": true})
}

func (h *AuthHandler) session(c *gin.Context) {
	session := middleware.GetSession(c)
	if session == nil {
		respondError(c, h.log, usecase.ErrUnauthorized)
		return
	}
	respond(c, http.StatusOK, newSessionPayload(*session))
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidBody(c)
		return
	}

	result, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		BuildingID:      req.BuildingID,
		FlatNumber:      req.FlatNumber,
		Floor:           req.Floor,
		UserType:        req.UserType,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respond(c, http.StatusCreated, RegisterResponse{
		UserID:           result.UserID,
		FlatID:           result.FlatID,
		Status:           result.Status,
		PasswordStrength: result.PasswordStrength,
	})
}

func (h *AuthHandler) registrationBuildings(c *gin.Context) {
	buildings, err := h.buildings.ListForRegistration(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, mapSlice(buildings, newBuildingPayload))
}
