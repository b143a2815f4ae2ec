package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/usecase"
)

// SessionResolver turns a presented token into a session whose status and
// role reflect the current user record.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (domain.Session, error)
}

// CookieOptions describes the session cookie.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with the session.
func SetSessionCookie(c *gin.Context, opts CookieOptions, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.Name, token, maxAge, "/", opts.Domain, opts.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.Name, "", -1, "/", opts.Domain, opts.Secure, true)
}

// Session resolves the caller's session from the session cookie or a Bearer
// token. Requests without a usable session continue anonymously; the guard
// decides whether the path needs one.
func Session(resolver SessionResolver, opts CookieOptions, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token, fromCookie := presentedToken(c, opts.Name)
		if token == "" || resolver == nil {
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, usecase.ErrSessionInvalid) {
				logger.Scoped(c.Request.Context(), log).Error("resolve session failed", zap.Error(err))
			}
			if fromCookie {
				ClearSessionCookie(c, opts)
			}
			c.Next()
			return
		}

		c.Set(SessionKey, &session)
		GetRequestContext(c).UserID = session.UserID
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey{}, session.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func presentedToken(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token), false
		}
	}
	if cookieName == "" {
		return "", false
	}
	if value, err := c.Cookie(cookieName); err == nil && value != "" {
		return value, true
	}
	return "", false
}
