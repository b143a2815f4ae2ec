package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/greenvalley/society-portal/internal/core/domain"
	"github.com/greenvalley/society-portal/internal/infra/logger"
	"github.com/greenvalley/society-portal/internal/usecase"
)

type stubResolver struct {
	sessions map[string]domain.Session
	err      error
	calls    int
}

func (s *stubResolver) Resolve(_ context.Context, token string) (domain.Session, error) {
	s.calls++
	if s.err != nil {
		return domain.Session{}, s.err
	}
	session, ok := s.sessions[token]
	if !ok {
		return domain.Session{}, usecase.ErrSessionInvalid
	}
	return session, nil
}

var testCookie = CookieOptions{Name: "society_session"}

func sessionRouter(t *testing.T, resolver SessionResolver) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seen := new(string)
	router := gin.New()
	router.Use(EnrichContext(), Session(resolver, testCookie, zaptest.NewLogger(t)))
	router.GET("/whoami", func(c *gin.Context) {
		if session := GetSession(c); session != nil {
			*seen = session.UserID
			if id, _ := c.Request.Context().Value(logger.UserIDKey{}).(string); id != session.UserID {
				t.Errorf("user id missing from request context")
			}
		}
		c.Status(http.StatusOK)
	})
	return router, seen
}

func TestSessionFromCookieAndBearer(t *testing.T) {
	resolver := &stubResolver{sessions: map[string]domain.Session{
		"cookie-token": {UserID: "u-cookie", Role: domain.RoleOwner},
		"bearer-token": {UserID: "u-bearer", Role: domain.RoleAdmin},
	}}
	router, seen := sessionRouter(t, resolver)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "cookie-token"})
	router.ServeHTTP(httptest.NewRecorder(), req)
	if *seen != "u-cookie" {
		t.Fatalf("expected cookie session, got %q", *seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer bearer-token")
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "cookie-token"})
	router.ServeHTTP(httptest.NewRecorder(), req)
	if *seen != "u-bearer" {
		t.Fatalf("expected bearer session to win, got %q", *seen)
	}
}

func TestSessionInvalidCookieIsCleared(t *testing.T) {
	resolver := &stubResolver{}
	router, seen := sessionRouter(t, resolver)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "revoked"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || *seen != "" {
		t.Fatalf("expected anonymous request, got status %d user %q", rr.Code, *seen)
	}
	cleared := false
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == testCookie.Name && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestSessionResolverFailureFallsBackToAnonymous(t *testing.T) {
	resolver := &stubResolver{err: errors.New("redis down")}
	router, seen := sessionRouter(t, resolver)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || *seen != "" {
		t.Fatalf("expected anonymous request, got status %d user %q", rr.Code, *seen)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("bearer failures must not touch cookies")
	}
}

func TestSessionSkipsResolverWithoutToken(t *testing.T) {
	resolver := &stubResolver{}
	router, _ := sessionRouter(t, resolver)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if resolver.calls != 0 {
		t.Fatalf("resolver called %d times for anonymous request", resolver.calls)
	}
}
