package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

func newMetricsRouter(t *testing.T, metrics *HTTPMetrics, session *domain.Session) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(metrics.Handler())
	router.Use(func(c *gin.Context) {
		if session != nil {
			c.Set(SessionKey, session)
		}
		c.Next()
	})
	router.GET("/api/v1/public/notices/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestHTTPMetricsLabelsRouteTemplateAndAudience(t *testing.T) {
	cases := []struct {
		name     string
		session  *domain.Session
		audience string
	}{
		{name: "anonymous", audience: AudienceAnonymous},
		{name: "resident", session: &domain.Session{UserID: "u-1", Role: domain.RolePublic}, audience: AudienceResident},
		{name: "admin", session: &domain.Session{UserID: "u-2", Role: domain.RoleAdmin}, audience: AudienceAdmin},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: prometheus.NewRegistry()})
			if err != nil {
				t.Fatalf("failed to create http metrics: %v", err)
			}

			rr := httptest.NewRecorder()
			newMetricsRouter(t, metrics, tc.session).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/notices/n-42", nil))

			labels := prometheus.Labels{
				"method":   http.MethodGet,
				"route":    "/api/v1/public/notices/:id",
				"status":   "200",
				"audience": tc.audience,
			}
			if got := testutil.ToFloat64(metrics.Requests.With(labels)); got != 1 {
				t.Fatalf("expected request counter 1, got %f", got)
			}
			if got := testutil.ToFloat64(metrics.InFlight); got != 0 {
				t.Fatalf("expected in-flight gauge to return to 0, got %f", got)
			}
			if samples := testutil.CollectAndCount(metrics.Duration); samples == 0 {
				t.Fatal("expected histogram collector to have at least one sample")
			}
		})
	}
}

func TestHTTPMetricsCollapsesUnmatchedPaths(t *testing.T) {
	metrics, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("failed to create http metrics: %v", err)
	}
	router := newMetricsRouter(t, metrics, nil)

	for _, path := range []string{"/wp-login.php", "/.env", "/admin.php"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	labels := prometheus.Labels{
		"method":   http.MethodGet,
		"route":    unmatchedRoute,
		"status":   "404",
		"audience": AudienceAnonymous,
	}
	if got := testutil.ToFloat64(metrics.Requests.With(labels)); got != 3 {
		t.Fatalf("expected 3 unmatched requests, got %f", got)
	}
}

func TestNewHTTPMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewHTTPMetrics(HTTPMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	if first.Requests != second.Requests || first.Duration != second.Duration {
		t.Fatal("expected collectors to be reused")
	}
}

func TestHTTPMetricsHandlerNoopWhenNil(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use((*HTTPMetrics)(nil).Handler())
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
