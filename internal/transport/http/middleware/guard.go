package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/greenvalley/society-portal/internal/core/domain"
)

// Guard enforces the route access rules. Denied requests, whether anonymous
// or lacking the ADMIN role, are redirected to the login path with the
// original path in the next parameter.
func Guard(rules domain.AccessRules, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := domain.Authorize(GetSession(c), c.Request.URL.Path, rules)
		if decision.Allowed() {
			c.Next()
			return
		}

		location := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		if decision == domain.DecisionDenyForbidden {
			location += "&reason=forbidden"
		}
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusSeeOther, location)
		c.Abort()
	}
}
