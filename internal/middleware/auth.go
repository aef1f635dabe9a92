// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/naturelicensing/trapreg/internal/utils"
)

const LoginSubjectKey = "login_registration_id"

// LoginTokenAuth verifies the Bearer token issued by the login-link flow
// and stores its subject, the registration id the holder may act on, in
// the request context. Handlers compare it against the path parameter.
func LoginTokenAuth(keys *utils.LoginKeys) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.UnauthorizedResponse(c, "Bearer token required")
			c.Abort()
			return
		}

		subject, err := keys.Verify(tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(LoginSubjectKey, subject)
		c.Next()
	}
}
