package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/internal/services"
	"github.com/siteflow/siteflow/internal/utils"
	"github.com/siteflow/siteflow/pkg/logger"
	"github.com/siteflow/siteflow/pkg/response"
)

const (
	// ContextPrincipal holds the services.Principal of the request.
	ContextPrincipal = "principal"
	// ContextEmail holds the caller's email when authenticated by token.
	ContextEmail = "email"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The SSE endpoint may pass it as ?token= since EventSource cannot set headers.
func bearerToken(c *gin.Context, allowQuery bool) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	if allowQuery {
		return c.Query("token")
	}
	return ""
}

// AuthRequired resolves the principal from a bearer JWT.
// Requests already carrying a bypass principal pass through untouched.
func AuthRequired() gin.HandlerFunc {
	return authenticate(false)
}

// AuthRequiredWithQueryToken is AuthRequired that also accepts ?token=.
func AuthRequiredWithQueryToken() gin.HandlerFunc {
	return authenticate(true)
}

func authenticate(allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := principalFrom(c); ok && p.Bypass {
			c.Next()
			return
		}

		if c.GetHeader("Authorization") == "" && (!allowQuery || c.Query("token") == "") {
			response.Error(c, response.NewUnauthorized("authorization header required"))
			return
		}
		token := bearerToken(c, allowQuery)
		if token == "" {
			response.Error(c, response.NewUnauthorized("invalid authorization header format"))
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			response.Error(c, response.NewUnauthorized("invalid or expired token"))
			return
		}
		if claims.OrgID == "" {
			response.Error(c, response.NewValidation("Organization ID is required"))
			return
		}
		role := models.Role(claims.Role)
		if !role.Valid() {
			response.Error(c, response.NewForbidden("Unknown role"))
			return
		}

		setPrincipal(c, services.Principal{
			OrgID:  claims.OrgID,
			UserID: claims.UserID,
			Role:   role,
		})
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p services.Principal) {
	c.Set(ContextPrincipal, p)
	c.Set(logger.ContextOrgID, p.OrgID)
}

func principalFrom(c *gin.Context) (services.Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return services.Principal{}, false
	}
	p, ok := v.(services.Principal)
	return p, ok
}

// GetPrincipal returns the principal set by AuthRequired or the bypass seam.
func GetPrincipal(c *gin.Context) services.Principal {
	p, _ := principalFrom(c)
	return p
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	return GetPrincipal(c).UserID
}
