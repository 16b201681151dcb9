package middleware

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/catalog-review-backend/internal/errors"
	"github.com/ikkim/catalog-review-backend/pkg/util"
)

// Context keys for staff information
const (
	EmployeeIDKey    = "employee_id"
	EmployeeEmailKey = "employee_email"
	EmployeeRoleKey  = "employee_role"
)

// 직원 권한
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
	}
}

// Authenticate validates the staff bearer token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Missing authorization header", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthUnauthorized, "로그인이 필요합니다")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "인증 형식이 올바르지 않습니다")
			return
		}

		claims, err := util.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			})

			// 토큰 만료 에러인 경우 명확히 표시
			if stdErrors.Is(err, util.ErrExpiredToken) {
				errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenExpired, "로그인이 만료되었습니다")
			} else {
				errors.AbortWithError(c, http.StatusUnauthorized, errors.AuthTokenInvalid, "유효하지 않은 인증 토큰입니다")
			}
			return
		}

		c.Set(EmployeeIDKey, claims.EmployeeID)
		c.Set(EmployeeEmailKey, claims.Email)
		c.Set(EmployeeRoleKey, claims.Role)

		log.Debug("Employee authenticated successfully", map[string]interface{}{
			"employee_id": claims.EmployeeID,
			"role":        claims.Role,
		})

		c.Next()
	}
}

// RequireRole checks if the employee has one of roles
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		role, exists := GetEmployeeRole(c)
		if !exists {
			log.Warn("Role information not found in context", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			errors.AbortWithError(c, http.StatusForbidden, errors.AuthzForbidden, "권한 정보를 찾을 수 없습니다")
			return
		}

		employeeID, _ := GetEmployeeID(c)

		for _, r := range roles {
			if role == r {
				log.Debug("Role check passed", map[string]interface{}{
					"employee_id":   employeeID,
					"role":          role,
					"required_role": r,
				})
				c.Next()
				return
			}
		}

		log.Warn("Insufficient permissions", map[string]interface{}{
			"employee_id":    employeeID,
			"role":           role,
			"required_roles": roles,
			"path":           c.Request.URL.Path,
		})
		errors.AbortWithError(c, http.StatusForbidden, errors.AuthzStaffOnly, "접근 권한이 없습니다")
	}
}

// GetEmployeeID extracts the employee ID from context
func GetEmployeeID(c *gin.Context) (string, bool) {
	return getString(c, EmployeeIDKey)
}

// GetEmployeeEmail extracts the employee email from context
func GetEmployeeEmail(c *gin.Context) (string, bool) {
	return getString(c, EmployeeEmailKey)
}

// GetEmployeeRole extracts the employee role from context
func GetEmployeeRole(c *gin.Context) (string, bool) {
	return getString(c, EmployeeRoleKey)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
