package middleware

import (
	"net/http"
	"strings"

	"music_stream/internal/config"
	"music_stream/internal/domain"
	"music_stream/internal/service"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/jwt"
	"music_stream/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth.
const (
	ContextUserID          = "user_id"
	ContextUserEmail       = "user_email"
	ContextUserDisplayName = "user_display_name"
)

// AuthMiddleware verifies identity-provider tokens and provisions the user on first sight.
type AuthMiddleware struct {
	secret     string
	issuer     string
	adminEmail string
	users      service.UserService
	log        logger.Logger
}

func NewAuthMiddleware(cfg config.AuthConfig, users service.UserService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret:     cfg.JWTSecret,
		issuer:     cfg.Issuer,
		adminEmail: strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		users:      users,
		log:        log,
	}
}

// RequireAuth accepts "Authorization: Bearer <token>" or, for websocket
// upgrades where browsers cannot set headers, a token query parameter.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			m.log.Debug("Missing token", "path", c.Request.URL.Path)
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		claims, err := jwt.ValidateToken(token, m.secret, m.issuer)
		if err != nil {
			m.log.Warn("Token validation failed", "error", err)
			abortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		user := &domain.User{
			ID:          claims.UserID(),
			Email:       strings.ToLower(claims.Email),
			DisplayName: claims.Name,
			AvatarURL:   claims.Picture,
		}
		if err := m.users.EnsureUser(c.Request.Context(), user); err != nil {
			m.log.Error("Failed to provision user", "user_id", user.ID, "error", err)
			abortWithError(c, err)
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextUserDisplayName, user.DisplayName)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.IsAdmin(c) {
			abortWithError(c, apperrors.ErrAdminOnly)
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) IsAdmin(c *gin.Context) bool {
	return m.adminEmail != "" && c.GetString(ContextUserEmail) == m.adminEmail
}

// UserID returns the authenticated caller set by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

func abortWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatusFromError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, apperrors.FromError(err))
}
