package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/readledger/readledger/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// Middleware authenticates requests on protected route groups.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// RequireUser rejects requests that carry neither a valid Bearer access
// key nor a logged-in session.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Try Bearer access key first (for API clients)
		if user := m.tryBearerAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeBearer)
			c.Next()
			return
		}

		// Fall back to session auth (for browsers)
		if user := m.trySessionAuth(c); user != nil {
			m.setUserContext(c, user, AuthTypeSession)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	header := c.GetHeader("Authorization")
	if header == "" {
		return nil
	}
	key, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil
	}

	user, err := m.service.ResolveAccessKey(strings.TrimSpace(key))
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	id := m.sessionManager.SessionUserID(c.Request)
	if id == 0 {
		return nil
	}
	user, err := m.service.GetUser(id)
	if err != nil {
		return nil
	}
	return user
}

func (m *Middleware) setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyAuthType, authType)
}

// UserID extracts the authenticated user's ID from the request context.
func UserID(c *gin.Context) uint {
	if v, ok := c.Get(ContextKeyUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
