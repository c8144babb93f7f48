package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/domain"
)

const (
	headerUserID      = "X-User-ID"
	headerUserRole    = "X-User-Role"
	headerCartSession = "X-Cart-Session"

	ctxUser    = "user"
	ctxSession = "cart_session"
)

// identity читает пользователя, которого проставил внешний провайдер аутентификации.
// Без заголовков запрос анонимный с ролью customer.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := domain.User{ID: c.GetHeader(headerUserID), Role: domain.RoleCustomer}
		switch r := domain.Role(c.GetHeader(headerUserRole)); r {
		case domain.RoleStaff, domain.RoleAdmin:
			if u.ID != "" {
				u.Role = r
			}
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(domain.User); ok {
			return u
		}
	}
	return domain.User{Role: domain.RoleCustomer}
}

// requireRole гейтинг маршрутов по роли
func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		for _, r := range roles {
			if u.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// cartSession берёт id корзины из заголовка или выдаёт новый
func cartSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerCartSession)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(headerCartSession, id)
		c.Set(ctxSession, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(ctxSession)
}
