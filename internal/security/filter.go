package security

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-webindex/internal/models"
)

// ContextUserKey is the gin context key holding the authenticated *models.User
const ContextUserKey = "user"

// Filter enforces HTTP Basic authentication on every request whose path is
// not ignored by its WebSecurity.
type Filter struct {
	web   *WebSecurity
	auth  Authenticator
	realm string
}

// NewFilter creates a security filter
func NewFilter(web *WebSecurity, auth Authenticator, realm string) *Filter {
	return &Filter{web: web, auth: auth, realm: realm}
}

// WebSecurity returns the builder the filter consults
func (f *Filter) WebSecurity() *WebSecurity {
	return f.web
}

// Handler returns the gin middleware
func (f *Filter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if f.web.IsIgnored(c.Request.URL.Path) {
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok || strings.TrimSpace(username) == "" {
			f.challenge(c)
			return
		}

		user, err := f.auth.Authenticate(c.Request.Context(), username, password)
		if err != nil {
			if !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrUserNotFound) {
				log.Printf("[SECURITY]: Authentication backend error for '%s': %v", username, err)
			}
			f.challenge(c)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

func (f *Filter) challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="`+f.realm+`"`)
	c.AbortWithStatus(http.StatusUnauthorized)
}

// UserFromContext returns the user stored by the filter, if any
func UserFromContext(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
