package web

import (
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-webindex/internal/security"
)

const (
	// IndexView is the view rendered for "/"
	IndexView = "index"

	// CSSPath is the path IndexController excludes from authentication
	CSSPath = "/css"
)

// Controller registers its routes on a WebServer
type Controller interface {
	Register(s *WebServer)
}

// IndexController serves the root page
type IndexController struct{}

var (
	_ Controller                     = IndexController{}
	_ security.WebSecurityConfigurer = IndexController{}
)

// Register handles GET and HEAD on "/"
func (ic IndexController) Register(s *WebServer) {
	index := s.View(ic.Index, "Home")
	s.Router.GET("/", index)
	s.Router.HEAD("/", index)
}

// Index returns the view for "/". The request is not inspected.
func (IndexController) Index(*gin.Context) string {
	return IndexView
}

// ConfigureWebSecurity excludes "/css" from authentication.
// Nothing calls this unless security.apply_controller_rules is set.
func (IndexController) ConfigureWebSecurity(web *security.WebSecurity) error {
	web.Ignoring().AntMatchers(CSSPath)
	return nil
}
