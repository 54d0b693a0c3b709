// Package web provides the HTTP server and web interface for go-webindex
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/models"
	"github.com/go-while/go-webindex/internal/security"
)

// WebServer represents the web server
type WebServer struct {
	Router    *gin.Engine
	Config    *config.WebConfig
	Filter    *security.Filter // nil when authentication is disabled
	StartTime time.Time        // Track server start time for uptime calculations

	templates fs.FS
	static    fs.FS
	srv       *http.Server
}

// NewServer creates a new web server instance.
// A nil filter leaves every route unauthenticated.
func NewServer(webconfig *config.WebConfig, filter *security.Filter, controllers ...Controller) *WebServer {
	if webconfig.Debug {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// exact paths only, "/css" and "/css/" are different resources
	router.RedirectTrailingSlash = false

	if err := router.SetTrustedProxies(webconfig.TrustedProxies); err != nil {
		log.Printf("[WEB]: Warning: invalid trusted proxies %v: %v", webconfig.TrustedProxies, err)
	}

	server := &WebServer{
		Router:    router,
		Config:    webconfig,
		Filter:    filter,
		templates: templateFS(webconfig.TemplateDir),
		static:    staticFS(webconfig.StaticDir),
		srv: &http.Server{
			Addr:              ":" + strconv.Itoa(webconfig.ListenPort),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Use(gin.Recovery())
	if webconfig.AccessLog {
		router.Use(server.ApacheLogFormat())
	}

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	// Add reverse proxy middleware for handling X-Forwarded headers
	router.Use(server.ReverseProxyMiddleware())

	if webconfig.Metrics {
		router.Use(server.MetricsMiddleware())
	}

	if filter != nil {
		router.Use(filter.Handler())
		log.Printf("[WEB]: Authentication enabled, ignored patterns: %v", filter.WebSecurity().IgnoredPatterns())
	} else {
		log.Printf("[WEB]: Authentication disabled")
	}

	server.setupRoutes(controllers)
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes(controllers []Controller) {
	css := StaticHandler(s.static, "/css")
	s.Router.GET("/css/*filepath", css)
	s.Router.HEAD("/css/*filepath", css)

	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	if s.Config.Metrics {
		s.Router.GET("/metrics", metricsHandler())
	}

	for _, ctrl := range controllers {
		ctrl.Register(s)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page Not Found", c.Request.URL.Path)
	})
}

// ServeHTTP lets the server be used as an http.Handler
func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// Start starts the web server with SSL support if configured.
// It blocks until the server stops; after Shutdown it returns nil.
func (s *WebServer) Start() error {
	addr := s.srv.Addr
	s.StartTime = time.Now() // Set the start time for uptime calculations

	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.srv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server. A later Start returns immediately.
func (s *WebServer) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	log.Printf("[WEB]: Server stopped")
	return nil
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = strings.TrimSpace(strings.Split(host, ",")[0])
		}

		c.Next()
	}
}

// ApacheLogFormat writes access log lines in Apache combined format
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - %s [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			remoteUser(param),
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
		)
	})
}

// remoteUser returns the authenticated username for the access log, "-" if none
func remoteUser(param gin.LogFormatterParams) string {
	if u, ok := param.Keys[security.ContextUserKey].(*models.User); ok && u != nil {
		return u.Username
	}
	return "-"
}
