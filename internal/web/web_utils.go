package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/models"
	"github.com/go-while/go-webindex/internal/security"
)

// baseTemplate is the layout every view is rendered into
const baseTemplate = "base.html"

// TemplateData represents common template data
type TemplateData struct {
	Title       string
	View        string
	CurrentTime string
	AppVersion  string
	User        *models.User
}

// ErrorPageData represents data for the error page
type ErrorPageData struct {
	TemplateData
	Error      string
	StatusCode int
}

// getBaseTemplateData creates a TemplateData struct with common information including the authenticated user
func (s *WebServer) getBaseTemplateData(c *gin.Context, view, title string) TemplateData {
	data := TemplateData{
		Title:       title,
		View:        view,
		CurrentTime: time.Now().Format("2006-01-02 15:04:05"),
		AppVersion:  config.AppVersion,
	}
	if user, ok := security.UserFromContext(c); ok {
		data.User = user
	}
	return data
}

// loadView parses the layout together with the named view
func (s *WebServer) loadView(view string) (*template.Template, error) {
	tmpl, err := template.ParseFS(s.templates, baseTemplate, view+".html")
	if err != nil {
		return nil, fmt.Errorf("view %q: %w", view, err)
	}
	return tmpl, nil
}

// renderView renders view with data and a 200 status.
// Template errors are passed to renderError unchanged.
func (s *WebServer) renderView(c *gin.Context, view string, data interface{}) {
	tmpl, err := s.loadView(view)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, baseTemplate, data); err != nil {
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)
	_ = c.Error(fmt.Errorf("%s: %s", message, errstring))

	errorData := ErrorPageData{
		TemplateData: s.getBaseTemplateData(c, "error", "Error"),
		Error:        message,
		StatusCode:   statusCode,
	}

	tmpl, err := s.loadView("error")
	if err != nil {
		log.Printf("[WEB]: Error loading error template: %v", err)
		c.String(statusCode, "Error: %s - %s", message, errstring)
		c.Abort()
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, baseTemplate, errorData); err != nil {
		log.Printf("[WEB]: Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s - %s", message, errstring)
		c.Abort()
		return
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
	c.Abort()
}

// View adapts a controller action returning a view name into a gin handler
// that renders that view.
func (s *WebServer) View(action func(c *gin.Context) string, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		view := action(c)
		s.renderView(c, view, s.getBaseTemplateData(c, view, title))
	}
}
