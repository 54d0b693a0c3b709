package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/security"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, mutate func(cfg *config.MainConfig), auth security.Authenticator) *WebServer {
	t.Helper()
	cfg := config.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	controllers := []Controller{IndexController{}}
	filter, err := NewSecurityFilter(&cfg.Security, auth, SecurityConfigurers(controllers...)...)
	require.NoError(t, err)
	return NewServer(&cfg.Web, filter, controllers...)
}

func serve(s http.Handler, method, path string, setAuth func(r *http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if setAuth != nil {
		setAuth(req)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func memoryAuth(t *testing.T) security.Authenticator {
	t.Helper()
	auth, _, err := security.NewMemoryAuthenticator("user", "secret")
	require.NoError(t, err)
	return auth
}

func TestGetRootRendersIndexView(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "It works.")
	assert.Contains(t, w.Body.String(), `href="/css/site.css"`)
}

func TestGetRootIgnoresRequestHeaders(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/?view=error", func(r *http.Request) {
		r.Header.Set("Accept", "application/json")
		r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "It works.")
}

func TestHeadRoot(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodHead, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestStaticCSS(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/css/site.css", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/css"))
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), "max-width")

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/css/", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/css/missing.css", nil).Code)
}

func TestPingAndRobots(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = serve(s, http.MethodGet, "/robots.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User-agent: *")
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := serve(s, http.MethodGet, "/nope", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page Not Found")
}

func TestCustomTemplateDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(`<html>{{template "content" .}}</html>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{define "content"}}custom {{.View}}{{end}}`), 0o600))

	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Web.TemplateDir = dir }, nil)

	w := serve(s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html>custom index</html>", w.Body.String())
}

func TestMissingIndexTemplatePropagatesAsServerError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(`<html>{{template "content" .}}</html>`), 0o600))

	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Web.TemplateDir = dir }, nil)

	w := serve(s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Template error")
}

func TestBrokenIndexTemplatePropagatesAsServerError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.html"), []byte(`<html>{{template "content" .}}</html>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte(`{{define "content"}}{{.NoSuchField}}{{end}}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "error.html"), []byte(`{{define "content"}}failed: {{.StatusCode}}{{end}}`), 0o600))

	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Web.TemplateDir = dir }, nil)

	w := serve(s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "<html>failed: 500</html>", w.Body.String())
}

func TestNewSecurityFilterDisabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Security.ApplyControllerRules = true

	filter, err := NewSecurityFilter(&cfg.Security, nil, IndexController{})
	require.NoError(t, err)
	assert.Nil(t, filter)
}

func TestNewSecurityFilterRequiresAuthenticator(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Security.Enabled = true

	_, err := NewSecurityFilter(&cfg.Security, nil)
	require.Error(t, err)
}

func TestNewSecurityFilterLeavesControllerHookDormant(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Security.Enabled = true

	filter, err := NewSecurityFilter(&cfg.Security, memoryAuth(t), IndexController{})
	require.NoError(t, err)
	require.NotNil(t, filter)
	assert.Empty(t, filter.WebSecurity().IgnoredPatterns())
}

func TestNewSecurityFilterAppliesControllerHookWhenEnabled(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Security.Enabled = true
	cfg.Security.ApplyControllerRules = true
	cfg.Security.Ignore = []string{"/ping"}

	filter, err := NewSecurityFilter(&cfg.Security, memoryAuth(t), IndexController{})
	require.NoError(t, err)
	assert.Equal(t, []string{"/ping", "/css"}, filter.WebSecurity().IgnoredPatterns())
}

func TestSecuredRootRequiresCredentials(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Security.Enabled = true }, memoryAuth(t))

	w := serve(s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="Realm"`, w.Header().Get("WWW-Authenticate"))

	w = serve(s, http.MethodGet, "/", func(r *http.Request) { r.SetBasicAuth("user", "secret") })
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "It works.")
	assert.Contains(t, w.Body.String(), `<span class="user">user</span>`)
}

func TestSecuredCSSWithoutControllerRules(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Security.Enabled = true }, memoryAuth(t))

	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/css", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/css/site.css", nil).Code)
}

func TestSecuredCSSWithControllerRules(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) {
		cfg.Security.Enabled = true
		cfg.Security.ApplyControllerRules = true
	}, memoryAuth(t))

	// "/css" skips authentication and falls through to the not found page
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/css", nil).Code)
	// the literal pattern leaves files below /css protected
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/css/site.css", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/", nil).Code)
}

func TestSecuredConfiguredIgnorePattern(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) {
		cfg.Security.Enabled = true
		cfg.Security.Ignore = []string{"/css/**"}
	}, memoryAuth(t))

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/css/site.css", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(s, http.MethodGet, "/", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Web.Metrics = true }, nil)

	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/", nil).Code)

	w := serve(s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `webindex_http_requests_total{code="200",method="GET",route="/"}`)
}

func TestMetricsDisabledByDefault(t *testing.T) {
	s := newTestServer(t, nil, nil)

	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodGet, "/metrics", nil).Code)
}

func TestShutdownStopsStart(t *testing.T) {
	s := newTestServer(t, func(cfg *config.MainConfig) { cfg.Web.ListenPort = 18999 }, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	// Start after Shutdown returns immediately without error
	assert.NoError(t, s.Start())
}

func TestStartRejectsSSLWithoutCertificates(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Web.SSL = true
	s := NewServer(&cfg.Web, nil, IndexController{})

	require.Error(t, s.Start())
}
