// Package security holds the web security builder, the ant-style path
// matcher and the HTTP Basic authentication filter used by the web server.
package security

import (
	"fmt"
	"log"
	"sync"
)

// WebSecurity collects request patterns that bypass the security filter.
// It is safe for concurrent use.
type WebSecurity struct {
	mux     sync.RWMutex
	ignored []string
}

// NewWebSecurity returns an empty builder: nothing is ignored
func NewWebSecurity() *WebSecurity {
	return &WebSecurity{}
}

// IgnoredRequestConfigurer adds ignore rules to its WebSecurity
type IgnoredRequestConfigurer struct {
	web *WebSecurity
}

// WebSecurityConfigurer is implemented by components that want to adjust
// which requests the security filter skips.
type WebSecurityConfigurer interface {
	ConfigureWebSecurity(web *WebSecurity) error
}

// Ignoring starts an ignore rule chain
func (w *WebSecurity) Ignoring() *IgnoredRequestConfigurer {
	return &IgnoredRequestConfigurer{web: w}
}

// AntMatchers excludes every request whose path matches one of patterns.
// Registering the same pattern twice keeps a single entry.
func (c *IgnoredRequestConfigurer) AntMatchers(patterns ...string) *IgnoredRequestConfigurer {
	c.web.mux.Lock()
	defer c.web.mux.Unlock()
	for _, pattern := range patterns {
		if c.web.hasPatternLocked(pattern) {
			continue
		}
		c.web.ignored = append(c.web.ignored, pattern)
	}
	return c
}

// And returns the builder to continue the chain
func (c *IgnoredRequestConfigurer) And() *WebSecurity {
	return c.web
}

func (w *WebSecurity) hasPatternLocked(pattern string) bool {
	for _, p := range w.ignored {
		if p == pattern {
			return true
		}
	}
	return false
}

// IgnoredPatterns returns a copy of the registered patterns in registration order
func (w *WebSecurity) IgnoredPatterns() []string {
	w.mux.RLock()
	defer w.mux.RUnlock()
	out := make([]string, len(w.ignored))
	copy(out, w.ignored)
	return out
}

// HasIgnoredPattern reports whether pattern was registered verbatim
func (w *WebSecurity) HasIgnoredPattern(pattern string) bool {
	w.mux.RLock()
	defer w.mux.RUnlock()
	return w.hasPatternLocked(pattern)
}

// IsIgnored reports whether path matches any registered pattern
func (w *WebSecurity) IsIgnored(path string) bool {
	w.mux.RLock()
	defer w.mux.RUnlock()
	for _, pattern := range w.ignored {
		if AntMatch(pattern, path) {
			return true
		}
	}
	return false
}

// ApplyConfigurers runs each configurer against web in order and stops at
// the first error.
func ApplyConfigurers(web *WebSecurity, configurers ...WebSecurityConfigurer) error {
	for _, c := range configurers {
		if err := c.ConfigureWebSecurity(web); err != nil {
			return fmt.Errorf("configure web security (%T): %w", c, err)
		}
	}
	log.Printf("[SECURITY]: Applied %d web security configurers, ignored patterns: %v", len(configurers), web.IgnoredPatterns())
	return nil
}
