package web

import (
	"fmt"
	"log"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/security"
)

// NewSecurityFilter builds the authentication filter described by cfg.
// It returns nil when authentication is disabled.
//
// Configured ignore patterns are always registered. The configurers (usually
// the controllers) are only invoked when cfg.ApplyControllerRules is set.
func NewSecurityFilter(cfg *config.SecurityConfig, auth security.Authenticator, configurers ...security.WebSecurityConfigurer) (*security.Filter, error) {
	if !cfg.Enabled {
		if cfg.ApplyControllerRules {
			log.Printf("[SECURITY]: apply_controller_rules has no effect while security is disabled")
		}
		return nil, nil
	}
	if auth == nil {
		return nil, fmt.Errorf("security enabled without an authenticator")
	}

	web := security.NewWebSecurity()
	if len(cfg.Ignore) > 0 {
		web.Ignoring().AntMatchers(cfg.Ignore...)
	}

	if cfg.ApplyControllerRules {
		log.Printf("[SECURITY]: WARNING: applying controller web security rules, matching paths will skip authentication")
		if err := security.ApplyConfigurers(web, configurers...); err != nil {
			return nil, err
		}
	}

	return security.NewFilter(web, auth, cfg.Realm), nil
}

// SecurityConfigurers returns the controllers that also configure web security
func SecurityConfigurers(controllers ...Controller) []security.WebSecurityConfigurer {
	var out []security.WebSecurityConfigurer
	for _, c := range controllers {
		if sc, ok := c.(security.WebSecurityConfigurer); ok {
			out = append(out, sc)
		}
	}
	return out
}
