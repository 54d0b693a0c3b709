// Package config provides configuration management for go-webindex.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// EnvPrefix is prepended to every environment override
	EnvPrefix = "WEBINDEX_"

	DefaultListenPort = 11980
	DefaultRealm      = "Realm"
	DefaultUser       = "user"

	AuthStoreMemory = "memory"
	AuthStoreSQLite = "sqlite"
)

// MainConfig holds the main configuration for go-webindex
type MainConfig struct {
	// Mutex for thread-safe access
	mux sync.Mutex `yaml:"-"`

	// Web interface settings
	Web WebConfig `yaml:"web" envPrefix:"WEB_"`

	// Authentication and path exclusion settings
	Security SecurityConfig `yaml:"security" envPrefix:"SECURITY_"`

	// Database settings (only used by the sqlite auth store)
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`

	AppVersion string `yaml:"-"` // Application version, set at build time
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort  int    `yaml:"listen_port" env:"LISTEN_PORT"`
	SSL         bool   `yaml:"ssl" env:"SSL"`
	CertFile    string `yaml:"cert_file,omitempty" env:"CERT_FILE"`
	KeyFile     string `yaml:"key_file,omitempty" env:"KEY_FILE"`
	TemplateDir string `yaml:"template_dir,omitempty" env:"TEMPLATE_DIR"` // empty: embedded templates
	StaticDir   string `yaml:"static_dir,omitempty" env:"STATIC_DIR"`     // empty: embedded static files
	AccessLog   bool   `yaml:"access_log" env:"ACCESS_LOG"`
	Metrics     bool   `yaml:"metrics" env:"METRICS"`
	Debug       bool   `yaml:"debug" env:"DEBUG"` // gin debug mode

	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
}

// SecurityConfig controls the authentication filter in front of all routes
type SecurityConfig struct {
	// Enabled turns on HTTP Basic authentication for every non-ignored path
	Enabled bool `yaml:"enabled" env:"ENABLED"`

	// ApplyControllerRules invokes the controllers' web security hooks.
	// Off by default: the hooks change which paths require authentication.
	ApplyControllerRules bool `yaml:"apply_controller_rules" env:"APPLY_CONTROLLER_RULES"`

	// Ignore lists extra ant-style patterns that bypass authentication
	Ignore []string `yaml:"ignore" env:"IGNORE" envSeparator:","`

	Realm     string `yaml:"realm" env:"REALM"`
	AuthStore string `yaml:"auth_store" env:"AUTH_STORE"` // "memory" or "sqlite"

	// In-memory user. An empty password means one is generated at startup.
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" env:"PATH"` // Path to the users database
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: WebConfig{
			ListenPort:     DefaultListenPort,
			SSL:            false,
			TrustedProxies: []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"},
		},
		Security: SecurityConfig{
			Enabled:   false,
			Realm:     DefaultRealm,
			AuthStore: AuthStoreMemory,
			User:      DefaultUser,
		},
		Database: DatabaseConfig{
			Path: "data/users.sq3",
		},
	}
	return maincfg
}

// LoadFile overlays the YAML file at path onto c.
// Fields missing from the file keep their current values.
func (c *MainConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	c.mux.Lock()
	defer c.mux.Unlock()
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("[CONFIG]: Loaded config file %s", path)
	return nil
}

// ApplyEnv overlays WEBINDEX_* environment variables onto c
func (c *MainConfig) ApplyEnv() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first configuration problem found
func (c *MainConfig) Validate() error {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.Web.ListenPort < 1024 || c.Web.ListenPort > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1024 and 65535)", c.Web.ListenPort)
	}
	if c.Web.SSL && (c.Web.CertFile == "" || c.Web.KeyFile == "") {
		return errors.New("SSL enabled but cert_file or key_file not specified in config")
	}
	switch c.Security.AuthStore {
	case AuthStoreMemory:
		if c.Security.User == "" {
			return errors.New("security.user must be set for the memory auth store")
		}
	case AuthStoreSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path must be set for the sqlite auth store")
		}
	default:
		return fmt.Errorf("unknown auth store %q (want %q or %q)", c.Security.AuthStore, AuthStoreMemory, AuthStoreSQLite)
	}
	if c.Security.Realm == "" {
		c.Security.Realm = DefaultRealm
	}
	return nil
}
