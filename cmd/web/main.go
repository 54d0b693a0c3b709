// Web server for go-webindex
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-webindex/internal/config"
	"github.com/go-while/go-webindex/internal/database"
	"github.com/go-while/go-webindex/internal/security"
	"github.com/go-while/go-webindex/internal/web"
)

var (
	// command-line flags
	configFile       string
	webport          int
	webssl           bool
	webcertFile      string
	webkeyFile       string
	websecurity      bool
	controllerRules  bool
	templateDir      string
	staticDir        string
	pprofAddr        string
	shutdownDeadline = 10 * time.Second
)

var appVersion = "-unset-"

var Prof *prof.Profiler

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", "", "YAML config file (optional)")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.BoolVar(&websecurity, "websecurity", false, "Require HTTP Basic authentication for all non-ignored paths")
	flag.BoolVar(&controllerRules, "websecurity-controller-rules", false, "Apply the controllers' web security rules (excludes /css from authentication)")
	flag.StringVar(&templateDir, "templates", "", "Load templates from this directory instead of the embedded ones")
	flag.StringVar(&staticDir, "static", "", "Serve static files from this directory instead of the embedded ones")
	flag.StringVar(&pprofAddr, "pprof", "", "Start the profiler web UI on this address (e.g. ':51111')")
	flag.Parse()

	log.Printf("Starting go-webindex: Web Server (version: %s)", appVersion)

	mainConfig := config.NewDefaultConfig()
	if configFile != "" {
		if err := mainConfig.LoadFile(configFile); err != nil {
			log.Fatalf("[WEB]: %v", err)
		}
	}
	if err := mainConfig.ApplyEnv(); err != nil {
		log.Fatalf("[WEB]: Error reading environment: %v", err)
	}
	applyFlags(mainConfig)

	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}
	log.Printf("[WEB]: Using WEB configuration: %#v", mainConfig.Web)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: Profiler web UI on %s", pprofAddr)
	}

	var db *database.Database
	var auth security.Authenticator
	if mainConfig.Security.Enabled {
		var err error
		auth, db, err = newAuthenticator(mainConfig)
		if err != nil {
			log.Fatalf("[WEB]: Failed to initialize authentication: %v", err)
		}
	}

	controllers := []web.Controller{web.IndexController{}}
	filter, err := web.NewSecurityFilter(&mainConfig.Security, auth, web.SecurityConfigurers(controllers...)...)
	if err != nil {
		log.Fatalf("[WEB]: Failed to configure web security: %v", err)
	}

	protocol := "http"
	if mainConfig.Web.SSL {
		protocol = "https"
	}
	log.Printf("[WEB]: Starting go-webindex web server on %s://localhost:%d", protocol, mainConfig.Web.ListenPort)

	server := web.NewServer(&mainConfig.Web, filter, controllers...)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case sig := <-sigChan:
		log.Printf("[WEB]: Received %s, initiating graceful shutdown...", sig)
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: %v", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			log.Printf("[WEB]: Failed to close database: %v", err)
		} else {
			log.Printf("[WEB]: Database closed")
		}
	}

	log.Printf("[WEB]: Graceful shutdown completed")
} // end main

// applyFlags overrides config values with command-line flags if provided
func applyFlags(cfg *config.MainConfig) {
	if webport > 0 {
		cfg.Web.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webport)
	}
	if webssl {
		cfg.Web.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		cfg.Web.CertFile = webcertFile
		log.Printf("[WEB]: SSL cert file set: %s", webcertFile)
	}
	if webkeyFile != "" {
		cfg.Web.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL key file set: %s", webkeyFile)
	}
	if websecurity {
		cfg.Security.Enabled = true
	}
	if controllerRules {
		cfg.Security.ApplyControllerRules = true
	}
	if templateDir != "" {
		cfg.Web.TemplateDir = templateDir
	}
	if staticDir != "" {
		cfg.Web.StaticDir = staticDir
	}
}

// newAuthenticator opens the configured user store.
// The returned database is nil for the memory store.
func newAuthenticator(cfg *config.MainConfig) (security.Authenticator, *database.Database, error) {
	switch cfg.Security.AuthStore {
	case config.AuthStoreSQLite:
		db, err := database.OpenDatabase(cfg.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, err
		}
		users, err := db.GetAllUsers()
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if len(users) == 0 {
			log.Printf("[WEB]: WARNING: users database %s is empty, create a user with usermgr -create", cfg.Database.Path)
		}
		return db, db, nil
	default:
		auth, _, err := security.NewMemoryAuthenticator(cfg.Security.User, cfg.Security.Password)
		if err != nil {
			return nil, nil, err
		}
		return auth, nil, nil
	}
}
