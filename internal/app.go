// Package internal wires the relay together: configuration in, one HTTP
// server out, plus the process lifecycle around it.
package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sigpwny/sveltia-github-auth/internal/config"
	"github.com/sigpwny/sveltia-github-auth/internal/github"
	"github.com/sigpwny/sveltia-github-auth/internal/log"
	"github.com/sigpwny/sveltia-github-auth/internal/server"
)

// App represents the complete OAuth relay application
type App struct {
	cfg        config.Config
	handler    http.Handler
	httpServer *server.HTTPServer
}

// New creates the relay application with all dependencies built.
func New(cfg config.Config) *App {
	gh := github.NewClient(cfg.GitHubClientID, string(cfg.GitHubClientSecret), cfg.GitHubHostname)

	handlers := server.NewAuthHandlers(cfg, gh)
	handler := server.ChainMiddleware(
		server.NewRouter(handlers),
		server.NewLoggerMiddleware("oauth"),
		server.NewRecoverMiddleware("oauth"),
	)

	return &App{
		cfg:        cfg,
		handler:    handler,
		httpServer: server.NewHTTPServer(handler, cfg.Addr),
	}
}

// Handler exposes the relay's HTTP surface, for embedding behind an
// existing server or in tests.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the relay and blocks until a shutdown signal or server error.
func (a *App) Run() error {
	log.LogInfoWithFields("app", "Starting OAuth relay", map[string]any{
		"addr":            a.cfg.Addr,
		"hostname":        a.cfg.GitHubHostname,
		"allowed_domains": len(a.cfg.AllowedDomains),
	})

	errChan := make(chan error, 1)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("app", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("app", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("app", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("app", "Shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}
