package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/jobscout/internal/api"
	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/reporter"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger logger.Logger
}

// SetupHTTPServer builds the router and the HTTP server around it.
func SetupHTTPServer(cfg *config.Config, deps *Deps, log logger.Logger) *Server {
	search := api.NewSearchHandler(deps.Jobs, deps.Dispatcher, reporter.New(), deps.Generative.Enabled(), log)
	companies := api.NewCompanyHandler(deps.Companies, deps.Profiles, deps.Emails, log)
	router := api.NewRouter(search, companies, cfg.Server.CORSOrigins, log)

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		logger: log,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
