package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const DefaultAddress = ":8080"

type ApiConfig struct {
	Address         string        `yaml:"Address"`
	ReadTimeout     time.Duration `yaml:"ReadTimeout"`
	ShutdownTimeout time.Duration `yaml:"ShutdownTimeout"`
}

// Server owns the HTTP listener for the dashboard API.
type Server struct {
	e        *echo.Echo
	srv      *http.Server
	shutdown time.Duration
	logger   zerolog.Logger
}

func NewServer(conf ApiConfig, deps *Dependencies) *Server {
	if conf.Address == "" {
		conf.Address = DefaultAddress
	}
	if conf.ReadTimeout <= 0 {
		conf.ReadTimeout = 15 * time.Second
	}
	if conf.ShutdownTimeout <= 0 {
		conf.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		e: NewEcho(deps),
		srv: &http.Server{
			Addr:        conf.Address,
			ReadTimeout: conf.ReadTimeout,
		},
		shutdown: conf.ShutdownTimeout,
		logger:   deps.Logger.With().Str("component", "api").Logger(),
	}
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// Start serves until ctx is cancelled, then shuts the listener down gracefully.
func (s *Server) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.logger.Info().Str("address", s.srv.Addr).Msg("api listening")
		if err := s.e.StartServer(s.srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("api server stopped")
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		if err := s.e.Shutdown(sctx); err != nil {
			s.logger.Error().Err(err).Msg("api shutdown")
		}
		s.logger.Warn().Msg("context received signal, api stopped")
	}()
}
