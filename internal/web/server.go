package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/logger"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
	log     *slog.Logger
}

func NewServer(cfg *config.Config, state StateReader, status StatusProbe, hub *Hub, customPort int, log *slog.Logger) *Server {
	log = logger.OrDefault(log)
	handler := NewHandler(cfg, state, status, hub, log)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := net.JoinHostPort(cfg.Web.Host, fmt.Sprint(port))
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
		log:     log.With("component", "web"),
	}
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("starting web server", "url", "http://"+s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down web server")
	if s.handler.hub != nil {
		s.handler.hub.Close()
	}
	return s.server.Shutdown(ctx)
}
