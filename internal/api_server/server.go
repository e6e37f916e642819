package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/config"
	handlers "github.com/wireline-net/wireline/internal/handlers/v1"
	"github.com/wireline-net/wireline/internal/service"
	"github.com/wireline-net/wireline/pkg/metrics"
	"github.com/wireline-net/wireline/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg       *config.Config
	jobSrv    *service.JobService
	deviceSrv *service.DeviceService
	listener  net.Listener
}

// New returns a new instance of the wireline API server.
func New(
	cfg *config.Config,
	jobService *service.JobService,
	deviceService *service.DeviceService,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:       cfg,
		jobSrv:    jobService,
		deviceSrv: deviceService,
		listener:  listener,
	}
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	authenticator, err := auth.NewAuthenticator(s.cfg.Service.Auth)
	if err != nil {
		return fmt.Errorf("failed to create authenticator: %w", err)
	}

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	// health stays outside the authenticated group so probes need no token
	router.Get("/health", handlers.Health)

	router.Group(func(r chi.Router) {
		r.Use(authenticator.Authenticator)
		handlers.NewHandler(s.jobSrv, s.deviceSrv).RegisterRoutes(r)
	})

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
