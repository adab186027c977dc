package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fleet-dispatch/internal/admin-service/adapters/driven/db"
	"fleet-dispatch/internal/admin-service/adapters/driver/myhttp/handle"
	"fleet-dispatch/internal/admin-service/core/ports"
	"fleet-dispatch/internal/admin-service/core/service"
	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/middleware"
	"fleet-dispatch/internal/mylogger"
)

var ErrServerClosed = errors.New("Server closed")

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     ports.IDB
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	return &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if s.cfg.Store.Driver != config.StoreDriverPostgres {
		return fmt.Errorf("admin service reads bookings from postgres, STORE_DRIVER=%q is not supported", s.cfg.Store.Driver)
	}

	conn, err := db.Start(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = conn
	mylog.Action("db_connected").Info("Successful database connection")

	s.Configure(conn)

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Srv.AdminServicePort),
		Handler:           s.mux,
		ReadHeaderTimeout: WaitTime * time.Second,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.AdminServicePort, "partitions", s.cfg.Analytics.Partitions)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure registers the analytics and health routes.
func (s *Server) Configure(conn *db.DB) {
	bookingsRepo := db.NewBookingsRepo(conn.GetConn())

	aggregator := service.NewAnalyticsAggregator(s.mylog, bookingsRepo, service.AggregatorOptions{
		Partitions:              s.cfg.Analytics.Partitions,
		MaxWindowDays:           s.cfg.Analytics.MaxWindowDays,
		ExcludeCancelledRevenue: s.cfg.Analytics.ExcludeCancelledRevenue,
	})

	analyticsHandler := handle.NewAnalyticsHandler(s.mylog, aggregator)
	healthHandler := handle.NewHealthHandler(conn)

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret, middleware.RoleAdmin)
	timeout := time.Duration(s.cfg.Srv.RequestTimeoutSec) * time.Second

	s.mux.Handle("GET /admin/analytics", authMiddleware.Wrap(http.TimeoutHandler(analyticsHandler.GetAnalytics(), timeout, "analytics timed out")))
	s.mux.Handle("GET /health", healthHandler.Health())
}
