package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/dispatch-service/adapters/driven/bm"
	"fleet-dispatch/internal/dispatch-service/adapters/driven/consumer"
	"fleet-dispatch/internal/dispatch-service/adapters/driven/db"
	"fleet-dispatch/internal/dispatch-service/adapters/driven/memory"
	"fleet-dispatch/internal/dispatch-service/adapters/driver/myhttp/handle"
	"fleet-dispatch/internal/dispatch-service/adapters/driver/myhttp/ws"
	"fleet-dispatch/internal/dispatch-service/core/ports"
	"fleet-dispatch/internal/dispatch-service/core/services"
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
	store  ports.IEntityStore
	mb     *bm.RabbitMQ
	hub    *ws.Hub
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}

	return s
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	store, err := s.openStore()
	if err != nil {
		return err
	}
	s.store = store

	if s.cfg.RabbitMq.Enabled {
		mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		s.mb = mb
		mylog.Info("Successful message broker connection")
	}

	if err := s.Configure(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%v", s.cfg.Srv.DispatchServicePort),
		Handler:           s.mux,
		ReadHeaderTimeout: WaitTime * time.Second,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.DispatchServicePort, "store", s.cfg.Store.Driver)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

func (s *Server) openStore() (ports.IEntityStore, error) {
	if s.cfg.Store.Driver == config.StoreDriverMemory {
		s.mylog.Action("open_store").Warn("using in-memory store, data is lost on exit")
		return memory.NewStore(), nil
	}

	conn, err := db.New(s.ctx, s.cfg.DB, s.mylog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.mylog.Action("open_store").Info("Successful database connection")
	return db.NewEntityStore(conn), nil
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.hub != nil {
		s.hub.Close()
	}

	// consumer workers exit once appCtx is cancelled
	s.wg.Wait()

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.mylog.Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
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

// Configure wires services to the store and broker and registers routes.
func (s *Server) Configure() error {
	s.hub = ws.NewHub(s.mylog)

	// status events go to the broker (when enabled) and the websocket consoles
	var notifier ports.IStatusNotifier = s.hub
	var broker handle.BrokerProbe
	if s.mb != nil {
		notifier = services.NewFanoutNotifier(s.mb, s.hub)
		broker = s.mb
	}

	engine := services.NewTransitionEngine(s.mylog, s.store)
	coordinator := services.NewDispatchCoordinator(s.mylog, s.store, engine, notifier)

	if s.mb != nil {
		driverStatus := consumer.New(s.appCtx, &s.wg, s.mylog, bm.DriverStatusQueue, s.mb, coordinator)
		if err := driverStatus.Run(); err != nil {
			return fmt.Errorf("start driver status consumer: %w", err)
		}
	}

	bookingsHandler := handle.NewBookingsHandler(coordinator, s.mylog)
	dispatchesHandler := handle.NewDispatchesHandler(coordinator, s.mylog)
	healthHandler := handle.NewHealthHandler(s.store, broker)

	auth := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret, middleware.RoleDispatcher, middleware.RoleAdmin)
	timeout := time.Duration(s.cfg.Srv.RequestTimeoutSec) * time.Second
	wrap := func(h http.HandlerFunc) http.Handler {
		return auth.Wrap(withTimeout(timeout, h))
	}

	s.mux.Handle("POST /bookings", wrap(bookingsHandler.CreateBooking()))
	s.mux.Handle("GET /bookings/{booking_id}", wrap(bookingsHandler.GetBooking()))
	s.mux.Handle("POST /bookings/{booking_id}/transition", wrap(bookingsHandler.TransitionBooking()))
	s.mux.Handle("POST /bookings/{booking_id}/dispatches", wrap(bookingsHandler.CreateDispatch()))

	s.mux.Handle("GET /dispatches/{dispatch_id}", wrap(dispatchesHandler.GetDispatch()))
	s.mux.Handle("POST /dispatches/{dispatch_id}/transition", wrap(dispatchesHandler.TransitionDispatch()))
	s.mux.Handle("POST /dispatches/{dispatch_id}/driver", wrap(dispatchesHandler.AssignDriver()))
	s.mux.Handle("POST /dispatches/{dispatch_id}/dispatch-time", wrap(dispatchesHandler.RecordDispatchTime()))
	s.mux.Handle("POST /dispatches/{dispatch_id}/arrival-time", wrap(dispatchesHandler.RecordArrivalTime()))

	// websocket routes
	s.mux.Handle("GET /ws/events", auth.Wrap(s.hub.WsHandler()))

	s.mux.Handle("GET /health", healthHandler.Health())
	return nil
}

func withTimeout(d time.Duration, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}
