package dispatchservice

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/dispatch-service/adapters/driver/myhttp"
	"fleet-dispatch/internal/mylogger"
)

func Execute(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	// the consumer lives on appCtx so it drains only after the HTTP server stops
	appCtx, cancelApp := context.WithCancel(ctx)
	defer cancelApp()

	server := myhttp.NewServer(newCtx, appCtx, mylog, cfg)

	// Run server in goroutine
	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	// Wait for signal or server crash
	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		cancelApp()
		return server.Stop(context.Background())
	case err := <-runErrCh:
		cancelApp()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("dispatch_service_failed").Error("Server failed unexpectedly", err)
			server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return server.Stop(context.Background())
	}
}
