package adminservice

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"fleet-dispatch/internal/admin-service/adapters/driver/myhttp"
	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/mylogger"
)

func Execute(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	mylog = mylog.With("service", "admin-service")
	server := myhttp.NewServer(newCtx, ctx, mylog, cfg)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("stopping analytics server")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		// Run may fail after the pool is open
		stopErr := server.Stop(context.Background())
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("admin_service_failed").Error("analytics server failed", err)
			return err
		}
		mylog.Action("server_stopped").Info("analytics server exited")
		return stopErr
	}
}
