package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	adminservice "fleet-dispatch/internal/admin-service"
	"fleet-dispatch/internal/config"
	dispatchservice "fleet-dispatch/internal/dispatch-service"
	"fleet-dispatch/internal/dispatch-service/adapters/driven/db"
	"fleet-dispatch/internal/mylogger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <dispatch-service|admin-service|migrate> [flags]\n", os.Args[0])
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cmd := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	logLevel := cmd.String("log-level", cfg.Log.Level, "DEBUG, INFO, WARN or ERROR")
	cmd.Parse(os.Args[2:])

	mylog, err := mylogger.New(*logLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "dispatch-service":
		err = dispatchservice.Execute(ctx, mylog.With("service", "dispatch-service"), cfg)
	case "admin-service":
		err = adminservice.Execute(ctx, mylog, cfg)
	case "migrate":
		err = migrate(ctx, mylog, cfg)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		mylog.Action("exit").Error("service stopped with error", err)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	mylog = mylog.Action("migrate")

	conn, err := db.New(ctx, cfg.DB, mylog)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	mylog.Info("schema applied")
	return nil
}
