package db

import (
	"context"
	"fmt"
	"time"

	"fleet-dispatch/internal/config"
	"fleet-dispatch/internal/mylogger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	driverName = "pgx"
	// analytics scans are long reads; keep the pool small
	maxOpenConns = 8
)

type DB struct {
	cfg   *config.DBconfig
	mylog mylogger.Logger
	conn  *sqlx.DB
}

// Start opens the read pool used by the aggregator.
func Start(ctx context.Context, dbCfg *config.DBconfig, mylog mylogger.Logger) (*DB, error) {
	d := &DB{
		cfg:   dbCfg,
		mylog: mylog,
	}

	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *DB) GetConn() *sqlx.DB {
	return d.conn
}

// Close closes the pool
func (d *DB) Close() error {
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("close database connection: %v", err)
	}
	return nil
}

// IsAlive pings the DB to verify it's responsive
func (d *DB) IsAlive(ctx context.Context) error {
	if d.conn == nil {
		return fmt.Errorf("DB is not initialized")
	}
	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (d *DB) connect(ctx context.Context) error {
	conn, err := sqlx.Open(driverName, fmt.Sprintf(
		"postgres://%v:%v@%v:%v/%v?sslmode=disable&default_transaction_read_only=on",
		d.cfg.User,
		d.cfg.Password,
		d.cfg.Host,
		d.cfg.Port,
		d.cfg.Database,
	))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(maxOpenConns)

	var pingErr error
	for attempt := 1; attempt <= max(d.cfg.MaxRetries, 1); attempt++ {
		if pingErr = conn.PingContext(ctx); pingErr == nil {
			d.conn = conn
			return nil
		}
		d.mylog.Action("db_connect").Warn("database not ready", "attempt", attempt, "error", pingErr)

		select {
		case <-ctx.Done():
			conn.Close()
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	conn.Close()
	return fmt.Errorf("failed to connect to database: %w", pingErr)
}
