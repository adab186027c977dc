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

const driverName = "pgx"

type DB struct {
	cfg   *config.DBconfig
	mylog mylogger.Logger
	conn  *sqlx.DB
}

// New opens a pooled connection, retrying the first ping up to MaxRetries times.
func New(ctx context.Context, dbCfg *config.DBconfig, mylog mylogger.Logger) (*DB, error) {
	d := &DB{
		cfg:   dbCfg,
		mylog: mylog,
	}

	if err := d.connect(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// Wrap adopts an already open handle.
func Wrap(conn *sqlx.DB) *DB {
	return &DB{conn: conn, mylog: mylogger.Discard()}
}

func (d *DB) GetConn() *sqlx.DB {
	return d.conn
}

// Close closes the connection pool
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
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",

		d.cfg.User,
		d.cfg.Password,
		d.cfg.Host,
		d.cfg.Port,
		d.cfg.Database,
	)

	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}

	var pingErr error
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		pingErr = conn.PingContext(ctx)
		if pingErr == nil {
			d.conn = conn
			return nil
		}
		d.mylog.Warn("database not ready", "attempt", attempt, "error", pingErr)

		select {
		case <-ctx.Done():
			conn.Close()
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	conn.Close()
	return fmt.Errorf("failed to connect to database: %v", pingErr)
}
