package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"triage-backend/internal/shared/telemetry"
)

const (
	defaultMaxOpenConns = 10
	defaultPingTimeout  = 5 * time.Second
	connMaxLifetime     = time.Hour
	connMaxIdleTime     = 2 * time.Minute
)

// Options sizes the pool. Zero values fall back to package defaults.
type Options struct {
	MaxOpenConns int
	PingTimeout  time.Duration
}

var openDB = sql.Open

// Connect opens the knowledge-base database and verifies it answers a ping.
// The returned *sql.DB is shared by the PG repositories.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts = opts.withDefaults()
	db.SetMaxOpenConns(opts.MaxOpenConns)
	// Half the pool may idle; a single-connection migrate run keeps its one.
	db.SetMaxIdleConns(max(1, opts.MaxOpenConns/2))
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.connected", map[string]any{
		"max_open": db.Stats().MaxOpenConnections,
		"max_idle": max(1, opts.MaxOpenConns/2),
	})
	return db, nil
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = defaultMaxOpenConns
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = defaultPingTimeout
	}
	return o
}
