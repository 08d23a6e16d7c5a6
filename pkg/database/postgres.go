package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const applicationName = "autostack-gateway"

// OpenPostgres opens a Gorm PostgreSQL connection over a pgx pool with retry
// and sane pooling defaults.
func OpenPostgres(ctx context.Context, dsn string, level gormlogger.LogLevel) (*gorm.DB, error) {
	pgxCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if pgxCfg.RuntimeParams["application_name"] == "" {
		pgxCfg.RuntimeParams["application_name"] = applicationName
	}
	return openPostgresConn(ctx, stdlib.OpenDB(*pgxCfg), level)
}

// openPostgresConn wraps conn in gorm. conn is closed on every failure path.
func openPostgresConn(ctx context.Context, conn *sql.DB, level gormlogger.LogLevel) (db *gorm.DB, err error) {
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	b := backoff{
		maxRetries: 5,
		delay:      500 * time.Millisecond,
		maxDelay:   5 * time.Second,
	}

	for attempt := 0; ; attempt++ {
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
			Logger:         newGormLogger(level),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		if attempt >= b.maxRetries {
			return nil, fmt.Errorf("open postgres failed after retries: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("open postgres canceled: %w", ctx.Err())
		case <-time.After(b.nextDelay(attempt)):
		}
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err = Ping(ctx, db); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

type backoff struct {
	maxRetries int
	delay      time.Duration
	maxDelay   time.Duration
}

func (b backoff) nextDelay(attempt int) time.Duration {
	d := b.delay << attempt
	if d > b.maxDelay {
		return b.maxDelay
	}
	return d
}
