package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/pkg/config"
	"github.com/autostack/gateway/pkg/logger"
)

// Open connects to the backend selected by cfg.DatabaseDriver.
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.AppEnv == "development" || cfg.AppEnv == "test" {
		level = gormlogger.Warn
	}
	switch cfg.DatabaseDriver {
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL, level)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath, level)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.DatabaseDriver)
	}
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// Composite index for the per-project status aggregation.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_code_analyses_project_status ON code_analyses(project_id, status)`).Error; err != nil {
		return fmt.Errorf("create analysis index: %w", err)
	}
	return nil
}

// Ping checks connectivity of the underlying pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db db() error: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctxPing)
}

type gormZap struct {
	zap   *zap.Logger
	level gormlogger.LogLevel
}

func newGormLogger(level gormlogger.LogLevel) gormlogger.Interface {
	return gormZap{zap: logger.Named("gorm"), level: level}
}

func (l gormZap) LogMode(level gormlogger.LogLevel) gormlogger.Interface { l.level = level; return l }
func (l gormZap) Info(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.zap.Sugar().Infof(s, args...)
	}
}
func (l gormZap) Warn(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.zap.Sugar().Warnf(s, args...)
	}
}
func (l gormZap) Error(ctx context.Context, s string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.zap.Sugar().Errorf(s, args...)
	}
}
func (l gormZap) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	sql, rows := fc()
	dur := time.Since(begin)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zap.Error("gorm query error", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql), zap.Error(err))
		return
	}
	if l.level >= gormlogger.Info {
		l.zap.Debug("gorm query", zap.Duration("duration", dur), zap.Int64("rows", rows), zap.String("sql", sql))
	}
}
