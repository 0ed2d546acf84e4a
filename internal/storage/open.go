package storage

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"scms/backend/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	_ Storage = (*Service)(nil)
	_ Storage = (*MemoryStore)(nil)
	_ Storage = (*memOps)(nil)
)

// OpenPostgres connects GORM to PostgreSQL and runs the migrations.
func OpenPostgres(ctx context.Context, dsn string) (*Service, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.New(os.Stdout, "", log.LstdFlags), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewStorageService(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Open selects the storage driver named in cfg.
// The returned close function releases the database pool.
func Open(ctx context.Context, cfg *config.Config) (Storage, func() error, error) {
	switch cfg.StorageDriver {
	case "memory":
		slog.Warn("using in-memory storage, data is lost on restart")
		return NewMemoryStore(), func() error { return nil }, nil
	case "postgres":
		s, err := OpenPostgres(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := s.DB.DB()
		if err != nil {
			return nil, nil, err
		}
		slog.Info("database connection established, migrations complete")
		return s, sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
