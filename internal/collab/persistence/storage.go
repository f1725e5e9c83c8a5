package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Path            string `split_words:"true" default:"finmate.db"`
	InMemory        bool   `split_words:"true" default:"false"`
	EnableWAL       bool   `envconfig:"ENABLE_WAL" default:"true"`
	BusyTimeoutMS   int    `envconfig:"BUSY_TIMEOUT_MS" default:"5000"`
	MaxOpenConns    int    `split_words:"true" default:"4"`
	MaxIdleConns    int    `split_words:"true" default:"2"`
	ConnMaxLifetime int    `split_words:"true" default:"0"`
}

// Ledger owns the local financial database. All tool-facing queries go
// through its repository methods rather than raw gorm handles.
type Ledger struct {
	db    *gorm.DB
	sqlDB *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}

	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	l := &Ledger{db: db, sqlDB: sqlDB}

	if cfg.EnableWAL && !cfg.InMemory {
		if err := l.db.WithContext(ctx).Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("enable wal: %w", err)
		}
	}

	if err := l.db.WithContext(ctx).Exec("PRAGMA foreign_keys=ON;").Error; err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := l.Migrate(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}

	if err := l.Ping(ctx); err != nil {
		_ = l.Close()
		return nil, err
	}

	return l, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	return l.sqlDB.Close()
}

func (l *Ledger) Ping(ctx context.Context) error {
	if l == nil || l.sqlDB == nil {
		return errors.New("ledger not initialized")
	}
	return l.sqlDB.PingContext(ctx)
}

func (l *Ledger) Migrate(ctx context.Context) error {
	if l == nil || l.db == nil {
		return errors.New("ledger not initialized")
	}

	if err := l.db.WithContext(ctx).AutoMigrate(
		&Expense{},
		&Income{},
		&Subscription{},
		&Bill{},
		&Goal{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func dsnFromConfig(cfg Config) (string, error) {
	timeoutMS := cfg.BusyTimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = 5000
	}

	if cfg.InMemory {
		return fmt.Sprintf("file:finmate?mode=memory&cache=shared&_busy_timeout=%d", timeoutMS), nil
	}

	if cfg.Path == "" {
		return "", errors.New("sqlite path is required when InMemory=false")
	}

	return fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.Path, timeoutMS), nil
}
