package database

import (
	"context"
	"fmt"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend carries the store handles for one process. Either handle may be
// nil: anon is subject to row-level security, service bypasses it and is
// only used for privileged operations.
type Backend struct {
	anon    *gorm.DB
	service *gorm.DB
}

// New wraps already opened handles.
func New(anon, service *gorm.DB) *Backend {
	return &Backend{anon: anon, service: service}
}

// Open connects every handle the configuration provides. With no
// credentials it returns an empty backend and no error: reads fall back
// to built-in data.
func Open(cfg *config.Config) (*Backend, error) {
	b := &Backend{}
	if cfg.DatabaseURL != "" {
		db, err := connect(cfg.DatabaseType, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("anon database: %w", err)
		}
		b.anon = db
	}
	if cfg.ServiceDatabaseURL != "" {
		db, err := connect(cfg.DatabaseType, cfg.ServiceDatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("service database: %w", err)
		}
		b.service = db
	}
	return b, nil
}

func connect(kind, url string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch kind {
	case "sqlite":
		dialector = sqlite.Open(url)
	default:
		dialector = postgres.Open(url)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	retrier := retry.NewRetrier(5, 200*time.Millisecond, 3*time.Second)
	if err := retrier.Run(sqlDB.Ping); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// Reader is the handle used for ordinary reads: the anon handle when
// present, otherwise the service handle. Nil when nothing is configured.
func (b *Backend) Reader() *gorm.DB {
	if b == nil {
		return nil
	}
	if b.anon != nil {
		return b.anon
	}
	return b.service
}

// Service is the privileged handle, or nil.
func (b *Backend) Service() *gorm.DB {
	if b == nil {
		return nil
	}
	return b.service
}

func (b *Backend) Configured() bool {
	return b.Reader() != nil
}

func (b *Backend) Privileged() bool {
	return b.Service() != nil
}

// ScopedRead runs fn in a transaction bound to identity so row-level
// security evaluates against the caller. Only postgres enforces the scope.
func (b *Backend) ScopedRead(ctx context.Context, identity uuid.UUID, fn func(tx *gorm.DB) error) error {
	return b.scoped(ctx, identity, fn)
}

// ScopedWrite is ScopedRead for self-service writes: the caller can only
// change rows the update policy lets them see.
func (b *Backend) ScopedWrite(ctx context.Context, identity uuid.UUID, fn func(tx *gorm.DB) error) error {
	return b.scoped(ctx, identity, fn)
}

func (b *Backend) scoped(ctx context.Context, identity uuid.UUID, fn func(tx *gorm.DB) error) error {
	db := b.Reader()
	if db == nil {
		return ErrUnavailable
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT set_config('request.jwt.claim.sub', ?, true)", identity.String()).Error; err != nil {
				return err
			}
			if err := tx.Exec("SET LOCAL ROLE authenticated").Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// Migrate creates the schema through the most privileged handle available
// and seeds default categories.
func (b *Backend) Migrate() error {
	db := b.Service()
	if db == nil {
		db = b.Reader()
	}
	if db == nil {
		return ErrUnavailable
	}

	if err := AutoMigrate(db); err != nil {
		return err
	}
	if db.Dialector.Name() == "postgres" && b.Privileged() {
		if err := applyRowLevelSecurity(db); err != nil {
			return fmt.Errorf("row level security: %w", err)
		}
	}
	if err := seedCategories(db); err != nil {
		logger.Get().Warnf("seed categories: %v", err)
	}
	return nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Identity{},
		&models.Profile{},
		&models.MemberApplication{},
		&models.Category{},
		&models.Tag{},
		&models.Partner{},
		&models.Article{},
		&models.Video{},
		&models.Event{},
		&models.EventResource{},
	)
}

func seedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []models.Category{
		{Slug: "governance", Name: "Governance", Description: "Board, ethics and corporate governance"},
		{Slug: "litigation", Name: "Litigation", Description: "Disputes and litigation management"},
		{Slug: "intellectual-property", Name: "Intellectual Property", Description: "Patents, trademarks and IP strategy"},
		{Slug: "regulatory", Name: "Regulatory", Description: "Compliance and regulatory change"},
		{Slug: "leadership", Name: "Leadership", Description: "Running an in-house legal function"},
	}
	for i := range categories {
		if err := db.Create(&categories[i]).Error; err != nil {
			return err
		}
	}
	logger.Get().Info("Seeded categories")
	return nil
}

func (b *Backend) Close() {
	for _, db := range []*gorm.DB{b.anon, b.service} {
		if db == nil {
			continue
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
