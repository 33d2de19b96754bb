package registry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore persists media records through GORM. The dialector decides
// the backend: SQLite file for the baseline single-node deployment,
// Postgres when a DSN is configured.
type GormStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewGormStore opens the database, runs AutoMigrate and returns the store.
func NewGormStore(dial gorm.Dialector, log *zap.Logger) (*GormStore, error) {
	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// Map driver duplicate-key errors to gorm.ErrDuplicatedKey,
		// which Insert relies on for collision detection.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&MediaRecord{}); err != nil {
		return nil, err
	}

	log.Info("registry store initialized", zap.String("dialect", dial.Name()))
	return &GormStore{db: db, log: log}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert writes a new record. The primary key on code makes a
// concurrent duplicate insert fail instead of silently overwriting.
func (s *GormStore) Insert(ctx context.Context, rec *MediaRecord) error {
	rec.CreatedAt = time.Now()
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCodeTaken
	}
	return err
}

// Get fetches a record by code.
func (s *GormStore) Get(ctx context.Context, code string) (*MediaRecord, error) {
	var rec MediaRecord
	err := s.db.WithContext(ctx).First(&rec, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&MediaRecord{}).Count(&n).Error
	return n, err
}
