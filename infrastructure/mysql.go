package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"staffable/domain"
)

func NewMySQLConnection(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("DB_DSN is not set")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Session{}, &domain.Generation{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Info("connected to MySQL and migrated schema")
	return db, nil
}

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s, domain.ErrNotFound
	}
	return s, err
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Session{}).Error
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}

type GenerationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, g *domain.Generation) error {
	if g.Status == "" {
		g.Status = domain.GenerationQueued
	}
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GenerationRepository) Get(ctx context.Context, id uint) (domain.Generation, error) {
	var g domain.Generation
	err := r.db.WithContext(ctx).First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return g, domain.ErrNotFound
	}
	return g, err
}

func (r *GenerationRepository) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&domain.Generation{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GenerationRepository) MarkProcessing(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]interface{}{"status": domain.GenerationProcessing})
}

func (r *GenerationRepository) Complete(ctx context.Context, id uint, output string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": domain.GenerationCompleted,
		"output": output,
		"error":  "",
	})
}

func (r *GenerationRepository) Fail(ctx context.Context, id uint, reason string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": domain.GenerationFailed,
		"error":  reason,
	})
}
