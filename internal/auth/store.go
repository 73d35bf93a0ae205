package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrForbidden    = errors.New("teacher access required")
	ErrTokenExpired = errors.New("token expired")
)

// Store хранит токены в базе вместо localStorage браузера
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate создаёт таблицу credentials
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Credentials{})
}

func (s *Store) Load(ctx context.Context, userID int64) (*Credentials, error) {
	var c Credentials
	err := s.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return &c, nil
}

// Save вставляет или обновляет запись пользователя
func (s *Store) Save(ctx context.Context, c *Credentials) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "student_token", "teacher_token", "updated_at"}),
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) Invalidate(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Delete(&Credentials{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("invalidate credentials: %w", err)
	}
	return nil
}
