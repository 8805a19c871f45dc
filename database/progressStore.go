package database

import (
	"context"
	"errors"
	"fmt"

	"lms/models/course"
	"lms/services/progress"

	"gorm.io/gorm"
)

// ProgressStore persists progress documents with an optimistic version check.
type ProgressStore struct {
	db *gorm.DB
}

func NewProgressStore(db *gorm.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) FindProgress(ctx context.Context, userID, courseID uint) (*course.Progress, error) {
	var p course.Progress
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProgressStore) CreateProgress(ctx context.Context, p *course.Progress) error {
	p.Version = 1
	err := s.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("user %d course %d: %w", p.UserID, p.CourseID, progress.ErrDuplicate)
	}
	return err
}

// SaveProgress writes every column of p when the stored version still matches
// and bumps p.Version. A stale p yields progress.ErrVersionConflict.
func (s *ProgressStore) SaveProgress(ctx context.Context, p *course.Progress) error {
	prev := p.Version
	p.Version = prev + 1

	res := s.db.WithContext(ctx).
		Model(p).
		Where("version = ?", prev).
		Select("*").
		Omit("ID", "CreatedAt").
		Updates(p)
	if res.Error != nil {
		p.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.Version = prev
		return progress.ErrVersionConflict
	}
	return nil
}

func (s *ProgressStore) ListCourseProgress(ctx context.Context, courseID uint) ([]course.Progress, error) {
	var rows []course.Progress
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListUserProgress returns every document owned by userID, most recent activity first.
func (s *ProgressStore) ListUserProgress(ctx context.Context, userID uint) ([]course.Progress, error) {
	var rows []course.Progress
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity_at DESC").
		Find(&rows).Error
	return rows, err
}
