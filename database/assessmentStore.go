package database

import (
	"context"
	"errors"

	"lms/models/course"
	"lms/services/progress"

	"gorm.io/gorm"
)

// AssessmentStore loads published assessments with their questions and options.
type AssessmentStore struct {
	db *gorm.DB
}

func NewAssessmentStore(db *gorm.DB) *AssessmentStore {
	return &AssessmentStore{db: db}
}

func (s *AssessmentStore) GetAssessment(ctx context.Context, assessmentID uint) (*progress.AssessmentDefinition, error) {
	var a course.Assessment
	err := s.db.WithContext(ctx).
		Preload("Questions", "is_deleted = ?", false, func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		Preload("Questions.Options", "is_deleted = ?", false, func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC, id ASC")
		}).
		Where("id = ? AND is_published = ? AND is_deleted = ?", assessmentID, true, false).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	def := &progress.AssessmentDefinition{
		ID:              a.ID,
		CourseID:        a.CourseID,
		ModuleID:        a.ModuleID,
		PassingScore:    a.PassingScore,
		AttemptsAllowed: a.AttemptsAllowed,
		Questions:       make([]progress.QuestionDefinition, 0, len(a.Questions)),
	}
	for _, q := range a.Questions {
		qd := progress.QuestionDefinition{ID: q.ID, Options: make([]progress.OptionDefinition, 0, len(q.Options))}
		for _, o := range q.Options {
			qd.Options = append(qd.Options, progress.OptionDefinition{ID: o.ID, IsCorrect: o.IsCorrect})
		}
		def.Questions = append(def.Questions, qd)
	}
	return def, nil
}
