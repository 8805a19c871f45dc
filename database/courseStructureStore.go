package database

import (
	"context"
	"errors"
	"time"

	"lms/models/course"
	"lms/services/progress"

	"gorm.io/gorm"
)

// CourseStructureStore exposes the published module/lesson layout of a course
// to the progress engine.
type CourseStructureStore struct {
	db *gorm.DB
}

func NewCourseStructureStore(db *gorm.DB) *CourseStructureStore {
	return &CourseStructureStore{db: db}
}

// GetModules lists the live modules of a course in display order. A module
// has an assessment when a published, non-deleted one is attached to it.
func (s *CourseStructureStore) GetModules(ctx context.Context, courseID uint) ([]progress.ModuleInfo, error) {
	var modules []course.Module
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index ASC, id ASC").
		Find(&modules).Error
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, nil
	}

	ids := make([]uint, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	var gated []uint
	err = s.db.WithContext(ctx).
		Model(&course.Assessment{}).
		Where("module_id IN ? AND is_published = ? AND is_deleted = ?", ids, true, false).
		Distinct().
		Pluck("module_id", &gated).Error
	if err != nil {
		return nil, err
	}
	hasAssessment := make(map[uint]bool, len(gated))
	for _, id := range gated {
		hasAssessment[id] = true
	}

	out := make([]progress.ModuleInfo, len(modules))
	for i, m := range modules {
		out[i] = progress.ModuleInfo{ModuleID: m.ID, Order: i, HasAssessment: hasAssessment[m.ID]}
	}
	return out, nil
}

// GetLessons lists the published lessons of a module in display order.
func (s *CourseStructureStore) GetLessons(ctx context.Context, moduleID uint) ([]progress.LessonInfo, error) {
	var lessons []course.Lesson
	err := s.db.WithContext(ctx).
		Where("module_id = ? AND is_published = ? AND is_deleted = ?", moduleID, true, false).
		Order("order_index ASC, id ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	out := make([]progress.LessonInfo, len(lessons))
	for i, l := range lessons {
		out[i] = lessonInfo(l)
	}
	return out, nil
}

func (s *CourseStructureStore) FindLesson(ctx context.Context, courseID, lessonID uint) (*progress.LessonInfo, error) {
	var l course.Lesson
	err := s.db.WithContext(ctx).
		Select("lessons.*").
		Joins("JOIN modules ON modules.id = lessons.module_id AND modules.is_deleted = ? AND modules.deleted_at IS NULL", false).
		Where("lessons.id = ? AND lessons.course_id = ? AND lessons.is_published = ? AND lessons.is_deleted = ?", lessonID, courseID, true, false).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info := lessonInfo(l)
	return &info, nil
}

// CoursesChangedSince returns the ids of courses whose modules, lessons or
// assessments were created or edited at or after since.
func (s *CourseStructureStore) CoursesChangedSince(ctx context.Context, since time.Time) ([]uint, error) {
	seen := make(map[uint]bool)
	var out []uint
	for _, model := range []interface{}{&course.Module{}, &course.Lesson{}, &course.Assessment{}} {
		var ids []uint
		err := s.db.WithContext(ctx).
			Model(model).
			Unscoped().
			Where("updated_at >= ?", since).
			Distinct().
			Pluck("course_id", &ids).Error
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func lessonInfo(l course.Lesson) progress.LessonInfo {
	return progress.LessonInfo{LessonID: l.ID, ModuleID: l.ModuleID, DurationSeconds: l.DurationSeconds}
}
