package progress

import (
	"context"
	"time"

	"lms/models/course"
)

// ModuleInfo is one entry of a course's ordered module list.
type ModuleInfo struct {
	ModuleID      uint
	Order         int
	HasAssessment bool
}

// LessonInfo is one entry of a module's ordered lesson list.
type LessonInfo struct {
	LessonID        uint
	ModuleID        uint
	DurationSeconds int64
}

// CourseStructure exposes the authoritative, read-only course layout.
type CourseStructure interface {
	GetModules(ctx context.Context, courseID uint) ([]ModuleInfo, error)
	GetLessons(ctx context.Context, moduleID uint) ([]LessonInfo, error)
	// FindLesson returns nil, nil when the lesson does not exist in the course.
	FindLesson(ctx context.Context, courseID, lessonID uint) (*LessonInfo, error)
}

// OptionDefinition is an answer option and whether it is the correct one.
type OptionDefinition struct {
	ID        uint
	IsCorrect bool
}

// QuestionDefinition is a question with exactly one correct option.
type QuestionDefinition struct {
	ID      uint
	Options []OptionDefinition
}

// AssessmentDefinition is the gradeable view of an assessment.
type AssessmentDefinition struct {
	ID              uint
	CourseID        uint
	ModuleID        uint
	PassingScore    int
	AttemptsAllowed int // <= 0 means unlimited
	Questions       []QuestionDefinition
}

// AssessmentProvider loads assessment definitions.
type AssessmentProvider interface {
	// GetAssessment returns nil, nil when the assessment does not exist.
	GetAssessment(ctx context.Context, assessmentID uint) (*AssessmentDefinition, error)
}

// Store persists progress documents.
type Store interface {
	// FindProgress returns nil, nil when no document exists for the pair.
	FindProgress(ctx context.Context, userID, courseID uint) (*course.Progress, error)
	// CreateProgress returns ErrDuplicate when the pair already has a document.
	CreateProgress(ctx context.Context, p *course.Progress) error
	// SaveProgress writes the whole document if its Version is unchanged since
	// load, bumping Version; otherwise it returns ErrVersionConflict.
	SaveProgress(ctx context.Context, p *course.Progress) error
	ListCourseProgress(ctx context.Context, courseID uint) ([]course.Progress, error)
}

// CompletionHook is notified once a course flips to completed.
type CompletionHook interface {
	CourseCompleted(ctx context.Context, p *course.Progress)
}

// WatchReport is a single watch-time report from a player.
type WatchReport struct {
	UserID        uint
	CourseID      uint
	LessonID      uint
	WatchTime     int64 // seconds
	TotalDuration int64 // seconds, as reported by the player
}

// ProgressUpdateResult summarises the effect of a watch report.
type ProgressUpdateResult struct {
	LessonID            uint `json:"lesson_id"`
	LessonProgress      int  `json:"lesson_progress"`
	LessonCompleted     bool `json:"lesson_completed"`
	ModuleCompleted     bool `json:"module_completed"`
	NextModuleUnlocked  bool `json:"next_module_unlocked"`
	OverallProgress     int  `json:"overall_progress"`
	CourseCompleted     bool `json:"course_completed"`
	CourseJustCompleted bool `json:"-"`
}

// Answer selects one option for one question.
type Answer struct {
	QuestionID uint `json:"question_id"`
	OptionID   uint `json:"option_id"`
}

// AttemptResult summarises a graded assessment submission.
type AttemptResult struct {
	AssessmentID       uint `json:"assessment_id"`
	Score              int  `json:"score"`
	Passed             bool `json:"passed"`
	PassingScore       int  `json:"passing_score"`
	CorrectAnswers     int  `json:"correct_answers"`
	TotalQuestions     int  `json:"total_questions"`
	AttemptsUsed       int  `json:"attempts_used"`
	AttemptsAllowed    int  `json:"attempts_allowed"`
	CanRetake          bool `json:"can_retake"`
	ModuleCompleted    bool `json:"module_completed"`
	NextModuleUnlocked bool `json:"next_module_unlocked"`
	CourseCompleted    bool `json:"course_completed"`
}

// ModuleAccess describes the lock state of one module for a learner.
type ModuleAccess struct {
	Index            int        `json:"index"`
	ModuleID         uint       `json:"module_id"`
	Accessible       bool       `json:"accessible"`
	Completed        bool       `json:"completed"`
	UnlockedAt       *time.Time `json:"unlocked_at"`
	TotalLessons     int        `json:"total_lessons"`
	CompletedLessons int        `json:"completed_lessons"`
}

// SyncResult is returned by SyncUserProgressWithCourse.
type SyncResult struct {
	LessonsAdded       int  `json:"lessons_added"`
	OverallProgress    int  `json:"overall_progress"`
	CurrentModuleIndex int  `json:"current_module_index"`
	CourseCompleted    bool `json:"course_completed"`
}

// ModuleCompletionStat counts learners who completed one module.
type ModuleCompletionStat struct {
	Index          int  `json:"index"`
	ModuleID       uint `json:"module_id"`
	CompletedCount int  `json:"completed_count"`
}

// CourseProgressStats aggregates progress across all learners of a course.
type CourseProgressStats struct {
	CourseID          uint                   `json:"course_id"`
	TotalLearners     int                    `json:"total_learners"`
	CompletedLearners int                    `json:"completed_learners"`
	CompletionRate    float64                `json:"completion_rate"`
	AverageProgress   float64                `json:"average_progress"`
	Modules           []ModuleCompletionStat `json:"modules"`
}
