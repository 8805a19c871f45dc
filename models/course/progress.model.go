package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress is the per-(user, course) progress document. Modules, lessons and
// assessment attempts are embedded as one JSON column so the whole aggregate
// is loaded, mutated and saved together.
type Progress struct {
	gorm.Model
	UserID             uint                                `json:"user_id" gorm:"not null;uniqueIndex:idx_progress_user_course"`
	CourseID           uint                                `json:"course_id" gorm:"not null;uniqueIndex:idx_progress_user_course;index"`
	SubscriptionID     uint                                `json:"subscription_id" gorm:"index"`
	Modules            datatypes.JSONSlice[ModuleProgress] `json:"modules"`
	CurrentModuleIndex int                                 `json:"current_module_index" gorm:"default:0"`
	OverallProgress    int                                 `json:"overall_progress" gorm:"default:0"` // 0-100
	TotalWatchTime     int64                               `json:"total_watch_time" gorm:"default:0"` // seconds
	IsCompleted        bool                                `json:"is_completed" gorm:"default:false;index"`
	CompletedAt        *time.Time                          `json:"completed_at"`
	LastActivityAt     time.Time                           `json:"last_activity_at" gorm:"index"`
	Version            int64                               `json:"-" gorm:"not null;default:1"`
}

// ModuleProgress is the embedded state of one course module.
type ModuleProgress struct {
	ModuleID           uint                `json:"module_id"`
	Order              int                 `json:"order"` // position stamped when the entry was appended
	RequiresAssessment bool                `json:"requires_assessment"`
	Lessons            []LessonProgress    `json:"lessons"`
	AssessmentAttempts []AssessmentAttempt `json:"assessment_attempts"`
	IsCompleted        bool                `json:"is_completed"`
	CompletedAt        *time.Time          `json:"completed_at"`
	UnlockedAt         *time.Time          `json:"unlocked_at"` // nil means locked
}

// LessonProgress is the embedded watch state of one lesson.
type LessonProgress struct {
	LessonID      uint       `json:"lesson_id"`
	Order         int        `json:"order"`
	WatchTime     int64      `json:"watch_time"`     // seconds, never decreases
	TotalDuration int64      `json:"total_duration"` // seconds
	IsCompleted   bool       `json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	LastWatchedAt *time.Time `json:"last_watched_at"`
}

// AssessmentAttempt is one graded submission of a module assessment.
type AssessmentAttempt struct {
	AssessmentID uint            `json:"assessment_id"`
	Score        int             `json:"score"` // 0-100
	Passed       bool            `json:"passed"`
	AttemptedAt  time.Time       `json:"attempted_at"`
	Answers      []AttemptAnswer `json:"answers"`
}

// AttemptAnswer records the option picked for one question.
type AttemptAnswer struct {
	QuestionID       uint `json:"question_id"`
	SelectedOptionID uint `json:"selected_option_id"`
	IsCorrect        bool `json:"is_correct"`
}

// CanAccessModule reports whether the module at index may be worked in.
func (p *Progress) CanAccessModule(index int) bool {
	if index < 0 || index >= len(p.Modules) {
		return false
	}
	return index == 0 || index <= p.CurrentModuleIndex
}

// UnlockNextModule advances CurrentModuleIndex by exactly one when the module
// it points at is completed and a next module exists.
func (p *Progress) UnlockNextModule(now time.Time) bool {
	cur := p.CurrentModuleIndex
	if cur < 0 || cur+1 >= len(p.Modules) || !p.Modules[cur].IsCompleted {
		return false
	}
	p.CurrentModuleIndex = cur + 1
	next := &p.Modules[cur+1]
	if next.UnlockedAt == nil {
		t := now
		next.UnlockedAt = &t
	}
	return true
}

// ModuleIndex returns the position of moduleID in Modules, or -1.
func (p *Progress) ModuleIndex(moduleID uint) int {
	for i := range p.Modules {
		if p.Modules[i].ModuleID == moduleID {
			return i
		}
	}
	return -1
}

// FindLesson returns the module and lesson positions of lessonID.
func (p *Progress) FindLesson(lessonID uint) (int, int, bool) {
	for mi := range p.Modules {
		for li := range p.Modules[mi].Lessons {
			if p.Modules[mi].Lessons[li].LessonID == lessonID {
				return mi, li, true
			}
		}
	}
	return -1, -1, false
}

// CompletedLessons counts lesson entries marked complete.
func (m *ModuleProgress) CompletedLessons() int {
	n := 0
	for _, l := range m.Lessons {
		if l.IsCompleted {
			n++
		}
	}
	return n
}

// AttemptsFor returns the attempts recorded for one assessment.
func (m *ModuleProgress) AttemptsFor(assessmentID uint) []AssessmentAttempt {
	var out []AssessmentAttempt
	for _, a := range m.AssessmentAttempts {
		if a.AssessmentID == assessmentID {
			out = append(out, a)
		}
	}
	return out
}

// HasPassedAttempt reports whether any recorded attempt passed.
func (m *ModuleProgress) HasPassedAttempt() bool {
	for _, a := range m.AssessmentAttempts {
		if a.Passed {
			return true
		}
	}
	return false
}
