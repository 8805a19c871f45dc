package course

import "gorm.io/gorm"

// Assessment is the quiz attached to a module. A published assessment gates
// the module's completion until one attempt passes.
type Assessment struct {
	gorm.Model
	CourseID        uint                 `json:"course_id" gorm:"index;not null"`
	ModuleID        uint                 `json:"module_id" gorm:"index;not null"`
	Title           string               `json:"title"`
	PassingScore    int                  `json:"passing_score" gorm:"default:70"`   // percentage 0-100
	AttemptsAllowed int                  `json:"attempts_allowed" gorm:"default:3"` // max submissions per learner
	IsPublished     bool                 `json:"is_published" gorm:"default:false"`
	IsDeleted       bool                 `gorm:"default:false"`
	Questions       []AssessmentQuestion `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`
}

// AssessmentQuestion represents a single question with exactly one correct option
type AssessmentQuestion struct {
	gorm.Model
	AssessmentID uint               `json:"assessment_id" gorm:"index;not null"`
	Prompt       string             `json:"prompt"`
	OrderIndex   int                `json:"order_index" gorm:"default:0"`
	IsDeleted    bool               `gorm:"default:false"`
	Options      []AssessmentOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// AssessmentOption represents an option for a question
type AssessmentOption struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false"`
}
