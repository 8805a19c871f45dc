package course

import "gorm.io/gorm"

// Lesson content types
const (
	LessonVideo = "VIDEO"
	LessonText  = "TEXT"
)

// Lesson is a single watchable/readable unit inside a module
type Lesson struct {
	gorm.Model
	CourseID        uint   `json:"course_id" gorm:"index;not null"`
	ModuleID        uint   `json:"module_id" gorm:"index;not null"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ContentType     string `json:"content_type" gorm:"default:'VIDEO'"` // VIDEO, TEXT
	VideoURL        string `json:"video_url"`
	TextContent     string `json:"text_content" gorm:"type:text"`
	DurationSeconds int64  `json:"duration_seconds" gorm:"default:0"` // canonical duration used for completion
	OrderIndex      int    `json:"order_index" gorm:"default:0"`      // Order within module
	IsPublished     bool   `json:"is_published" gorm:"default:false"`
	IsDeleted       bool   `gorm:"default:false"`
}
