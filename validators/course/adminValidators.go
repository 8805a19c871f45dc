package courseValidator

import (
	"fmt"
	"lms/middleware"
	"lms/models/course"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ============ Course Validators ============

type courseRequest struct {
	Title        string `json:"title" validate:"required,notblank,min=3,max=200"`
	Description  string `json:"description" validate:"required,notblank,min=5"`
	Author       string `json:"author" validate:"required,notblank,min=3"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
	Publish      bool   `json:"publish"`
}

var authorPattern = regexp.MustCompile(`[<>{}]`)

// CreateCourseAdmin validates admin course creation request
func CreateCourseAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(courseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validateBody(reqData)
		if _, ok := errors["author"]; !ok && authorPattern.MatchString(reqData.Author) {
			errors["author"] = "Author name contains invalid characters!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		newCourse := &course.Course{
			Title:        strings.TrimSpace(reqData.Title),
			Description:  strings.TrimSpace(reqData.Description),
			Author:       strings.TrimSpace(reqData.Author),
			ThumbnailURL: reqData.ThumbnailURL,
			Status:       course.CourseDraft,
		}
		if reqData.Publish {
			newCourse.Status = course.CourseActive
			newCourse.IsPublished = true
		}

		c.Locals("validatedCourse", newCourse)
		return c.Next()
	}
}

// ============ Module Validators ============

type moduleRequest struct {
	Title       string `json:"title" validate:"required,notblank,min=3"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" validate:"min=0"`
}

func CreateModule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok, err := parseID(c, "id", "Course ID")
		if !ok {
			return err
		}

		reqData := new(moduleRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validateBody(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("validatedModule", &course.Module{
			CourseID:    uint(courseID),
			Title:       strings.TrimSpace(reqData.Title),
			Description: strings.TrimSpace(reqData.Description),
			OrderIndex:  reqData.OrderIndex,
		})
		return c.Next()
	}
}

// ============ Lesson Validators ============

type lessonRequest struct {
	Title           string `json:"title" validate:"required,notblank,min=3"`
	Description     string `json:"description"`
	ContentType     string `json:"content_type" validate:"omitempty,oneof=VIDEO TEXT"`
	VideoURL        string `json:"video_url" validate:"omitempty,url"`
	TextContent     string `json:"text_content"`
	DurationSeconds int64  `json:"duration_seconds" validate:"min=0"`
	OrderIndex      int    `json:"order_index" validate:"min=0"`
	IsPublished     bool   `json:"is_published"`
}

// CreateLessonAdmin validates a lesson added to a module
func CreateLessonAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok, err := parseID(c, "course_id", "Course ID")
		if !ok {
			return err
		}
		moduleID, ok, err := parseID(c, "module_id", "Module ID")
		if !ok {
			return err
		}

		reqData := new(lessonRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validateBody(reqData)
		if reqData.ContentType == "" {
			reqData.ContentType = course.LessonVideo
		}
		switch reqData.ContentType {
		case course.LessonVideo:
			if _, ok := errors["video_url"]; !ok && reqData.VideoURL == "" {
				errors["video_url"] = "Video URL is required for video lessons!"
			}
		case course.LessonText:
			if strings.TrimSpace(reqData.TextContent) == "" {
				errors["text_content"] = "Text content is required for text lessons!"
			}
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("moduleID", moduleID)
		c.Locals("validatedLesson", &course.Lesson{
			CourseID:        uint(courseID),
			ModuleID:        uint(moduleID),
			Title:           strings.TrimSpace(reqData.Title),
			Description:     strings.TrimSpace(reqData.Description),
			ContentType:     reqData.ContentType,
			VideoURL:        reqData.VideoURL,
			TextContent:     reqData.TextContent,
			DurationSeconds: reqData.DurationSeconds,
			OrderIndex:      reqData.OrderIndex,
			IsPublished:     reqData.IsPublished,
		})
		return c.Next()
	}
}

// ============ Assessment Validators ============

type optionRequest struct {
	OptionText string `json:"option_text" validate:"required,notblank"`
	IsCorrect  bool   `json:"is_correct"`
}

type questionRequest struct {
	Prompt  string          `json:"prompt" validate:"required,notblank"`
	Options []optionRequest `json:"options" validate:"required,min=2,max=6,dive"`
}

type assessmentRequest struct {
	Title           string            `json:"title" validate:"required,notblank,min=3"`
	PassingScore    int               `json:"passing_score" validate:"required,min=1,max=100"`
	AttemptsAllowed int               `json:"attempts_allowed" validate:"min=0"`
	IsPublished     bool              `json:"is_published"`
	Questions       []questionRequest `json:"questions" validate:"required,min=1,dive"`
}

// CreateAssessmentAdmin validates a module quiz with its questions and
// options. Every question needs exactly one correct option.
func CreateAssessmentAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok, err := parseID(c, "course_id", "Course ID")
		if !ok {
			return err
		}
		moduleID, ok, err := parseID(c, "module_id", "Module ID")
		if !ok {
			return err
		}

		reqData := new(assessmentRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validateBody(reqData)
		for i, q := range reqData.Questions {
			correct := 0
			for _, o := range q.Options {
				if o.IsCorrect {
					correct++
				}
			}
			if correct != 1 {
				errors[fmt.Sprintf("questions[%d].options", i)] = "Exactly one option must be correct!"
			}
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		assessment := &course.Assessment{
			CourseID:        uint(courseID),
			ModuleID:        uint(moduleID),
			Title:           strings.TrimSpace(reqData.Title),
			PassingScore:    reqData.PassingScore,
			AttemptsAllowed: reqData.AttemptsAllowed,
			IsPublished:     reqData.IsPublished,
		}
		for i, q := range reqData.Questions {
			question := course.AssessmentQuestion{Prompt: strings.TrimSpace(q.Prompt), OrderIndex: i + 1}
			for j, o := range q.Options {
				question.Options = append(question.Options, course.AssessmentOption{
					OptionText: strings.TrimSpace(o.OptionText),
					IsCorrect:  o.IsCorrect,
					OrderIndex: j + 1,
				})
			}
			assessment.Questions = append(assessment.Questions, question)
		}

		c.Locals("courseID", courseID)
		c.Locals("moduleID", moduleID)
		c.Locals("validatedAssessment", assessment)
		return c.Next()
	}
}

// CourseStats validates the progress statistics request
func CourseStats() fiber.Handler {
	return IDParam("id", "Course ID", "courseID")
}

// ============ Certificate Validators ============

// GetPendingCertificates validates pending certificates list request
func GetPendingCertificates() fiber.Handler {
	return Pagination()
}

// ApproveCertificate validates certificate approval request
func ApproveCertificate() fiber.Handler {
	return IDParam("request_id", "Request ID", "requestID")
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// RejectCertificate validates certificate rejection request
func RejectCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID, ok, err := parseID(c, "request_id", "Request ID")
		if !ok {
			return err
		}

		reqData := new(rejectRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validateBody(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("requestID", requestID)
		c.Locals("rejectionReason", strings.TrimSpace(reqData.Reason))
		return c.Next()
	}
}
