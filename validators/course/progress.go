package courseValidator

import (
	"lms/middleware"
	"lms/services/progress"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Reports are capped at a year of seconds.
type watchRequest struct {
	WatchTime     *int64 `json:"watch_time" validate:"required,min=0,max=31536000"`
	TotalDuration int64  `json:"total_duration" validate:"min=0,max=31536000"`
}

type answerRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	OptionID   uint `json:"option_id" validate:"required"`
}

type submitRequest struct {
	Answers []answerRequest `json:"answers" validate:"required,min=1,dive"`
}

// WatchProgress validates a player heartbeat for one lesson.
func WatchProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok, err := parseID(c, "course_id", "Course ID")
		if !ok {
			return err
		}
		lessonID, ok, err := parseID(c, "lesson_id", "Lesson ID")
		if !ok {
			return err
		}

		reqData := new(watchRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validateBody(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("watchTime", *reqData.WatchTime)
		c.Locals("totalDuration", reqData.TotalDuration)
		return c.Next()
	}
}

// SubmitAssessment validates an answer sheet. Answer-to-question matching is
// left to grading, which knows the questions.
func SubmitAssessment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		assessmentID, ok, err := parseID(c, "assessment_id", "Assessment ID")
		if !ok {
			return err
		}

		reqData := new(submitRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validateBody(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		answers := make([]progress.Answer, len(reqData.Answers))
		for i, a := range reqData.Answers {
			answers[i] = progress.Answer{QuestionID: a.QuestionID, OptionID: a.OptionID}
		}

		c.Locals("assessmentID", assessmentID)
		c.Locals("answers", answers)
		return c.Next()
	}
}

// LearnerProgress validates admin routes addressing one learner's document.
// An optional ?module_id= narrows reconciliation to a single module.
func LearnerProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok, err := parseID(c, "course_id", "Course ID")
		if !ok {
			return err
		}
		userID, ok, err := parseID(c, "user_id", "User ID")
		if !ok {
			return err
		}

		moduleID := 0
		if raw := strings.TrimSpace(c.Query("module_id")); raw != "" {
			id, convErr := strconv.Atoi(raw)
			if convErr != nil || id <= 0 {
				return middleware.ValidationErrorResponse(c, map[string]string{"module_id": "Module ID must be a positive number!"})
			}
			moduleID = id
		}

		c.Locals("courseID", courseID)
		c.Locals("userID", userID)
		c.Locals("moduleID", moduleID)
		return c.Next()
	}
}
