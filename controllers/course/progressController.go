package controllers

import (
	"log"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// GetUserProgress returns the learner's progress document for a course.
func GetUserProgress(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}
		courseID := c.Locals("courseID").(int)

		doc, err := engine.GetUserProgress(c.UserContext(), user.ID, uint(courseID))
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Progress not found for this course!")
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", doc)
	}
}

// GetModuleAccess lists which modules of the course are unlocked.
func GetModuleAccess(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}
		courseID := c.Locals("courseID").(int)

		access, err := engine.GetModuleAccess(c.UserContext(), user.ID, uint(courseID))
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Progress not found for this course!")
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Module access fetched successfully!", access)
	}
}

// RecordWatchProgress applies a player heartbeat to the lesson.
func RecordWatchProgress(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}
		courseID := c.Locals("courseID").(int)

		result, err := engine.RecordWatchProgress(c.UserContext(), progress.WatchReport{
			UserID:        user.ID,
			CourseID:      uint(courseID),
			LessonID:      uint(c.Locals("lessonID").(int)),
			WatchTime:     c.Locals("watchTime").(int64),
			TotalDuration: c.Locals("totalDuration").(int64),
		})
		if err != nil {
			if progress.IsKind(err, progress.KindForbidden) {
				return middleware.ProgressErrorResponse(c, err, "Complete the previous module to unlock this lesson!")
			}
			return middleware.ProgressErrorResponse(c, err, "Failed to record watch progress!")
		}

		// first activity moves the enrollment out of ENROLLED
		if err := database.Database.Db.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND status = ? AND is_deleted = ?", user.ID, courseID, courseModels.EnrollmentEnrolled, false).
			Update("status", courseModels.EnrollmentInProgress).Error; err != nil {
			log.Printf("[ENROLLMENT] Failed to start enrollment for user %d course %d: %v", user.ID, courseID, err)
		}

		return middleware.JsonResponse(c, fiber.StatusOK, true, "Watch progress recorded!", result)
	}
}

// SyncProgress brings the learner's document up to date with course edits.
func SyncProgress(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}
		courseID := c.Locals("courseID").(int)

		result, err := engine.SyncUserProgressWithCourse(c.UserContext(), user.ID, uint(courseID))
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Failed to sync progress!")
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress synced successfully!", result)
	}
}

// SubmitAssessment grades a module quiz attempt.
func SubmitAssessment(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}
		assessmentID := c.Locals("assessmentID").(int)
		answers := c.Locals("answers").([]progress.Answer)

		result, err := engine.SubmitAssessment(c.UserContext(), uint(assessmentID), user.ID, answers)
		if err != nil {
			switch progress.KindOf(err) {
			case progress.KindForbidden:
				return middleware.ProgressErrorResponse(c, err, "Complete the previous module to take this assessment!")
			case progress.KindInvalidState:
				return middleware.ProgressErrorResponse(c, err, "This assessment can no longer be attempted!")
			case progress.KindValidation:
				return middleware.ProgressErrorResponse(c, err, "Answers do not match the assessment!")
			}
			return middleware.ProgressErrorResponse(c, err, "Failed to submit assessment!")
		}

		message := "Assessment failed. Please try again!"
		if result.Passed {
			message = "Assessment passed!"
		} else if !result.CanRetake {
			message = "Assessment failed. No attempts left!"
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
	}
}

// ============ Admin ============

// AdminCourseProgressStats returns completion statistics of a course.
func AdminCourseProgressStats(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Locals("courseID").(int)

		var course courseModels.Course
		if err := database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
		}

		stats, err := engine.GetCourseProgressStats(c.UserContext(), course.ID)
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Failed to fetch progress stats!")
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress stats fetched successfully!", stats)
	}
}

// AdminResetUserProgress wipes one learner's progress in a course.
func AdminResetUserProgress(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Locals("courseID").(int)
		userID := c.Locals("userID").(int)

		doc, err := engine.ResetUserProgress(c.UserContext(), uint(userID), uint(courseID))
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Failed to reset progress!")
		}

		if err := database.Database.Db.Model(&courseModels.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
			Updates(map[string]interface{}{"status": courseModels.EnrollmentEnrolled, "completed_at": nil}).Error; err != nil {
			log.Printf("[ENROLLMENT] Failed to reset enrollment for user %d course %d: %v", userID, courseID, err)
		}

		return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress reset successfully!", doc)
	}
}

// AdminReconcileUserProgress appends lessons added to the course since the
// learner's document was built, optionally for one module only.
func AdminReconcileUserProgress(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID := c.Locals("courseID").(int)
		userID := c.Locals("userID").(int)
		moduleID := c.Locals("moduleID").(int)

		added, err := engine.AddMissingLessonsToProgress(c.UserContext(), uint(userID), uint(courseID), uint(moduleID))
		if err != nil {
			return middleware.ProgressErrorResponse(c, err, "Failed to reconcile progress!")
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress reconciled successfully!", fiber.Map{
			"lessons_added": added,
		})
	}
}
