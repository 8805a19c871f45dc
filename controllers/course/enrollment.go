package controllers

import (
	"log"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// EnrollInCourse creates the enrollment that grants access to a course and
// builds the learner's progress document with the first module unlocked.
func EnrollInCourse(engine *progress.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok, err := currentUser(c)
		if !ok {
			return err
		}

		courseID := c.Locals("courseID").(int)

		// Check if course exists and is active
		var course courseModels.Course
		if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND status = ?", courseID, false, courseModels.CourseActive).First(&course).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not active!", nil)
		}

		var existingEnrollment courseModels.Enrollment
		if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", user.ID, courseID, false).First(&existingEnrollment).Error; err == nil {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "User already enrolled in this course!", nil)
		}

		enrollment := courseModels.Enrollment{
			UserID:   user.ID,
			CourseID: course.ID,
			Status:   courseModels.EnrollmentEnrolled,
		}
		if err := database.Database.Db.Create(&enrollment).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
		}

		doc, err := engine.Initialize(c.UserContext(), user.ID, course.ID, enrollment.ID)
		if err != nil {
			log.Printf("[ENROLLMENT] Progress init failed for user %d course %d: %v", user.ID, course.ID, err)
			database.Database.Db.Delete(&enrollment)
			return middleware.ProgressErrorResponse(c, err, "Failed to prepare course progress!")
		}

		subject, body := utils.EnrollmentEmail(user.Name, course.Title)
		sendEmail(user.Email, subject, body)

		return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in course successfully!", fiber.Map{
			"enrollment": enrollment,
			"progress":   doc,
		})
	}
}

// GetEnrollments lists the current user's enrollments with their progress.
func GetEnrollments(c *fiber.Ctx) error {
	user, ok, err := currentUser(c)
	if !ok {
		return err
	}
	page, limit, offset := pagination(c)

	var total int64
	database.Database.Db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND is_deleted = ?", user.ID, false).
		Count(&total)

	var enrollments []courseModels.Enrollment
	if err := database.Database.Db.
		Where("user_id = ? AND is_deleted = ?", user.ID, false).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&enrollments).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	courses := make(map[uint]courseModels.Course)
	docs := make(map[uint]courseModels.Progress)
	if len(courseIDs) > 0 {
		var cs []courseModels.Course
		database.Database.Db.Where("id IN ?", courseIDs).Find(&cs)
		for _, co := range cs {
			courses[co.ID] = co
		}
		ps, err := database.NewProgressStore(database.Database.Db).ListUserProgress(c.UserContext(), user.ID)
		if err != nil {
			log.Printf("[ENROLLMENT] Failed to load progress for user %d: %v", user.ID, err)
		}
		for _, p := range ps {
			docs[p.CourseID] = p
		}
	}

	items := make([]fiber.Map, 0, len(enrollments))
	for _, e := range enrollments {
		p := docs[e.CourseID]
		items = append(items, fiber.Map{
			"enrollment_id":    e.ID,
			"course_id":        e.CourseID,
			"course_title":     courses[e.CourseID].Title,
			"status":           e.Status,
			"enrolled_at":      e.CreatedAt,
			"completed_at":     e.CompletedAt,
			"overall_progress": p.OverallProgress,
			"last_activity_at": p.LastActivityAt,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": items,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}
