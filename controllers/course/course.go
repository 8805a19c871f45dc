package controllers

import (
	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published courses.
func GetAllCourses(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	query := database.Database.Db.Model(&courseModels.Course{}).
		Where("is_deleted = ? AND is_published = ? AND status = ?", false, true, courseModels.CourseActive)

	var total int64
	query.Count(&total)

	var courses []courseModels.Course
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", fiber.Map{
		"courses": courses,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetCourseDetails returns the published outline of a course: modules,
// lessons and quizzes. Correct answers are never exposed.
func GetCourseDetails(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var modules []courseModels.Module
	database.Database.Db.Where("course_id = ? AND is_deleted = ?", course.ID, false).
		Order("order_index ASC, id ASC").Find(&modules)

	var lessons []courseModels.Lesson
	database.Database.Db.Where("course_id = ? AND is_published = ? AND is_deleted = ?", course.ID, true, false).
		Order("order_index ASC, id ASC").Find(&lessons)

	var assessments []courseModels.Assessment
	database.Database.Db.
		Preload("Questions", "is_deleted = ?", false).
		Preload("Questions.Options", "is_deleted = ?", false).
		Where("course_id = ? AND is_published = ? AND is_deleted = ?", course.ID, true, false).
		Find(&assessments)

	lessonsByModule := make(map[uint][]fiber.Map)
	for _, l := range lessons {
		lessonsByModule[l.ModuleID] = append(lessonsByModule[l.ModuleID], fiber.Map{
			"id":               l.ID,
			"title":            l.Title,
			"description":      l.Description,
			"content_type":     l.ContentType,
			"video_url":        l.VideoURL,
			"text_content":     l.TextContent,
			"duration_seconds": l.DurationSeconds,
			"order_index":      l.OrderIndex,
		})
	}

	assessmentsByModule := make(map[uint][]fiber.Map)
	for _, a := range assessments {
		questions := make([]fiber.Map, 0, len(a.Questions))
		for _, q := range a.Questions {
			options := make([]fiber.Map, 0, len(q.Options))
			for _, o := range q.Options {
				options = append(options, fiber.Map{"id": o.ID, "option_text": o.OptionText})
			}
			questions = append(questions, fiber.Map{"id": q.ID, "prompt": q.Prompt, "options": options})
		}
		assessmentsByModule[a.ModuleID] = append(assessmentsByModule[a.ModuleID], fiber.Map{
			"id":               a.ID,
			"title":            a.Title,
			"passing_score":    a.PassingScore,
			"attempts_allowed": a.AttemptsAllowed,
			"questions":        questions,
		})
	}

	outline := make([]fiber.Map, 0, len(modules))
	for i, m := range modules {
		outline = append(outline, fiber.Map{
			"id":          m.ID,
			"index":       i,
			"title":       m.Title,
			"description": m.Description,
			"lessons":     lessonsByModule[m.ID],
			"assessments": assessmentsByModule[m.ID],
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", fiber.Map{
		"course":  course,
		"modules": outline,
	})
}
