package controllers

import (
	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
)

// AdminCreateCourse creates a new course
func AdminCreateCourse(c *fiber.Ctx) error {
	course, ok := c.Locals("validatedCourse").(*courseModels.Course)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if err := database.Database.Db.Create(course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// AdminPublishCourse makes a course visible and open for enrollment
func AdminPublishCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(int)

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var modules int64
	database.Database.Db.Model(&courseModels.Module{}).Where("course_id = ? AND is_deleted = ?", course.ID, false).Count(&modules)
	if modules == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Add at least one module before publishing!", nil)
	}

	course.IsPublished = true
	course.Status = courseModels.CourseActive
	if err := database.Database.Db.Save(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to publish course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", course)
}

// AdminCreateModule adds a module to a course
func AdminCreateModule(c *fiber.Ctx) error {
	module, ok := c.Locals("validatedModule").(*courseModels.Module)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var course courseModels.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", module.CourseID, false).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	// append to the end unless the admin picked a position
	if module.OrderIndex == 0 {
		var maxOrder int
		database.Database.Db.Model(&courseModels.Module{}).
			Where("course_id = ? AND is_deleted = ?", course.ID, false).
			Select("COALESCE(MAX(order_index), 0)").
			Scan(&maxOrder)
		module.OrderIndex = maxOrder + 1
	}

	if err := database.Database.Db.Create(module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create module!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

func findCourseModule(c *fiber.Ctx, courseID, moduleID uint) (*courseModels.Module, bool, error) {
	var module courseModels.Module
	if err := database.Database.Db.Where("id = ? AND course_id = ? AND is_deleted = ?", moduleID, courseID, false).First(&module).Error; err != nil {
		return nil, false, middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}
	return &module, true, nil
}

// AdminCreateLesson adds a lesson to a module. Learners who already started
// the course pick it up on their next report or sync.
func AdminCreateLesson(c *fiber.Ctx) error {
	lesson, ok := c.Locals("validatedLesson").(*courseModels.Lesson)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	if _, ok, err := findCourseModule(c, lesson.CourseID, lesson.ModuleID); !ok {
		return err
	}

	if lesson.OrderIndex == 0 {
		var maxOrder int
		database.Database.Db.Model(&courseModels.Lesson{}).
			Where("module_id = ? AND is_deleted = ?", lesson.ModuleID, false).
			Select("COALESCE(MAX(order_index), 0)").
			Scan(&maxOrder)
		lesson.OrderIndex = maxOrder + 1
	}

	if err := database.Database.Db.Create(lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

// AdminCreateAssessment attaches a quiz, with its questions and options, to a
// module. A module carries at most one live assessment.
func AdminCreateAssessment(c *fiber.Ctx) error {
	assessment, ok := c.Locals("validatedAssessment").(*courseModels.Assessment)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	if _, ok, err := findCourseModule(c, assessment.CourseID, assessment.ModuleID); !ok {
		return err
	}

	var existing int64
	database.Database.Db.Model(&courseModels.Assessment{}).
		Where("module_id = ? AND is_deleted = ?", assessment.ModuleID, false).
		Count(&existing)
	if existing > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Module already has an assessment!", nil)
	}

	// questions and options are created with the assessment
	if err := database.Database.Db.Create(assessment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create assessment!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Assessment created successfully!", assessment)
}
