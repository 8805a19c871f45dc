package controllers

import (
	"errors"
	"time"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RequestCertificate requests a certificate for a completed course
func RequestCertificate(c *fiber.Ctx) error {
	user, ok, err := currentUser(c)
	if !ok {
		return err
	}
	courseID := c.Locals("courseID").(int)

	var doc courseModels.Progress
	if err := database.Database.Db.Where("user_id = ? AND course_id = ?", user.ID, courseID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "User not enrolled in this course!", nil)
		}
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load progress!", nil)
	}

	if !doc.IsCompleted {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Please complete the course before requesting a certificate!", fiber.Map{
			"overall_progress": doc.OverallProgress,
		})
	}

	var existingCert courseModels.Certificate
	if err := database.Database.Db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", user.ID, courseID, false).First(&existingCert).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Certificate already exists!", fiber.Map{
			"certificate": existingCert,
		})
	}

	var pending int64
	database.Database.Db.Model(&courseModels.CertificateRequest{}).
		Where("user_id = ? AND course_id = ? AND status = ? AND is_deleted = ?", user.ID, courseID, courseModels.CertificatePending, false).
		Count(&pending)
	if pending > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Certificate request already pending!", nil)
	}

	request := courseModels.CertificateRequest{
		UserID:      user.ID,
		CourseID:    uint(courseID),
		ProgressID:  doc.ID,
		Status:      courseModels.CertificatePending,
		RequestedAt: time.Now(),
	}
	if err := database.Database.Db.Create(&request).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit certificate request!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate request submitted successfully!", request)
}

// GetUserCertificates gets all certificates for the current user
func GetUserCertificates(c *fiber.Ctx) error {
	user, ok, err := currentUser(c)
	if !ok {
		return err
	}

	type CertificateWithCourse struct {
		courseModels.Certificate
		CourseName string `json:"course_name"`
	}

	var certificates []courseModels.Certificate
	if err := database.Database.Db.Where("user_id = ? AND is_deleted = ?", user.ID, false).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch certificates!", nil)
	}

	result := make([]CertificateWithCourse, len(certificates))
	for i, cert := range certificates {
		var course courseModels.Course
		database.Database.Db.Where("id = ?", cert.CourseID).First(&course)
		result[i] = CertificateWithCourse{Certificate: cert, CourseName: course.Title}
	}

	var pendingRequests int64
	database.Database.Db.Model(&courseModels.CertificateRequest{}).
		Where("user_id = ? AND status = ? AND is_deleted = ?", user.ID, courseModels.CertificatePending, false).
		Count(&pendingRequests)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates":     result,
		"pending_requests": pendingRequests,
	})
}
