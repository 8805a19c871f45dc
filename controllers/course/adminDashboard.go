package controllers

import (
	"strings"
	"time"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AdminGetPendingCertificates lists certificate requests waiting for review
func AdminGetPendingCertificates(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	var total int64
	database.Database.Db.Model(&courseModels.CertificateRequest{}).
		Where("status = ? AND is_deleted = ?", courseModels.CertificatePending, false).
		Count(&total)

	type RequestWithDetails struct {
		courseModels.CertificateRequest
		UserName        string `json:"user_name"`
		UserEmail       string `json:"user_email"`
		CourseName      string `json:"course_name"`
		OverallProgress int    `json:"overall_progress"`
	}

	var requests []courseModels.CertificateRequest
	if err := database.Database.Db.Where("status = ? AND is_deleted = ?", courseModels.CertificatePending, false).
		Offset(offset).Limit(limit).Order("requested_at asc").Find(&requests).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch requests!", nil)
	}

	result := make([]RequestWithDetails, len(requests))
	for i, r := range requests {
		var reqUser models.User
		var course courseModels.Course
		var doc courseModels.Progress
		database.Database.Db.Where("id = ?", r.UserID).First(&reqUser)
		database.Database.Db.Where("id = ?", r.CourseID).First(&course)
		database.Database.Db.Where("id = ?", r.ProgressID).First(&doc)
		result[i] = RequestWithDetails{
			CertificateRequest: r,
			UserName:           reqUser.Name,
			UserEmail:          reqUser.Email,
			CourseName:         course.Title,
			OverallProgress:    doc.OverallProgress,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending certificate requests fetched successfully!", fiber.Map{
		"requests": result,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func newCertificateNumber() string {
	return "CERT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// AdminApproveCertificate issues the certificate for a pending request. The
// learner's progress must still be complete; a reset since the request blocks
// approval.
func AdminApproveCertificate(c *fiber.Ctx) error {
	admin := c.Locals("user").(*models.User)
	requestID := c.Locals("requestID").(int)

	var request courseModels.CertificateRequest
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", requestID, false).First(&request).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate request not found!", nil)
	}
	if request.Status != courseModels.CertificatePending {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Request is not pending!", nil)
	}

	var doc courseModels.Progress
	if err := database.Database.Db.Where("id = ?", request.ProgressID).First(&doc).Error; err != nil || !doc.IsCompleted {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Course progress is no longer complete!", nil)
	}

	tx := database.Database.Db.Begin()

	now := time.Now()
	request.Status = courseModels.CertificateApproved
	request.ApprovedAt = &now
	request.ApprovedBy = &admin.ID
	if err := tx.Save(&request).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to approve request!", nil)
	}

	certificate := courseModels.Certificate{
		UserID:            request.UserID,
		CourseID:          request.CourseID,
		CertificateNumber: newCertificateNumber(),
		IssuedAt:          now,
	}
	if err := tx.Create(&certificate).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create certificate!", nil)
	}

	if err := tx.Commit().Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to approve request!", nil)
	}

	var reqUser models.User
	var course courseModels.Course
	database.Database.Db.Where("id = ?", request.UserID).First(&reqUser)
	database.Database.Db.Where("id = ?", request.CourseID).First(&course)

	subject, body := utils.CertificateIssuedEmail(reqUser.Name, course.Title, certificate.CertificateNumber)
	sendEmail(reqUser.Email, subject, body)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate approved and generated successfully!", certificate)
}

// AdminRejectCertificate declines a pending request with a reason
func AdminRejectCertificate(c *fiber.Ctx) error {
	requestID := c.Locals("requestID").(int)
	reason := c.Locals("rejectionReason").(string)

	var request courseModels.CertificateRequest
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", requestID, false).First(&request).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Certificate request not found!", nil)
	}
	if request.Status != courseModels.CertificatePending {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Request is not pending!", nil)
	}

	request.Status = courseModels.CertificateRejected
	request.RejectionReason = reason
	if err := database.Database.Db.Save(&request).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reject request!", nil)
	}

	var reqUser models.User
	var course courseModels.Course
	database.Database.Db.Where("id = ?", request.UserID).First(&reqUser)
	database.Database.Db.Where("id = ?", request.CourseID).First(&course)

	subject, body := utils.CertificateRejectedEmail(reqUser.Name, course.Title, reason)
	sendEmail(reqUser.Email, subject, body)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate request rejected!", request)
}

// AdminDashboardStats summarises courses, enrollments and learner progress
func AdminDashboardStats(c *fiber.Ctx) error {
	var totalCourses, publishedCourses, totalEnrollments, completedEnrollments, pendingCertificates int64

	database.Database.Db.Model(&courseModels.Course{}).Where("is_deleted = ?", false).Count(&totalCourses)
	database.Database.Db.Model(&courseModels.Course{}).Where("is_deleted = ? AND is_published = ?", false, true).Count(&publishedCourses)
	database.Database.Db.Model(&courseModels.Enrollment{}).Where("is_deleted = ?", false).Count(&totalEnrollments)
	database.Database.Db.Model(&courseModels.Enrollment{}).Where("is_deleted = ? AND status = ?", false, courseModels.EnrollmentCompleted).Count(&completedEnrollments)
	database.Database.Db.Model(&courseModels.CertificateRequest{}).Where("is_deleted = ? AND status = ?", false, courseModels.CertificatePending).Count(&pendingCertificates)

	var watch struct {
		AverageProgress float64
		TotalWatchTime  int64
	}
	database.Database.Db.Model(&courseModels.Progress{}).
		Select("COALESCE(AVG(overall_progress), 0) AS average_progress, COALESCE(SUM(total_watch_time), 0) AS total_watch_time").
		Scan(&watch)

	type RecentActivity struct {
		UserName        string    `json:"user_name"`
		CourseName      string    `json:"course_name"`
		OverallProgress int       `json:"overall_progress"`
		LastActivityAt  time.Time `json:"last_activity_at"`
	}

	var recentDocs []courseModels.Progress
	database.Database.Db.Order("last_activity_at desc").Limit(5).Find(&recentDocs)

	recent := make([]RecentActivity, len(recentDocs))
	for i, p := range recentDocs {
		var learner models.User
		var course courseModels.Course
		database.Database.Db.Where("id = ?", p.UserID).First(&learner)
		database.Database.Db.Where("id = ?", p.CourseID).First(&course)
		recent[i] = RecentActivity{
			UserName:        learner.Name,
			CourseName:      course.Title,
			OverallProgress: p.OverallProgress,
			LastActivityAt:  p.LastActivityAt,
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard stats fetched successfully!", fiber.Map{
		"stats": fiber.Map{
			"total_courses":         totalCourses,
			"published_courses":     publishedCourses,
			"total_enrollments":     totalEnrollments,
			"completed_enrollments": completedEnrollments,
			"pending_certificates":  pendingCertificates,
			"average_progress":      watch.AverageProgress,
			"total_watch_time":      watch.TotalWatchTime,
		},
		"recent_activity": recent,
	})
}
