package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	"lms/services/progress"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up all admin course management routes
func SetupAdminCourseRoutes(app *fiber.App, engine *progress.Engine) {
	admin := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole(models.RoleAdmin))

	// Course authoring
	adminGroup := admin.Group("/course")
	adminGroup.Post("/create", validators.CreateCourseAdmin(), controllers.AdminCreateCourse)
	adminGroup.Post("/:id/publish", validators.GetCourseDetail(), controllers.AdminPublishCourse)
	adminGroup.Post("/:id/module", validators.CreateModule(), controllers.AdminCreateModule)
	adminGroup.Post("/:course_id/module/:module_id/lesson", validators.CreateLessonAdmin(), controllers.AdminCreateLesson)
	adminGroup.Post("/:course_id/module/:module_id/assessment", validators.CreateAssessmentAdmin(), controllers.AdminCreateAssessment)

	// Learner progress
	adminGroup.Get("/:id/progress-stats", validators.CourseStats(), controllers.AdminCourseProgressStats(engine))
	adminGroup.Post("/:course_id/user/:user_id/progress/reset", validators.LearnerProgress(), controllers.AdminResetUserProgress(engine))
	adminGroup.Post("/:course_id/user/:user_id/progress/reconcile", validators.LearnerProgress(), controllers.AdminReconcileUserProgress(engine))

	// Certificate Management
	certGroup := admin.Group("/certificates")
	certGroup.Get("/pending", validators.GetPendingCertificates(), controllers.AdminGetPendingCertificates)

	certRequestGroup := admin.Group("/certificate")
	certRequestGroup.Post("/:request_id/approve", validators.ApproveCertificate(), controllers.AdminApproveCertificate)
	certRequestGroup.Post("/:request_id/reject", validators.RejectCertificate(), controllers.AdminRejectCertificate)

	// Dashboard
	admin.Get("/dashboard/stats", controllers.AdminDashboardStats)
}
