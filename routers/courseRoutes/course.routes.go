package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/services/progress"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all learner-facing course routes
func SetupCourseRoutes(app *fiber.App, engine *progress.Engine) {
	userGroup := app.Group("/course")

	// Course listing and details (published courses)
	userGroup.Get("/list", middleware.JWTMiddleware, validators.CourseList(), controllers.GetAllCourses)
	userGroup.Get("/:id", middleware.JWTMiddleware, validators.GetCourseDetail(), controllers.GetCourseDetails)

	// Enrollment
	userGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.EnrollCourse(), controllers.EnrollInCourse(engine))

	// Progress tracking
	userGroup.Get("/:course_id/progress", middleware.JWTMiddleware, validators.CourseParam(), controllers.GetUserProgress(engine))
	userGroup.Post("/:course_id/progress/sync", middleware.JWTMiddleware, validators.CourseParam(), controllers.SyncProgress(engine))
	userGroup.Get("/:course_id/modules/access", middleware.JWTMiddleware, validators.CourseParam(), controllers.GetModuleAccess(engine))
	userGroup.Post("/:course_id/lesson/:lesson_id/watch", middleware.JWTMiddleware, validators.WatchProgress(), controllers.RecordWatchProgress(engine))

	// Certificate request
	userGroup.Post("/:course_id/certificate/request", middleware.JWTMiddleware, validators.CourseParam(), controllers.RequestCertificate)

	// Module assessments
	assessmentGroup := app.Group("/assessment")
	assessmentGroup.Post("/:assessment_id/submit", middleware.JWTMiddleware, validators.SubmitAssessment(), controllers.SubmitAssessment(engine))

	// User enrollments and certificates
	userEnrollGroup := app.Group("/user")
	userEnrollGroup.Get("/enrollments", middleware.JWTMiddleware, validators.GetUserEnrollments(), controllers.GetEnrollments)
	userEnrollGroup.Get("/certificates", middleware.JWTMiddleware, controllers.GetUserCertificates)
}
