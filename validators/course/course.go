package courseValidator

import (
	"github.com/gofiber/fiber/v2"
)

func CourseList() fiber.Handler {
	return Pagination()
}

func GetCourseDetail() fiber.Handler {
	return IDParam("id", "Course ID", "courseID")
}

func EnrollCourse() fiber.Handler {
	return IDParam("id", "Course ID", "courseID")
}

func GetUserEnrollments() fiber.Handler {
	return Pagination()
}

// CourseParam validates the :course_id parameter shared by the learner
// progress, module access, sync and certificate routes.
func CourseParam() fiber.Handler {
	return IDParam("course_id", "Course ID", "courseID")
}
