package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/utils"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	app         *fiber.App
	notifier    *utils.CompletionNotifier
	learner     models.User
	admin       models.User
	course      courseModels.Course
	modules     []courseModels.Module
	lessons     []courseModels.Lesson // M0: 0,1  M1: 2
	assessment  courseModels.Assessment
	learnerAuth string
	adminAuth   string

	mu     sync.Mutex
	emails []string // subjects
}

func (s *server) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.emails...)
}

func newServer(t *testing.T) *server {
	t.Helper()
	config.AppConfig = &config.Config{JWTKey: "test-secret"}

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	database.Database = database.DbInstance{Db: db}

	s := &server{}
	record := func(subject string) {
		s.mu.Lock()
		s.emails = append(s.emails, subject)
		s.mu.Unlock()
	}
	prev := sendEmail
	sendEmail = func(to, subject, body string) { record(subject) }
	t.Cleanup(func() { sendEmail = prev })

	s.learner = models.User{Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
	s.admin = models.User{Name: "Ravi", Email: "ravi@example.com", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&s.learner).Error)
	require.NoError(t, db.Create(&s.admin).Error)

	s.course = courseModels.Course{Title: "Go in Practice", Status: courseModels.CourseActive, IsPublished: true}
	require.NoError(t, db.Create(&s.course).Error)
	for i, title := range []string{"Basics", "Concurrency"} {
		m := courseModels.Module{CourseID: s.course.ID, Title: title, OrderIndex: i + 1}
		require.NoError(t, db.Create(&m).Error)
		s.modules = append(s.modules, m)
	}
	for _, l := range []courseModels.Lesson{
		{CourseID: s.course.ID, ModuleID: s.modules[0].ID, Title: "Types", DurationSeconds: 300, OrderIndex: 1, IsPublished: true},
		{CourseID: s.course.ID, ModuleID: s.modules[0].ID, Title: "Funcs", DurationSeconds: 300, OrderIndex: 2, IsPublished: true},
		{CourseID: s.course.ID, ModuleID: s.modules[1].ID, Title: "Channels", DurationSeconds: 600, OrderIndex: 1, IsPublished: true},
	} {
		require.NoError(t, db.Create(&l).Error)
		s.lessons = append(s.lessons, l)
	}
	s.assessment = courseModels.Assessment{
		CourseID: s.course.ID, ModuleID: s.modules[0].ID, Title: "Basics quiz",
		PassingScore: 50, AttemptsAllowed: 2, IsPublished: true,
		Questions: []courseModels.AssessmentQuestion{
			{Prompt: "q1", OrderIndex: 1, Options: []courseModels.AssessmentOption{
				{OptionText: "right", IsCorrect: true, OrderIndex: 1}, {OptionText: "wrong", OrderIndex: 2},
			}},
			{Prompt: "q2", OrderIndex: 2, Options: []courseModels.AssessmentOption{
				{OptionText: "right", IsCorrect: true, OrderIndex: 1}, {OptionText: "wrong", OrderIndex: 2},
			}},
		},
	}
	require.NoError(t, db.Create(&s.assessment).Error)

	s.notifier = utils.NewCompletionNotifier(db, "", func(to []string, subject, body string) error {
		record(subject)
		return nil
	})
	engine := progress.NewEngine(
		database.NewProgressStore(db),
		database.NewCourseStructureStore(db),
		database.NewAssessmentStore(db),
		progress.WithCompletionHook(s.notifier),
	)

	s.app = fiber.New()
	user := s.app.Group("", middleware.JWTMiddleware)
	user.Get("/course/:id", validators.GetCourseDetail(), GetCourseDetails)
	user.Post("/course/:id/enroll", validators.EnrollCourse(), EnrollInCourse(engine))
	user.Get("/course/:course_id/progress", validators.CourseParam(), GetUserProgress(engine))
	user.Post("/course/:course_id/progress/sync", validators.CourseParam(), SyncProgress(engine))
	user.Get("/course/:course_id/modules/access", validators.CourseParam(), GetModuleAccess(engine))
	user.Post("/course/:course_id/lesson/:lesson_id/watch", validators.WatchProgress(), RecordWatchProgress(engine))
	user.Post("/course/:course_id/certificate/request", validators.CourseParam(), RequestCertificate)
	user.Post("/assessment/:assessment_id/submit", validators.SubmitAssessment(), SubmitAssessment(engine))
	user.Get("/user/enrollments", validators.GetUserEnrollments(), GetEnrollments)
	user.Get("/user/certificates", GetUserCertificates)

	admin := s.app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole(models.RoleAdmin))
	admin.Post("/course/:course_id/module/:module_id/lesson", validators.CreateLessonAdmin(), AdminCreateLesson)
	admin.Post("/course/:course_id/module/:module_id/assessment", validators.CreateAssessmentAdmin(), AdminCreateAssessment)
	admin.Get("/course/:id/progress-stats", validators.CourseStats(), AdminCourseProgressStats(engine))
	admin.Post("/course/:course_id/user/:user_id/progress/reset", validators.LearnerProgress(), AdminResetUserProgress(engine))
	admin.Post("/course/:course_id/user/:user_id/progress/reconcile", validators.LearnerProgress(), AdminReconcileUserProgress(engine))
	admin.Get("/certificates/pending", validators.GetPendingCertificates(), AdminGetPendingCertificates)
	admin.Post("/certificate/:request_id/approve", validators.ApproveCertificate(), AdminApproveCertificate)
	admin.Post("/certificate/:request_id/reject", validators.RejectCertificate(), AdminRejectCertificate)
	admin.Get("/dashboard/stats", AdminDashboardStats)

	token, err := middleware.GenerateJWT(s.learner.ID, s.learner.Name, s.learner.Role, s.learner.Email, "")
	require.NoError(t, err)
	s.learnerAuth = "Bearer " + token
	token, err = middleware.GenerateJWT(s.admin.ID, s.admin.Name, s.admin.Role, s.admin.Email, "")
	require.NoError(t, err)
	s.adminAuth = "Bearer " + token
	return s
}

func (s *server) do(t *testing.T, auth, method, target, body string) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func decode(t *testing.T, r response, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func (s *server) watch(t *testing.T, lesson courseModels.Lesson, watched int64) (int, response) {
	return s.do(t, s.learnerAuth, "POST",
		fmt.Sprintf("/course/%d/lesson/%d/watch", s.course.ID, lesson.ID),
		fmt.Sprintf(`{"watch_time":%d,"total_duration":%d}`, watched, lesson.DurationSeconds))
}

func (s *server) answers(right bool) string {
	pick := 1
	if right {
		pick = 0
	}
	parts := make([]string, 0, len(s.assessment.Questions))
	for _, q := range s.assessment.Questions {
		parts = append(parts, fmt.Sprintf(`{"question_id":%d,"option_id":%d}`, q.ID, q.Options[pick].ID))
	}
	return `{"answers":[` + strings.Join(parts, ",") + `]}`
}

func (s *server) enroll(t *testing.T) {
	t.Helper()
	status, res := s.do(t, s.learnerAuth, "POST", fmt.Sprintf("/course/%d/enroll", s.course.ID), "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
}

func TestLearnerJourney(t *testing.T) {
	s := newServer(t)
	coursePath := fmt.Sprintf("/course/%d", s.course.ID)

	status, res := s.do(t, s.learnerAuth, "GET", coursePath+"/progress", "")
	assert.Equal(t, fiber.StatusNotFound, status, "no progress before enrolling")

	status, res = s.do(t, s.learnerAuth, "POST", coursePath+"/enroll", "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var enrolled struct {
		Enrollment courseModels.Enrollment `json:"enrollment"`
		Progress   courseModels.Progress   `json:"progress"`
	}
	decode(t, res, &enrolled)
	assert.Equal(t, enrolled.Enrollment.ID, enrolled.Progress.SubscriptionID)
	require.Len(t, enrolled.Progress.Modules, 2)
	assert.NotNil(t, enrolled.Progress.Modules[0].UnlockedAt)
	assert.Nil(t, enrolled.Progress.Modules[1].UnlockedAt)

	status, _ = s.do(t, s.learnerAuth, "POST", coursePath+"/enroll", "")
	assert.Equal(t, fiber.StatusConflict, status)

	// second module is locked
	status, res = s.watch(t, s.lessons[2], 600)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Complete the previous module to unlock this lesson!", res.Message)

	status, res = s.watch(t, s.lessons[0], 240)
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var update progress.ProgressUpdateResult
	decode(t, res, &update)
	assert.True(t, update.LessonCompleted)
	assert.Equal(t, 80, update.LessonProgress)

	status, res = s.watch(t, s.lessons[1], 300)
	require.Equal(t, fiber.StatusOK, status)
	decode(t, res, &update)
	assert.False(t, update.ModuleCompleted, "assessment still pending")

	status, res = s.do(t, s.learnerAuth, "POST", coursePath+"/certificate/request", "")
	assert.Equal(t, fiber.StatusBadRequest, status, "course not completed yet")

	submitPath := fmt.Sprintf("/assessment/%d/submit", s.assessment.ID)
	status, res = s.do(t, s.learnerAuth, "POST", submitPath, s.answers(false))
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var attempt progress.AttemptResult
	decode(t, res, &attempt)
	assert.False(t, attempt.Passed)
	assert.True(t, attempt.CanRetake)
	assert.Equal(t, "Assessment failed. Please try again!", res.Message)

	status, res = s.do(t, s.learnerAuth, "POST", submitPath, fmt.Sprintf(`{"answers":[{"question_id":%d,"option_id":%d}]}`,
		s.assessment.Questions[0].ID, s.assessment.Questions[0].Options[0].ID))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, "answer count mismatch")

	status, res = s.do(t, s.learnerAuth, "POST", submitPath, s.answers(true))
	require.Equal(t, fiber.StatusOK, status, res.Message)
	decode(t, res, &attempt)
	assert.True(t, attempt.Passed)
	assert.True(t, attempt.NextModuleUnlocked)

	status, res = s.do(t, s.learnerAuth, "POST", submitPath, s.answers(true))
	assert.Equal(t, fiber.StatusConflict, status, "already passed")

	status, res = s.do(t, s.learnerAuth, "GET", coursePath+"/modules/access", "")
	require.Equal(t, fiber.StatusOK, status)
	var access []progress.ModuleAccess
	decode(t, res, &access)
	require.Len(t, access, 2)
	assert.True(t, access[1].Accessible)

	status, res = s.watch(t, s.lessons[2], 500)
	require.Equal(t, fiber.StatusOK, status, res.Message)
	decode(t, res, &update)
	assert.True(t, update.CourseCompleted)
	assert.Equal(t, 100, update.OverallProgress)
	s.notifier.Wait()

	var enrollment courseModels.Enrollment
	require.NoError(t, database.Database.Db.First(&enrollment, enrolled.Enrollment.ID).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)

	status, res = s.do(t, s.learnerAuth, "GET", coursePath+"/progress", "")
	require.Equal(t, fiber.StatusOK, status)
	var doc courseModels.Progress
	decode(t, res, &doc)
	assert.True(t, doc.IsCompleted)
	assert.Equal(t, int64(240+300+500), doc.TotalWatchTime)

	status, res = s.do(t, s.learnerAuth, "POST", coursePath+"/certificate/request", "")
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	var request courseModels.CertificateRequest
	decode(t, res, &request)
	assert.Equal(t, doc.ID, request.ProgressID)

	status, _ = s.do(t, s.learnerAuth, "POST", coursePath+"/certificate/request", "")
	assert.Equal(t, fiber.StatusConflict, status)

	status, res = s.do(t, s.adminAuth, "POST", fmt.Sprintf("/admin/certificate/%d/approve", request.ID), "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var cert courseModels.Certificate
	decode(t, res, &cert)
	assert.True(t, strings.HasPrefix(cert.CertificateNumber, "CERT-"))
	assert.Len(t, cert.CertificateNumber, len("CERT-")+32)

	status, _ = s.do(t, s.adminAuth, "POST", fmt.Sprintf("/admin/certificate/%d/reject", request.ID), `{"reason":"late"}`)
	assert.Equal(t, fiber.StatusBadRequest, status, "request no longer pending")

	status, res = s.do(t, s.learnerAuth, "GET", "/user/certificates", "")
	require.Equal(t, fiber.StatusOK, status)
	var certs struct {
		Certificates []struct {
			CertificateNumber string `json:"certificate_number"`
			CourseName        string `json:"course_name"`
		} `json:"certificates"`
	}
	decode(t, res, &certs)
	require.Len(t, certs.Certificates, 1)
	assert.Equal(t, "Go in Practice", certs.Certificates[0].CourseName)

	status, res = s.do(t, s.learnerAuth, "GET", "/user/enrollments", "")
	require.Equal(t, fiber.StatusOK, status)
	var list struct {
		Enrollments []struct {
			Status          string `json:"status"`
			OverallProgress int    `json:"overall_progress"`
		} `json:"enrollments"`
	}
	decode(t, res, &list)
	require.Len(t, list.Enrollments, 1)
	assert.Equal(t, courseModels.EnrollmentCompleted, list.Enrollments[0].Status)
	assert.Equal(t, 100, list.Enrollments[0].OverallProgress)

	assert.ElementsMatch(t, []string{
		"Course Enrollment Confirmation: Go in Practice",
		"You completed Go in Practice",
		"Course Completion Certificate: Go in Practice",
	}, s.subjects())
}

func TestCourseDetailsHideAnswers(t *testing.T) {
	s := newServer(t)

	status, res := s.do(t, s.learnerAuth, "GET", fmt.Sprintf("/course/%d", s.course.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, string(res.Data), "is_correct")

	var details struct {
		Modules []struct {
			Lessons     []json.RawMessage `json:"lessons"`
			Assessments []json.RawMessage `json:"assessments"`
		} `json:"modules"`
	}
	decode(t, res, &details)
	require.Len(t, details.Modules, 2)
	assert.Len(t, details.Modules[0].Lessons, 2)
	assert.Len(t, details.Modules[0].Assessments, 1)
	assert.Empty(t, details.Modules[1].Assessments)
}

func TestAdminProgressOperations(t *testing.T) {
	s := newServer(t)
	s.enroll(t)

	status, res := s.watch(t, s.lessons[0], 300)
	require.Equal(t, fiber.StatusOK, status, res.Message)

	learnerPath := fmt.Sprintf("/admin/course/%d/user/%d/progress", s.course.ID, s.learner.ID)

	status, _ = s.do(t, s.learnerAuth, "POST", learnerPath+"/reset", "")
	assert.Equal(t, fiber.StatusForbidden, status, "learners cannot reset")

	// a lesson added after enrollment is picked up by reconciliation
	status, res = s.do(t, s.adminAuth, "POST",
		fmt.Sprintf("/admin/course/%d/module/%d/lesson", s.course.ID, s.modules[0].ID),
		`{"title":"Methods","video_url":"https://cdn.example.com/methods.mp4","duration_seconds":120,"is_published":true}`)
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	var lesson courseModels.Lesson
	decode(t, res, &lesson)
	assert.Equal(t, 3, lesson.OrderIndex)

	status, res = s.do(t, s.adminAuth, "POST", fmt.Sprintf("%s/reconcile?module_id=%d", learnerPath, s.modules[0].ID), "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var reconciled struct {
		LessonsAdded int `json:"lessons_added"`
	}
	decode(t, res, &reconciled)
	assert.Equal(t, 1, reconciled.LessonsAdded)

	status, res = s.do(t, s.adminAuth, "POST", learnerPath+"/reconcile?module_id=9999", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, res = s.do(t, s.adminAuth, "GET", fmt.Sprintf("/admin/course/%d/progress-stats", s.course.ID), "")
	require.Equal(t, fiber.StatusOK, status)
	var stats progress.CourseProgressStats
	decode(t, res, &stats)
	assert.Equal(t, 1, stats.TotalLearners)
	assert.Equal(t, 0, stats.CompletedLearners)
	require.Len(t, stats.Modules, 2)

	status, res = s.do(t, s.adminAuth, "POST", learnerPath+"/reset", "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
	var doc courseModels.Progress
	decode(t, res, &doc)
	assert.Zero(t, doc.OverallProgress)
	assert.Zero(t, doc.TotalWatchTime)
	assert.Equal(t, 0, doc.CurrentModuleIndex)

	status, res = s.do(t, s.adminAuth, "POST", fmt.Sprintf("/admin/course/%d/user/%d/progress/reset", s.course.ID, s.admin.ID), "")
	assert.Equal(t, fiber.StatusNotFound, status)
	var reason struct {
		Reason string `json:"reason"`
	}
	decode(t, res, &reason)
	assert.Equal(t, "not found", reason.Reason)

	status, res = s.do(t, s.adminAuth, "GET", "/admin/dashboard/stats", "")
	require.Equal(t, fiber.StatusOK, status, res.Message)
}

func TestAdminCreateAssessment(t *testing.T) {
	s := newServer(t)
	body := `{"title":"Concurrency quiz","passing_score":70,"attempts_allowed":3,"is_published":true,
		"questions":[{"prompt":"Unbuffered send blocks?","options":[{"option_text":"yes","is_correct":true},{"option_text":"no"}]}]}`

	status, res := s.do(t, s.adminAuth, "POST",
		fmt.Sprintf("/admin/course/%d/module/%d/assessment", s.course.ID, s.modules[1].ID), body)
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	var created courseModels.Assessment
	decode(t, res, &created)
	require.Len(t, created.Questions, 1)
	assert.Len(t, created.Questions[0].Options, 2)

	status, _ = s.do(t, s.adminAuth, "POST",
		fmt.Sprintf("/admin/course/%d/module/%d/assessment", s.course.ID, s.modules[1].ID), body)
	assert.Equal(t, fiber.StatusConflict, status, "one assessment per module")

	status, _ = s.do(t, s.adminAuth, "POST",
		fmt.Sprintf("/admin/course/%d/module/%d/assessment", s.course.ID+1, s.modules[1].ID), body)
	assert.Equal(t, fiber.StatusNotFound, status, "module of another course")
}

func TestCertificateRejection(t *testing.T) {
	s := newServer(t)
	s.enroll(t)

	// mark the document complete directly
	db := database.Database.Db
	require.NoError(t, db.Model(&courseModels.Progress{}).
		Where("user_id = ? AND course_id = ?", s.learner.ID, s.course.ID).
		Update("is_completed", true).Error)

	status, res := s.do(t, s.learnerAuth, "POST", fmt.Sprintf("/course/%d/certificate/request", s.course.ID), "")
	require.Equal(t, fiber.StatusCreated, status, res.Message)
	var request courseModels.CertificateRequest
	decode(t, res, &request)

	status, res = s.do(t, s.adminAuth, "GET", "/admin/certificates/pending", "")
	require.Equal(t, fiber.StatusOK, status)
	var pending struct {
		Requests []struct {
			ID       uint   `json:"ID"`
			UserName string `json:"user_name"`
		} `json:"requests"`
	}
	decode(t, res, &pending)
	require.Len(t, pending.Requests, 1)
	assert.Equal(t, "Asha", pending.Requests[0].UserName)

	status, res = s.do(t, s.adminAuth, "POST", fmt.Sprintf("/admin/certificate/%d/reject", request.ID), `{"reason":""}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, res = s.do(t, s.adminAuth, "POST", fmt.Sprintf("/admin/certificate/%d/reject", request.ID), `{"reason":"Name mismatch"}`)
	require.Equal(t, fiber.StatusOK, status, res.Message)
	decode(t, res, &request)
	assert.Equal(t, courseModels.CertificateRejected, request.Status)
	assert.Equal(t, "Name mismatch", request.RejectionReason)
	assert.Contains(t, s.subjects(), "Certificate Request Update: Go in Practice")

	// rejected requests can be filed again
	status, _ = s.do(t, s.learnerAuth, "POST", fmt.Sprintf("/course/%d/certificate/request", s.course.ID), "")
	assert.Equal(t, fiber.StatusCreated, status)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchLogsEnrollmentUpdateFailure(t *testing.T) {
	s := newServer(t)
	s.enroll(t)

	var logs lockedBuffer
	prev := log.Writer()
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(prev) })

	require.NoError(t, database.Database.Db.Migrator().DropTable(&courseModels.Enrollment{}))

	status, res := s.watch(t, s.lessons[0], 100)
	assert.Equal(t, fiber.StatusOK, status, res.Message)
	assert.Contains(t, logs.String(), "[ENROLLMENT] Failed to start enrollment")
}
