package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"lms/models/course"
)

// memStore is an in-memory Store with the same version semantics as the gorm one.
type memStore struct {
	mu        sync.Mutex
	docs      map[[2]uint]*course.Progress
	nextID    uint
	saves     int
	conflicts int // number of upcoming SaveProgress calls to reject
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[[2]uint]*course.Progress)}
}

func (s *memStore) FindProgress(_ context.Context, userID, courseID uint) (*course.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[[2]uint{userID, courseID}]
	if !ok {
		return nil, nil
	}
	return cloneProgress(p), nil
}

func (s *memStore) CreateProgress(_ context.Context, p *course.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{p.UserID, p.CourseID}
	if _, ok := s.docs[key]; ok {
		return ErrDuplicate
	}
	s.nextID++
	p.ID = s.nextID
	p.Version = 1
	s.docs[key] = cloneProgress(p)
	return nil
}

func (s *memStore) SaveProgress(_ context.Context, p *course.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uint{p.UserID, p.CourseID}
	cur, ok := s.docs[key]
	if !ok || cur.Version != p.Version {
		return ErrVersionConflict
	}
	if s.conflicts > 0 {
		s.conflicts--
		cur.Version++
		return ErrVersionConflict
	}
	p.Version++
	s.saves++
	s.docs[key] = cloneProgress(p)
	return nil
}

func (s *memStore) ListCourseProgress(_ context.Context, courseID uint) ([]course.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []course.Progress
	for key, p := range s.docs {
		if key[1] == courseID {
			out = append(out, *cloneProgress(p))
		}
	}
	return out, nil
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func cloneProgress(p *course.Progress) *course.Progress {
	cp := *p
	cp.Modules = make([]course.ModuleProgress, len(p.Modules))
	for i, m := range p.Modules {
		m.Lessons = append([]course.LessonProgress(nil), m.Lessons...)
		attempts := make([]course.AssessmentAttempt, len(m.AssessmentAttempts))
		for j, a := range m.AssessmentAttempts {
			a.Answers = append([]course.AttemptAnswer(nil), a.Answers...)
			attempts[j] = a
		}
		m.AssessmentAttempts = attempts
		cp.Modules[i] = m
	}
	return &cp
}

// fakeStructure is a mutable course layout.
type fakeStructure struct {
	mu      sync.Mutex
	modules map[uint][]ModuleInfo // course -> modules
	lessons map[uint][]LessonInfo // module -> lessons
}

func newFakeStructure() *fakeStructure {
	return &fakeStructure{
		modules: make(map[uint][]ModuleInfo),
		lessons: make(map[uint][]LessonInfo),
	}
}

func (f *fakeStructure) addModule(courseID, moduleID uint, hasAssessment bool, durations ...lessonSpec) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modules[courseID] = append(f.modules[courseID], ModuleInfo{
		ModuleID:      moduleID,
		Order:         len(f.modules[courseID]),
		HasAssessment: hasAssessment,
	})
	for _, d := range durations {
		f.lessons[moduleID] = append(f.lessons[moduleID], LessonInfo{LessonID: d.id, ModuleID: moduleID, DurationSeconds: d.duration})
	}
}

func (f *fakeStructure) addLesson(moduleID, lessonID uint, duration int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lessons[moduleID] = append(f.lessons[moduleID], LessonInfo{LessonID: lessonID, ModuleID: moduleID, DurationSeconds: duration})
}

func (f *fakeStructure) removeModule(courseID, moduleID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.modules[courseID][:0]
	for _, m := range f.modules[courseID] {
		if m.ModuleID != moduleID {
			m.Order = len(kept)
			kept = append(kept, m)
		}
	}
	f.modules[courseID] = kept
	delete(f.lessons, moduleID)
}

func (f *fakeStructure) removeLesson(moduleID, lessonID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.lessons[moduleID][:0]
	for _, l := range f.lessons[moduleID] {
		if l.LessonID != lessonID {
			kept = append(kept, l)
		}
	}
	f.lessons[moduleID] = kept
}

func (f *fakeStructure) GetModules(_ context.Context, courseID uint) ([]ModuleInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ModuleInfo(nil), f.modules[courseID]...), nil
}

func (f *fakeStructure) GetLessons(_ context.Context, moduleID uint) ([]LessonInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]LessonInfo(nil), f.lessons[moduleID]...), nil
}

func (f *fakeStructure) FindLesson(_ context.Context, courseID, lessonID uint) (*LessonInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.modules[courseID] {
		for _, l := range f.lessons[m.ModuleID] {
			if l.LessonID == lessonID {
				found := l
				return &found, nil
			}
		}
	}
	return nil, nil
}

type lessonSpec struct {
	id       uint
	duration int64
}

func lesson(id uint, duration int64) lessonSpec {
	return lessonSpec{id: id, duration: duration}
}

type fakeAssessments map[uint]*AssessmentDefinition

func (f fakeAssessments) GetAssessment(_ context.Context, id uint) (*AssessmentDefinition, error) {
	return f[id], nil
}

// quiz builds an assessment with n questions; question i has options
// i*10+1 (correct) and i*10+2 (wrong).
func quiz(id, courseID, moduleID uint, n, passing, allowed int) *AssessmentDefinition {
	def := &AssessmentDefinition{
		ID:              id,
		CourseID:        courseID,
		ModuleID:        moduleID,
		PassingScore:    passing,
		AttemptsAllowed: allowed,
	}
	for i := 1; i <= n; i++ {
		q := uint(i)
		def.Questions = append(def.Questions, QuestionDefinition{
			ID: q,
			Options: []OptionDefinition{
				{ID: q*10 + 1, IsCorrect: true},
				{ID: q*10 + 2},
			},
		})
	}
	return def
}

// answersWith answers the first `right` questions correctly and the rest wrong.
func answersWith(n, right int) []Answer {
	out := make([]Answer, 0, n)
	for i := 1; i <= n; i++ {
		q := uint(i)
		opt := q*10 + 2
		if i <= right {
			opt = q*10 + 1
		}
		out = append(out, Answer{QuestionID: q, OptionID: opt})
	}
	return out
}

type recordingHook struct {
	mu        sync.Mutex
	completed []uint
}

func (h *recordingHook) CourseCompleted(_ context.Context, p *course.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completed = append(h.completed, p.CourseID)
}

type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	engine      *Engine
	store       *memStore
	structure   *fakeStructure
	assessments fakeAssessments
	hook        *recordingHook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:       newMemStore(),
		structure:   newFakeStructure(),
		assessments: fakeAssessments{},
		hook:        &recordingHook{},
	}
	clock := &stepClock{cur: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	f.engine = NewEngine(f.store, f.structure, f.assessments, WithClock(clock.Now), WithCompletionHook(f.hook))
	return f
}

func (f *fixture) watch(t *testing.T, userID, courseID, lessonID uint, watched, total int64) *ProgressUpdateResult {
	t.Helper()
	res, err := f.engine.RecordWatchProgress(context.Background(), WatchReport{
		UserID:        userID,
		CourseID:      courseID,
		LessonID:      lessonID,
		WatchTime:     watched,
		TotalDuration: total,
	})
	if err != nil {
		t.Fatalf("RecordWatchProgress(lesson %d, %d/%d): %v", lessonID, watched, total, err)
	}
	return res
}

func (f *fixture) doc(t *testing.T, userID, courseID uint) *course.Progress {
	t.Helper()
	p, err := f.store.FindProgress(context.Background(), userID, courseID)
	if err != nil || p == nil {
		t.Fatalf("progress for user %d course %d missing: %v", userID, courseID, err)
	}
	return p
}
