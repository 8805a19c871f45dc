package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lms/models/course"
)

const maxSaveRetries = 3

// Engine owns every mutation of progress documents: initialization, watch-time
// accounting, sequential module unlocking, assessment attempts, reconciliation
// and reset.
type Engine struct {
	store       Store
	structure   CourseStructure
	assessments AssessmentProvider
	hook        CompletionHook
	now         func() time.Time
	locks       *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCompletionHook registers the downstream consumer of course completion.
func WithCompletionHook(h CompletionHook) Option {
	return func(e *Engine) { e.hook = h }
}

// NewEngine wires an Engine to its store and read-only collaborators.
func NewEngine(store Store, structure CourseStructure, assessments AssessmentProvider, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		structure:   structure,
		assessments: assessments,
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutateFunc edits a loaded document in memory. It returns false when nothing
// changed and the document should not be written.
type mutateFunc func(p *course.Progress, now time.Time) (bool, error)

// mutate runs one read-modify-write cycle for (userID, courseID) under the
// per-key lock, retrying from a fresh load when the optimistic save loses.
// fn may run more than once and must not keep state across runs.
func (e *Engine) mutate(ctx context.Context, op string, userID, courseID uint, fn mutateFunc) (*course.Progress, error) {
	unlock := e.locks.Lock(progressKey(userID, courseID))
	defer unlock()

	for attempt := 0; ; attempt++ {
		p, err := e.store.FindProgress(ctx, userID, courseID)
		if err != nil {
			return nil, fmt.Errorf("progress.%s: load: %w", op, err)
		}
		if p == nil {
			return nil, newError(KindNotFound, op, "no progress for user %d in course %d", userID, courseID)
		}

		now := e.now()
		changed, err := fn(p, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return p, nil
		}
		p.LastActivityAt = now

		err = e.store.SaveProgress(ctx, p)
		if errors.Is(err, ErrVersionConflict) && attempt < maxSaveRetries {
			log.Printf("[PROGRESS] %s: version conflict for user %d course %d, retrying", op, userID, courseID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("progress.%s: save: %w", op, err)
		}
		return p, nil
	}
}

func (e *Engine) notifyCompleted(ctx context.Context, p *course.Progress) {
	log.Printf("[PROGRESS] user %d completed course %d", p.UserID, p.CourseID)
	if e.hook != nil {
		e.hook.CourseCompleted(ctx, p)
	}
}

// Initialize creates the progress document for a user who was just granted
// access to a course. Calling it again returns the existing document.
func (e *Engine) Initialize(ctx context.Context, userID, courseID, subscriptionID uint) (*course.Progress, error) {
	const op = "initialize"
	unlock := e.locks.Lock(progressKey(userID, courseID))
	defer unlock()

	existing, err := e.store.FindProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: load: %w", op, err)
	}
	if existing != nil {
		return existing, nil
	}

	modules, err := e.structure.GetModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: modules: %w", op, err)
	}
	if len(modules) == 0 {
		return nil, newError(KindNotFound, op, "course %d has no modules", courseID)
	}

	now := e.now()
	p := &course.Progress{
		UserID:         userID,
		CourseID:       courseID,
		SubscriptionID: subscriptionID,
		LastActivityAt: now,
	}
	for i, mod := range modules {
		mp, err := e.buildModule(ctx, op, mod, i)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			t := now
			mp.UnlockedAt = &t
		}
		p.Modules = append(p.Modules, mp)
	}

	if err := e.store.CreateProgress(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// another process won the race; the unique pair guarantees one document
			return e.store.FindProgress(ctx, userID, courseID)
		}
		return nil, fmt.Errorf("progress.%s: create: %w", op, err)
	}
	return p, nil
}

func (e *Engine) buildModule(ctx context.Context, op string, mod ModuleInfo, order int) (course.ModuleProgress, error) {
	if mod.ModuleID == 0 {
		return course.ModuleProgress{}, newError(KindValidation, op, "course structure has a module without a valid id")
	}
	lessons, err := e.structure.GetLessons(ctx, mod.ModuleID)
	if err != nil {
		return course.ModuleProgress{}, fmt.Errorf("progress.%s: lessons of module %d: %w", op, mod.ModuleID, err)
	}
	return newModuleProgress(mod, lessons, order), nil
}

// RecordWatchProgress applies a watch-time report and cascades lesson, module
// and course completion.
func (e *Engine) RecordWatchProgress(ctx context.Context, r WatchReport) (*ProgressUpdateResult, error) {
	const op = "recordWatchProgress"
	if r.LessonID == 0 {
		return nil, newError(KindValidation, op, "lesson id is required")
	}
	if r.WatchTime < 0 || r.TotalDuration < 0 {
		return nil, newError(KindValidation, op, "watch time and duration must not be negative")
	}

	var res ProgressUpdateResult
	p, err := e.mutate(ctx, op, r.UserID, r.CourseID, func(p *course.Progress, now time.Time) (bool, error) {
		res = ProgressUpdateResult{LessonID: r.LessonID}

		mi, li, err := e.ensureLessonTracked(ctx, op, p, r.LessonID)
		if err != nil {
			return false, err
		}
		if !p.CanAccessModule(mi) {
			return false, newError(KindForbidden, op, "module %d is locked", p.Modules[mi].ModuleID)
		}

		lesson := &p.Modules[mi].Lessons[li]
		applyWatch(lesson, r.WatchTime, r.TotalDuration, now)
		moduleDone, _ := evaluateModule(p, mi, now)
		refreshAggregates(p)
		res.CourseJustCompleted = markCourseCompletion(p, now)

		res.LessonProgress = lessonPercent(lesson)
		res.LessonCompleted = lesson.IsCompleted
		res.ModuleCompleted = moduleDone
		res.NextModuleUnlocked = p.CanAccessModule(mi + 1)
		res.OverallProgress = p.OverallProgress
		res.CourseCompleted = p.IsCompleted
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if res.CourseJustCompleted {
		e.notifyCompleted(ctx, p)
	}
	return &res, nil
}

// CanAccessModule reports whether the user may work in the module at index.
func (e *Engine) CanAccessModule(ctx context.Context, userID, courseID uint, index int) (bool, error) {
	p, err := e.load(ctx, "canAccessModule", userID, courseID)
	if err != nil {
		return false, err
	}
	return p.CanAccessModule(index), nil
}

// GetModuleAccess lists the lock state of every tracked module.
func (e *Engine) GetModuleAccess(ctx context.Context, userID, courseID uint) ([]ModuleAccess, error) {
	p, err := e.load(ctx, "getModuleAccess", userID, courseID)
	if err != nil {
		return nil, err
	}
	out := make([]ModuleAccess, 0, len(p.Modules))
	for i := range p.Modules {
		m := &p.Modules[i]
		out = append(out, ModuleAccess{
			Index:            i,
			ModuleID:         m.ModuleID,
			Accessible:       p.CanAccessModule(i),
			Completed:        m.IsCompleted,
			UnlockedAt:       m.UnlockedAt,
			TotalLessons:     len(m.Lessons),
			CompletedLessons: m.CompletedLessons(),
		})
	}
	return out, nil
}

// ResetUserProgress wipes a learner's progress but keeps the document. It is
// the only operation that clears course completion.
func (e *Engine) ResetUserProgress(ctx context.Context, userID, courseID uint) (*course.Progress, error) {
	return e.mutate(ctx, "resetUserProgress", userID, courseID, func(p *course.Progress, now time.Time) (bool, error) {
		resetProgress(p, now)
		return true, nil
	})
}

func (e *Engine) load(ctx context.Context, op string, userID, courseID uint) (*course.Progress, error) {
	p, err := e.store.FindProgress(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: load: %w", op, err)
	}
	if p == nil {
		return nil, newError(KindNotFound, op, "no progress for user %d in course %d", userID, courseID)
	}
	return p, nil
}
