package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"lms/models/course"
)

// ensureLessonTracked locates lessonID in the document, appending an entry for
// it when the course structure knows the lesson but the document does not.
func (e *Engine) ensureLessonTracked(ctx context.Context, op string, p *course.Progress, lessonID uint) (int, int, error) {
	if mi, li, ok := p.FindLesson(lessonID); ok {
		return mi, li, nil
	}

	info, err := e.structure.FindLesson(ctx, p.CourseID, lessonID)
	if err != nil {
		return -1, -1, fmt.Errorf("progress.%s: lookup lesson %d: %w", op, lessonID, err)
	}
	if info == nil {
		return -1, -1, newError(KindNotFound, op, "lesson %d not found in course %d", lessonID, p.CourseID)
	}
	mi := p.ModuleIndex(info.ModuleID)
	if mi < 0 {
		return -1, -1, newError(KindNotFound, op, "module %d not in progress, requires reconciliation", info.ModuleID)
	}

	m := &p.Modules[mi]
	m.Lessons = append(m.Lessons, newLessonProgress(*info, len(m.Lessons)))
	return mi, len(m.Lessons) - 1, nil
}

// addMissing appends module and lesson entries present in the course structure
// but absent from the document. moduleID 0 reconciles every module. Existing
// entries are never removed or reordered.
func (e *Engine) addMissing(ctx context.Context, op string, p *course.Progress, moduleID uint) (added int, changed bool, err error) {
	modules, err := e.structure.GetModules(ctx, p.CourseID)
	if err != nil {
		return 0, false, fmt.Errorf("progress.%s: modules: %w", op, err)
	}

	matched := false
	for _, mod := range modules {
		if moduleID != 0 && mod.ModuleID != moduleID {
			continue
		}
		matched = true
		if mod.ModuleID == 0 {
			return 0, false, newError(KindValidation, op, "course structure has a module without a valid id")
		}
		lessons, err := e.structure.GetLessons(ctx, mod.ModuleID)
		if err != nil {
			return 0, false, fmt.Errorf("progress.%s: lessons of module %d: %w", op, mod.ModuleID, err)
		}

		mi := p.ModuleIndex(mod.ModuleID)
		if mi < 0 {
			mp := newModuleProgress(mod, lessons, len(p.Modules))
			if len(p.Modules) == 0 {
				t := e.now()
				mp.UnlockedAt = &t
			}
			p.Modules = append(p.Modules, mp)
			added += len(lessons)
			changed = true
			continue
		}

		m := &p.Modules[mi]
		if m.RequiresAssessment != mod.HasAssessment {
			m.RequiresAssessment = mod.HasAssessment
			changed = true
		}
		tracked := make(map[uint]bool, len(m.Lessons))
		for _, l := range m.Lessons {
			tracked[l.LessonID] = true
		}
		for _, l := range lessons {
			if tracked[l.LessonID] {
				continue
			}
			m.Lessons = append(m.Lessons, newLessonProgress(l, len(m.Lessons)))
			tracked[l.LessonID] = true
			added++
			changed = true
		}
	}
	if moduleID != 0 && !matched {
		return 0, false, newError(KindNotFound, op, "module %d not found in course %d", moduleID, p.CourseID)
	}
	return added, changed, nil
}

// AddMissingLessonsToProgress reconciles the document against the current
// course structure and returns how many lesson entries were appended.
func (e *Engine) AddMissingLessonsToProgress(ctx context.Context, userID, courseID, moduleID uint) (int, error) {
	const op = "addMissingLessonsToProgress"
	var added int
	_, err := e.mutate(ctx, op, userID, courseID, func(p *course.Progress, now time.Time) (bool, error) {
		n, changed, err := e.addMissing(ctx, op, p, moduleID)
		if err != nil {
			return false, err
		}
		added = n
		if changed {
			refreshAggregates(p)
		}
		return changed, nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// SyncUserProgressWithCourse reconciles the document, recomputes the derived
// aggregates and re-evaluates the module the learner is currently in. The
// document is only written when one of those steps changed it.
func (e *Engine) SyncUserProgressWithCourse(ctx context.Context, userID, courseID uint) (*SyncResult, error) {
	const op = "syncUserProgressWithCourse"
	var res SyncResult
	justCompleted := false
	p, err := e.mutate(ctx, op, userID, courseID, func(p *course.Progress, now time.Time) (bool, error) {
		n, changed, err := e.addMissing(ctx, op, p, 0)
		if err != nil {
			return false, err
		}
		if cur := p.CurrentModuleIndex; cur >= 0 && cur < len(p.Modules) {
			wasDone := p.Modules[cur].IsCompleted
			done, advanced := evaluateModule(p, cur, now)
			changed = changed || advanced || done != wasDone
		}
		overall, watched := p.OverallProgress, p.TotalWatchTime
		refreshAggregates(p)
		changed = changed || overall != p.OverallProgress || watched != p.TotalWatchTime
		justCompleted = markCourseCompletion(p, now)

		res = SyncResult{
			LessonsAdded:       n,
			OverallProgress:    p.OverallProgress,
			CurrentModuleIndex: p.CurrentModuleIndex,
			CourseCompleted:    p.IsCompleted,
		}
		return changed || justCompleted, nil
	})
	if err != nil {
		return nil, err
	}
	if justCompleted {
		e.notifyCompleted(ctx, p)
	}
	return &res, nil
}

// SyncCourse runs SyncUserProgressWithCourse for every learner of a course.
// Failures for one learner do not stop the others.
func (e *Engine) SyncCourse(ctx context.Context, courseID uint) (learners, lessonsAdded int, err error) {
	rows, err := e.store.ListCourseProgress(ctx, courseID)
	if err != nil {
		return 0, 0, fmt.Errorf("progress.syncCourse: list: %w", err)
	}
	var errs []error
	for _, row := range rows {
		res, err := e.SyncUserProgressWithCourse(ctx, row.UserID, courseID)
		if err != nil {
			log.Printf("[PROGRESS] sync course %d user %d failed: %v", courseID, row.UserID, err)
			errs = append(errs, err)
			continue
		}
		learners++
		lessonsAdded += res.LessonsAdded
	}
	return learners, lessonsAdded, errors.Join(errs...)
}

// GetUserProgress returns the learner's document with lesson entries that no
// longer resolve in the course structure filtered out. Nothing is written.
func (e *Engine) GetUserProgress(ctx context.Context, userID, courseID uint) (*course.Progress, error) {
	const op = "getUserProgress"
	p, err := e.load(ctx, op, userID, courseID)
	if err != nil {
		return nil, err
	}

	modules, err := e.structure.GetModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: modules: %w", op, err)
	}
	live := make(map[uint]map[uint]bool, len(modules))
	for _, mod := range modules {
		lessons, err := e.structure.GetLessons(ctx, mod.ModuleID)
		if err != nil {
			return nil, fmt.Errorf("progress.%s: lessons of module %d: %w", op, mod.ModuleID, err)
		}
		ids := make(map[uint]bool, len(lessons))
		for _, l := range lessons {
			ids[l.LessonID] = true
		}
		live[mod.ModuleID] = ids
	}

	// module entries stay in place so CurrentModuleIndex keeps pointing at the
	// same module; a module gone from the course shows no lessons
	view := *p
	view.Modules = make([]course.ModuleProgress, 0, len(p.Modules))
	for _, m := range p.Modules {
		ids := live[m.ModuleID]
		lessons := make([]course.LessonProgress, 0, len(m.Lessons))
		for _, l := range m.Lessons {
			if ids[l.LessonID] {
				lessons = append(lessons, l)
			}
		}
		m.Lessons = lessons
		view.Modules = append(view.Modules, m)
	}
	return &view, nil
}

// GetCourseProgressStats aggregates completion across every learner of a course.
func (e *Engine) GetCourseProgressStats(ctx context.Context, courseID uint) (*CourseProgressStats, error) {
	const op = "getCourseProgressStats"
	modules, err := e.structure.GetModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: modules: %w", op, err)
	}
	rows, err := e.store.ListCourseProgress(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("progress.%s: list: %w", op, err)
	}

	stats := &CourseProgressStats{
		CourseID:      courseID,
		TotalLearners: len(rows),
		Modules:       make([]ModuleCompletionStat, len(modules)),
	}
	pos := make(map[uint]int, len(modules))
	for i, mod := range modules {
		stats.Modules[i] = ModuleCompletionStat{Index: i, ModuleID: mod.ModuleID}
		pos[mod.ModuleID] = i
	}

	var progressSum int
	for _, row := range rows {
		progressSum += row.OverallProgress
		if row.IsCompleted {
			stats.CompletedLearners++
		}
		for _, m := range row.Modules {
			if i, ok := pos[m.ModuleID]; ok && m.IsCompleted {
				stats.Modules[i].CompletedCount++
			}
		}
	}
	if len(rows) > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedLearners) / float64(len(rows)) * 100)
		stats.AverageProgress = round2(float64(progressSum) / float64(len(rows)))
	}
	return stats, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
