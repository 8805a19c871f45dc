package progress

import (
	"math"
	"time"

	"lms/models/course"
)

// A lesson is complete once watchTime/totalDuration reaches 4/5.
const (
	thresholdNum = 4
	thresholdDen = 5
)

func newLessonProgress(l LessonInfo, order int) course.LessonProgress {
	return course.LessonProgress{
		LessonID:      l.LessonID,
		Order:         order,
		TotalDuration: l.DurationSeconds,
	}
}

func newModuleProgress(mod ModuleInfo, lessons []LessonInfo, order int) course.ModuleProgress {
	mp := course.ModuleProgress{
		ModuleID:           mod.ModuleID,
		Order:              order,
		RequiresAssessment: mod.HasAssessment,
		Lessons:            make([]course.LessonProgress, 0, len(lessons)),
		AssessmentAttempts: []course.AssessmentAttempt{},
	}
	for i, l := range lessons {
		mp.Lessons = append(mp.Lessons, newLessonProgress(l, i))
	}
	return mp
}

// roundHalfUp rounds non-negative percentages the way reports expect (62.5 -> 63).
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// reachedThreshold reports whether a lesson's watch time crosses the completion
// ratio. Lessons without a known duration complete on their first report.
func reachedThreshold(l *course.LessonProgress) bool {
	if l.TotalDuration <= 0 {
		return true
	}
	return l.WatchTime >= thresholdSeconds(l.TotalDuration)
}

// thresholdSeconds is ceil(total*thresholdNum/thresholdDen), computed without
// multiplying total so large durations cannot overflow.
func thresholdSeconds(total int64) int64 {
	q, r := total/thresholdDen, total%thresholdDen
	return q*thresholdNum + (r*thresholdNum+thresholdDen-1)/thresholdDen
}

// applyWatch raises the lesson's watch time and stamps completion on the first
// crossing. It returns true when the lesson became complete on this call.
func applyWatch(l *course.LessonProgress, watchTime, reportedDuration int64, now time.Time) bool {
	if l.TotalDuration <= 0 && reportedDuration > 0 {
		l.TotalDuration = reportedDuration
	}
	if watchTime > l.WatchTime {
		l.WatchTime = watchTime
	}
	t := now
	l.LastWatchedAt = &t
	if l.IsCompleted || !reachedThreshold(l) {
		return false
	}
	l.IsCompleted = true
	if l.CompletedAt == nil {
		l.CompletedAt = &t
	}
	return true
}

// lessonPercent is the 0-100 progress of a single lesson.
func lessonPercent(l *course.LessonProgress) int {
	if l.TotalDuration <= 0 {
		if l.IsCompleted {
			return 100
		}
		return 0
	}
	pct := roundHalfUp(float64(l.WatchTime) / float64(l.TotalDuration) * 100)
	if pct > 100 {
		return 100
	}
	return pct
}

// moduleSatisfied is the module completion predicate: every lesson entry is
// complete and, when the module carries an assessment, one attempt passed.
func moduleSatisfied(m *course.ModuleProgress) bool {
	for i := range m.Lessons {
		if !m.Lessons[i].IsCompleted {
			return false
		}
	}
	if m.RequiresAssessment && !m.HasPassedAttempt() {
		return false
	}
	return true
}

// stampModule marks m completed when its predicate holds. It returns true on
// the transition.
func stampModule(m *course.ModuleProgress, now time.Time) bool {
	if m.IsCompleted || !moduleSatisfied(m) {
		return false
	}
	t := now
	m.IsCompleted = true
	m.CompletedAt = &t
	return true
}

// evaluateModule stamps the module at mi as completed when its predicate holds
// and, if it is the module CurrentModuleIndex points at, unlocks the next one.
// A freshly unlocked module is stamped too (an empty module without an
// assessment completes on unlock) but the index still moves one step.
func evaluateModule(p *course.Progress, mi int, now time.Time) (completed, advanced bool) {
	m := &p.Modules[mi]
	stampModule(m, now)
	if m.IsCompleted && mi == p.CurrentModuleIndex {
		advanced = p.UnlockNextModule(now)
		if advanced {
			stampModule(&p.Modules[p.CurrentModuleIndex], now)
		}
	}
	return m.IsCompleted, advanced
}

// refreshAggregates recomputes TotalWatchTime and OverallProgress.
func refreshAggregates(p *course.Progress) {
	var total int64
	var sum float64
	for mi := range p.Modules {
		m := &p.Modules[mi]
		for li := range m.Lessons {
			total += m.Lessons[li].WatchTime
		}
		if len(m.Lessons) > 0 {
			sum += float64(m.CompletedLessons()) / float64(len(m.Lessons)) * 100
		}
	}
	p.TotalWatchTime = total
	if len(p.Modules) == 0 {
		p.OverallProgress = 0
		return
	}
	p.OverallProgress = roundHalfUp(sum / float64(len(p.Modules)))
}

// markCourseCompletion sets the course-level flag once every module is
// completed. It never clears the flag. Returns true on the transition.
func markCourseCompletion(p *course.Progress, now time.Time) bool {
	if p.IsCompleted || len(p.Modules) == 0 {
		return false
	}
	for i := range p.Modules {
		if !p.Modules[i].IsCompleted {
			return false
		}
	}
	t := now
	p.IsCompleted = true
	p.CompletedAt = &t
	return true
}

// resetProgress zeroes every sub-field of the document while keeping its
// module and lesson entries. Module 0 is re-unlocked.
func resetProgress(p *course.Progress, now time.Time) {
	for mi := range p.Modules {
		m := &p.Modules[mi]
		for li := range m.Lessons {
			l := &m.Lessons[li]
			l.WatchTime = 0
			l.IsCompleted = false
			l.CompletedAt = nil
			l.LastWatchedAt = nil
		}
		m.AssessmentAttempts = []course.AssessmentAttempt{}
		m.IsCompleted = false
		m.CompletedAt = nil
		m.UnlockedAt = nil
		if mi == 0 {
			t := now
			m.UnlockedAt = &t
		}
	}
	p.CurrentModuleIndex = 0
	p.OverallProgress = 0
	p.TotalWatchTime = 0
	p.IsCompleted = false
	p.CompletedAt = nil
}
