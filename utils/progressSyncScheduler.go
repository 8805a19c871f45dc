package utils

import (
	"context"
	"log"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
)

// CourseSyncer reconciles every learner of one course.
type CourseSyncer interface {
	SyncCourse(ctx context.Context, courseID uint) (learners, lessonsAdded int, err error)
}

// ChangedCourseFinder lists courses whose structure changed since a point in time.
type ChangedCourseFinder interface {
	CoursesChangedSince(ctx context.Context, since time.Time) ([]uint, error)
}

// InitializeProgressSyncScheduler schedules the nightly reconciliation of
// progress documents against edited courses. spec is a standard 5-field cron
// expression.
func InitializeProgressSyncScheduler(spec string, finder ChangedCourseFinder, syncer CourseSyncer) (*cron.Cron, error) {
	log.Println("[PROGRESS-SYNC] Initializing progress sync scheduler...")

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		log.Println("[PROGRESS-SYNC] Running progress sync...")
		RunProgressSync(context.Background(), time.Now(), finder, syncer)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	log.Printf("[PROGRESS-SYNC] Progress sync scheduler started (%s)", spec)
	return c, nil
}

// RunProgressSync reconciles courses edited since the beginning of the day
// before at. It returns the number of courses processed.
func RunProgressSync(ctx context.Context, at time.Time, finder ChangedCourseFinder, syncer CourseSyncer) int {
	since := now.With(at).BeginningOfDay().AddDate(0, 0, -1)

	courseIDs, err := finder.CoursesChangedSince(ctx, since)
	if err != nil {
		log.Printf("[PROGRESS-SYNC] Error fetching changed courses: %v", err)
		return 0
	}
	log.Printf("[PROGRESS-SYNC] Found %d courses changed since %s", len(courseIDs), since.Format(time.RFC3339))

	for _, courseID := range courseIDs {
		learners, added, err := syncer.SyncCourse(ctx, courseID)
		if err != nil {
			log.Printf("[PROGRESS-SYNC] Course %d synced with errors: %v", courseID, err)
		}
		log.Printf("[PROGRESS-SYNC] Course %d: %d learners, %d lessons added", courseID, learners, added)
	}
	return len(courseIDs)
}
