package utils

import (
	"context"
	"log"
	"lms/models"
	"lms/models/course"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"gorm.io/gorm"
)

// EmailFunc delivers one HTML email.
type EmailFunc func(to []string, subject, htmlBody string) error

// CompletionNotifier reacts to a learner finishing a course: the enrollment is
// marked COMPLETED synchronously, the email and webhook go out in the background.
type CompletionNotifier struct {
	db         *gorm.DB
	client     *resty.Client
	webhookURL string
	sendEmail  EmailFunc
	wg         sync.WaitGroup
}

type completionEvent struct {
	Event           string     `json:"event"`
	UserID          uint       `json:"user_id"`
	CourseID        uint       `json:"course_id"`
	ProgressID      uint       `json:"progress_id"`
	SubscriptionID  uint       `json:"subscription_id"`
	OverallProgress int        `json:"overall_progress"`
	TotalWatchTime  int64      `json:"total_watch_time"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// NewCompletionNotifier posts to webhookURL when it is non-empty.
func NewCompletionNotifier(db *gorm.DB, webhookURL string, sendEmail EmailFunc) *CompletionNotifier {
	return &CompletionNotifier{
		db:         db,
		client:     resty.New().SetTimeout(10 * time.Second).SetRetryCount(2),
		webhookURL: webhookURL,
		sendEmail:  sendEmail,
	}
}

func (n *CompletionNotifier) CourseCompleted(ctx context.Context, p *course.Progress) {
	completedAt := time.Now()
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}

	res := n.db.WithContext(ctx).
		Model(&course.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", p.UserID, p.CourseID, false).
		Updates(map[string]interface{}{"status": course.EnrollmentCompleted, "completed_at": completedAt})
	if res.Error != nil {
		log.Printf("[COMPLETION] Failed to update enrollment for user %d course %d: %v", p.UserID, p.CourseID, res.Error)
	}

	var user models.User
	var c course.Course
	if err := n.db.WithContext(ctx).Where("id = ?", p.UserID).First(&user).Error; err != nil {
		log.Printf("[COMPLETION] User %d not found: %v", p.UserID, err)
	}
	n.db.WithContext(ctx).Where("id = ?", p.CourseID).First(&c)

	event := completionEvent{
		Event:           "course.completed",
		UserID:          p.UserID,
		CourseID:        p.CourseID,
		ProgressID:      p.ID,
		SubscriptionID:  p.SubscriptionID,
		OverallProgress: p.OverallProgress,
		TotalWatchTime:  p.TotalWatchTime,
		CompletedAt:     &completedAt,
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if user.Email != "" && n.sendEmail != nil {
			subject, body := CourseCompletedEmail(user.Name, c.Title)
			if err := n.sendEmail([]string{user.Email}, subject, body); err != nil {
				log.Printf("[COMPLETION] Email to %s failed: %v", user.Email, err)
			}
		}
		n.postWebhook(event)
	}()
}

func (n *CompletionNotifier) postWebhook(event completionEvent) {
	if n.webhookURL == "" {
		return
	}
	resp, err := n.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.webhookURL)
	if err != nil {
		log.Printf("[COMPLETION] Webhook for user %d course %d failed: %v", event.UserID, event.CourseID, err)
		return
	}
	if resp.IsError() {
		log.Printf("[COMPLETION] Webhook returned %d: %s", resp.StatusCode(), resp.String())
	}
}

// Wait blocks until background deliveries have finished.
func (n *CompletionNotifier) Wait() {
	n.wg.Wait()
}
