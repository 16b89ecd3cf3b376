// Package scheduler drives the time-based side of the bot: flipping due
// reminders to pending, delivering them over Telegram, repairing trackings
// left without an active reminder, and sending the daily digest. The
// recurrence and lifecycle cores never read a clock; this loop is the one
// place that does.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"github.com/twallet/habitus/internal/lifecycle"
	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/repository"
)

type Scheduler struct {
	api           *tgbotapi.BotAPI
	store         *repository.Store
	manager       *lifecycle.Manager
	checkInterval time.Duration
	notifyCh      chan struct{}
}

func New(api *tgbotapi.BotAPI, store *repository.Store, manager *lifecycle.Manager, checkInterval time.Duration) *Scheduler {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &Scheduler{
		api:           api,
		store:         store,
		manager:       manager,
		checkInterval: checkInterval,
		notifyCh:      make(chan struct{}, 1),
	}
}

// Notify triggers an immediate check. Non-blocking if a check is already pending.
func (s *Scheduler) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
		// Channel already has a pending notification, skip
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	log.Println("Scheduler started")

	c := cron.New()
	spec := fmt.Sprintf("@every %ds", int(s.checkInterval.Seconds()))
	if _, err := c.AddFunc(spec, func() { s.check(ctx) }); err != nil {
		log.Printf("Failed to register check job: %v", err)
		return
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// Wait a bit for migrations to complete before first check
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
	}
	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler stopped")
			return
		case <-s.notifyCh:
			s.check(ctx)
		}
	}
}

func (s *Scheduler) check(ctx context.Context) {
	now := time.Now().UTC()
	s.promoteDueReminders(ctx, now)
	s.deliverPendingReminders(ctx, now)
	s.resyncTrackings(ctx, now)
	s.sendDigests(ctx, now)
}

// promoteDueReminders flips upcoming reminders whose scheduled time has
// elapsed to pending. Delivery happens in a separate pass so a Telegram
// failure never blocks the status flip.
func (s *Scheduler) promoteDueReminders(ctx context.Context, now time.Time) {
	due, err := s.store.Reminders.GetDueUpcoming(ctx, now)
	if err != nil {
		log.Printf("Failed to get due reminders: %v", err)
		return
	}
	for _, reminder := range due {
		if _, err := s.manager.MarkPending(ctx, reminder); err != nil {
			log.Printf("Failed to mark reminder %d pending: %v", reminder.ReminderID, err)
		}
	}
}

func (s *Scheduler) deliverPendingReminders(ctx context.Context, now time.Time) {
	pending, err := s.store.Reminders.GetUnnotifiedPending(ctx)
	if err != nil {
		log.Printf("Failed to get unnotified reminders: %v", err)
		return
	}

	for _, reminder := range pending {
		tracking, err := s.store.Trackings.GetByID(ctx, reminder.TrackingID)
		if err != nil {
			log.Printf("Failed to load tracking %d: %v", reminder.TrackingID, err)
			continue
		}

		// Delete previous message if exists (to avoid flooding)
		if reminder.LastMessageID != nil {
			deleteMsg := tgbotapi.NewDeleteMessage(reminder.UserID, *reminder.LastMessageID)
			if _, err := s.api.Request(deleteMsg); err != nil {
				log.Printf("Failed to delete old reminder message %d: %v", *reminder.LastMessageID, err)
				// Continue anyway, the old message might have been deleted by user
			}
		}

		text := "⏰ *" + reminderTitle(tracking) + "*"
		if tracking.Notes != "" {
			text += "\n\n" + tracking.Notes
		}

		msg := tgbotapi.NewMessage(reminder.UserID, text)
		msg.ParseMode = "Markdown"
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Done",
					fmt.Sprintf("ans:%d:done", reminder.ReminderID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Dismiss",
					fmt.Sprintf("ans:%d:dismiss", reminder.ReminderID)),
			),
		)

		sentMsg, err := s.api.Send(msg)
		if err != nil {
			log.Printf("Failed to send reminder notification: %v", err)
			continue
		}

		s.store.Reminders.SetLastMessageID(ctx, reminder.ReminderID, sentMsg.MessageID)
		s.store.Reminders.SetNotifiedAt(ctx, reminder.ReminderID, now)
		log.Printf("Sent reminder %d to user %d (msg_id=%d)", reminder.ReminderID, reminder.UserID, sentMsg.MessageID)
	}
}

// resyncTrackings is the corrective pass: a running tracking can end up with
// no active reminder when successor creation failed after an answer. The
// lifecycle manager re-derives the missing occurrence; with an active
// reminder in place the call is a no-op.
func (s *Scheduler) resyncTrackings(ctx context.Context, now time.Time) {
	running, err := s.store.Trackings.GetRunning(ctx)
	if err != nil {
		log.Printf("Failed to get running trackings: %v", err)
		return
	}
	for _, tracking := range running {
		if err := s.manager.Resync(ctx, tracking, now); err != nil {
			log.Printf("Failed to resync tracking %d: %v", tracking.TrackingID, err)
		}
	}
}

func (s *Scheduler) sendDigests(ctx context.Context, now time.Time) {
	users, err := s.store.Users.GetAllWithDigestEnabled(ctx)
	if err != nil {
		log.Printf("Failed to get digest users: %v", err)
		return
	}
	for _, user := range users {
		if !user.ShouldSendDigest(now) {
			continue
		}
		s.sendDigest(ctx, user, now)
	}
}

func (s *Scheduler) sendDigest(ctx context.Context, user *models.User, now time.Time) {
	pending, err := s.store.Reminders.GetPendingByUser(ctx, user.UserID)
	if err != nil {
		log.Printf("Failed to get pending reminders for digest %d: %v", user.UserID, err)
		return
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil || user.Timezone == "" {
		loc = time.UTC
	}

	var lines []string
	for _, reminder := range pending {
		tracking, err := s.store.Trackings.GetByID(ctx, reminder.TrackingID)
		if err != nil {
			log.Printf("Failed to load tracking %d for digest: %v", reminder.TrackingID, err)
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s, since %s",
			tracking.Question, reminder.ScheduledTime.In(loc).Format("Jan 2 15:04")))
	}

	text := buildDigestText(lines)
	msg := tgbotapi.NewMessage(user.UserID, text)
	msg.ParseMode = "Markdown"
	if _, err := s.api.Send(msg); err != nil {
		log.Printf("Failed to send digest to %d: %v", user.UserID, err)
		return
	}

	if err := s.store.Users.SetLastDigestDate(ctx, user.UserID, now); err != nil {
		log.Printf("Failed to update last digest date for %d: %v", user.UserID, err)
	}
	log.Printf("Sent daily digest to user %d", user.UserID)
}

func buildDigestText(lines []string) string {
	var sb strings.Builder
	sb.WriteString("☀️ *Good morning!*\n\n")

	if len(lines) == 0 {
		sb.WriteString("Nothing is waiting for an answer. Enjoy your day!")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("You have %d unanswered question(s):\n\n", len(lines)))
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n\nUse /reminders to answer them.")
	return sb.String()
}

func reminderTitle(t *models.Tracking) string {
	question := t.Question
	if t.Icon != "" {
		question = t.Icon + " " + question
	}
	return question
}
