package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/twallet/habitus/internal/models"
)

func (h *Handlers) handleReminderList(ctx context.Context, msg *tgbotapi.Message) {
	pending, err := h.store.Reminders.GetPendingByUser(ctx, msg.From.ID)
	if err != nil {
		log.Printf("Failed to list pending reminders for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Failed to load your reminders, please try again")
		return
	}

	if len(pending) == 0 {
		h.sendMessage(msg.Chat.ID, "⏰ Nothing is waiting for an answer right now")
		return
	}

	user, err := h.store.Users.GetByID(ctx, msg.From.ID)
	if err != nil {
		log.Printf("Failed to load user %d: %v", msg.From.ID, err)
		return
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil || user.Timezone == "" {
		loc = time.UTC
	}

	var sb strings.Builder
	sb.WriteString("⏰ *Waiting for an answer*\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, reminder := range pending {
		tracking, err := h.store.Trackings.GetByID(ctx, reminder.TrackingID)
		if err != nil {
			log.Printf("Failed to load tracking %d: %v", reminder.TrackingID, err)
			continue
		}
		sb.WriteString(fmt.Sprintf("*%d.* %s\n   📅 since %s\n\n",
			i+1, tracking.Question, reminder.ScheduledTime.In(loc).Format("Mon Jan 2 15:04")))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ %d", i+1),
				fmt.Sprintf("ans:%d:done", reminder.ReminderID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ %d", i+1),
				fmt.Sprintf("ans:%d:dismiss", reminder.ReminderID)),
		))
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	out.ParseMode = "Markdown"
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := h.api.Send(out); err != nil {
		log.Printf("Failed to send reminder list: %v", err)
	}
}

// handleSkip drops a tracking's upcoming reminder and schedules the one after
// it. Pending reminders cannot be skipped, those want an answer.
func (h *Handlers) handleSkip(ctx context.Context, msg *tgbotapi.Message) {
	tracking, ok := h.trackingFromArgs(ctx, msg, "/skip <id>")
	if !ok {
		return
	}
	if !tracking.IsRunning() {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is %s, there is nothing to skip", tracking.TrackingID, tracking.State))
		return
	}

	active, err := h.store.Reminders.GetActive(ctx, tracking.TrackingID)
	if err != nil {
		log.Printf("Failed to load active reminder for tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(msg.Chat.ID, "Failed to load the reminder, please try again")
		return
	}
	if active == nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d has no scheduled reminder to skip", tracking.TrackingID))
		return
	}
	if active.Status != models.ReminderUpcoming {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is already waiting for your answer, use /reminders instead", tracking.TrackingID))
		return
	}

	deleted, err := h.store.Reminders.DeleteUpcoming(ctx, active.ReminderID, msg.From.ID)
	if err != nil {
		log.Printf("Failed to delete reminder %d: %v", active.ReminderID, err)
		h.sendMessage(msg.Chat.ID, "Failed to skip the reminder, please try again")
		return
	}
	if !deleted {
		// It became pending between the read and the delete.
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d just fired, use /reminders to answer it", tracking.TrackingID))
		return
	}

	now := time.Now().UTC()
	if err := h.manager.ScheduleAfter(ctx, tracking, active.ScheduledTime, now); err != nil {
		log.Printf("Failed to schedule past skipped reminder for tracking %d: %v", tracking.TrackingID, err)
	}
	h.notifier.Notify()

	user, _ := h.store.Users.GetByID(ctx, msg.From.ID)
	loc := time.UTC
	if user != nil && user.Timezone != "" {
		if l, err := time.LoadLocation(user.Timezone); err == nil {
			loc = l
		}
	}

	text := fmt.Sprintf("⏭ Skipped the %s reminder for *#%d* %s",
		active.ScheduledTime.In(loc).Format("Mon Jan 2 15:04"), tracking.TrackingID, tracking.Question)
	if next, err := h.store.Reminders.GetActive(ctx, tracking.TrackingID); err == nil && next != nil {
		text += fmt.Sprintf("\n⏰ Next at %s", next.ScheduledTime.In(loc).Format("Mon Jan 2 15:04"))
	}
	h.sendMessage(msg.Chat.ID, text)
}
