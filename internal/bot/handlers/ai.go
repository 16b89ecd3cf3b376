package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/twallet/habitus/internal/ai"
	"github.com/twallet/habitus/internal/clock"
	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/repository"
)

func (h *Handlers) handleAIMessage(ctx context.Context, msg *tgbotapi.Message) {
	if h.ai == nil {
		h.sendMessage(msg.Chat.ID, "Natural language input is not enabled, use /help to see the commands")
		return
	}

	intent, err := h.ai.ParseIntent(ctx, msg.Text)
	if err != nil {
		log.Printf("Failed to parse intent: %v", err)
		h.sendMessage(msg.Chat.ID, "Sorry, I could not understand that. Try /help for the command forms.")
		return
	}

	if intent.Confidence < 0.5 {
		response := "I'm not sure what you want me to do, could you rephrase?"
		if intent.AIMessage != "" {
			response = intent.AIMessage
		}
		h.sendMessage(msg.Chat.ID, response)
		return
	}

	if intent.NeedMoreInfo {
		response := intent.FollowUpPrompt
		if response == "" {
			response = "Could you give me a bit more detail?"
		}
		h.sendMessage(msg.Chat.ID, response)
		return
	}

	h.executeIntent(ctx, msg, intent)
}

func (h *Handlers) executeIntent(ctx context.Context, msg *tgbotapi.Message, intent *ai.Intent) {
	params := intent.Parameters
	if params == nil {
		params = map[string]string{}
	}

	switch intent.Action {
	case "create_tracking":
		h.executeCreateTracking(ctx, msg, params)
	case "list_trackings":
		h.handleTrackingList(ctx, msg)
	case "pause_tracking":
		h.executeSetState(ctx, msg, params["id"], models.TrackingPaused)
	case "resume_tracking":
		h.executeSetState(ctx, msg, params["id"], models.TrackingRunning)
	case "archive_tracking":
		h.executeSetState(ctx, msg, params["id"], models.TrackingArchived)
	case "delete_tracking":
		h.executeDeleteTracking(ctx, msg, params["id"])
	case "answer_reminder":
		h.executeAnswerReminder(ctx, msg, params)
	case "list_reminders":
		h.handleReminderList(ctx, msg)
	case "set_timezone":
		h.executeSetTimezone(ctx, msg, params["timezone"])
	default:
		response := intent.AIMessage
		if response == "" {
			response = "I track recurring questions and remind you to answer them. Try /help to see what I can do."
		}
		h.sendMessage(msg.Chat.ID, response)
	}
}

func (h *Handlers) executeCreateTracking(ctx context.Context, msg *tgbotapi.Message, params map[string]string) {
	question := strings.TrimSpace(params["question"])
	if question == "" {
		h.sendMessage(msg.Chat.ID, "What question should I keep asking you?")
		return
	}

	times := params["times"]
	if times == "" {
		times = "09:00"
	}
	set, err := parseTimes(times)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ %s", err))
		return
	}

	spec := params["recurrence"]
	switch spec {
	case "", "daily":
		spec = "daily"
	case "weekdays":
		spec = "weekdays " + params["weekdays"]
	case "once":
		spec = "once " + params["date"]
	}
	policy, err := parseRecurrence(spec)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ %s", err))
		return
	}

	h.createTracking(ctx, msg.Chat.ID, msg.From.ID, question, set, policy)
}

func (h *Handlers) executeSetState(ctx context.Context, msg *tgbotapi.Message, idStr string, state models.TrackingState) {
	tracking, ok := h.trackingByIDParam(ctx, msg, idStr)
	if !ok {
		return
	}
	if tracking.State == state {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is already %s", tracking.TrackingID, state))
		return
	}
	if err := h.store.Trackings.SetState(ctx, tracking.TrackingID, state); err != nil {
		log.Printf("Failed to set tracking %d to %s: %v", tracking.TrackingID, state, err)
		h.sendMessage(msg.Chat.ID, "Failed to update the tracking, please try again")
		return
	}

	if state == models.TrackingRunning {
		tracking.State = models.TrackingRunning
		if err := h.manager.Resync(ctx, tracking, time.Now().UTC()); err != nil {
			log.Printf("Failed to resync resumed tracking %d: %v", tracking.TrackingID, err)
		}
		h.notifier.Notify()
	}

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking *#%d* %s is now %s", tracking.TrackingID, tracking.Question, state))
}

func (h *Handlers) executeDeleteTracking(ctx context.Context, msg *tgbotapi.Message, idStr string) {
	tracking, ok := h.trackingByIDParam(ctx, msg, idStr)
	if !ok {
		return
	}
	if err := h.store.Trackings.Delete(ctx, tracking.TrackingID, msg.From.ID); err != nil {
		log.Printf("Failed to delete tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(msg.Chat.ID, "Failed to delete the tracking, please try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 Deleted *#%d* %s and all its reminders", tracking.TrackingID, tracking.Question))
}

// executeAnswerReminder resolves a pending reminder named by tracking id, or
// the single pending one when the user has exactly one.
func (h *Handlers) executeAnswerReminder(ctx context.Context, msg *tgbotapi.Message, params map[string]string) {
	value := models.ValueCompleted
	if params["value"] == string(models.ValueDismissed) {
		value = models.ValueDismissed
	}

	var reminder *models.Reminder
	if idStr := params["id"]; idStr != "" {
		tracking, ok := h.trackingByIDParam(ctx, msg, idStr)
		if !ok {
			return
		}
		active, err := h.store.Reminders.GetActive(ctx, tracking.TrackingID)
		if err != nil {
			log.Printf("Failed to load active reminder for tracking %d: %v", tracking.TrackingID, err)
			return
		}
		if active == nil || active.Status != models.ReminderPending {
			h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d has no reminder waiting for an answer", tracking.TrackingID))
			return
		}
		reminder = active
	} else {
		pending, err := h.store.Reminders.GetPendingByUser(ctx, msg.From.ID)
		if err != nil {
			log.Printf("Failed to list pending reminders for %d: %v", msg.From.ID, err)
			return
		}
		switch len(pending) {
		case 0:
			h.sendMessage(msg.Chat.ID, "⏰ Nothing is waiting for an answer right now")
			return
		case 1:
			reminder = pending[0]
		default:
			h.sendMessage(msg.Chat.ID, "You have several open reminders, use /reminders to pick one")
			return
		}
	}

	answered, err := h.manager.Answer(ctx, reminder, value, strings.TrimSpace(params["notes"]), time.Now().UTC())
	if err != nil {
		log.Printf("Failed to answer reminder %d: %v", reminder.ReminderID, err)
		h.sendMessage(msg.Chat.ID, "Failed to record your answer, please try again")
		return
	}
	h.notifier.Notify()

	question := "your question"
	if tracking, err := h.store.Trackings.GetByID(ctx, answered.TrackingID); err == nil {
		question = tracking.Question
	}
	result := "✅ Done"
	if value == models.ValueDismissed {
		result = "❌ Dismissed"
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("%s: %s", result, question))
}

func (h *Handlers) executeSetTimezone(ctx context.Context, msg *tgbotapi.Message, timezone string) {
	if timezone == "" {
		h.sendMessage(msg.Chat.ID, "Which timezone should I use? For example America/New_York")
		return
	}
	if _, err := clock.LoadLocation(timezone); err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ Unknown timezone %q, use an IANA name like America/New_York", timezone))
		return
	}
	if err := h.store.Users.SetTimezone(ctx, msg.From.ID, timezone); err != nil {
		log.Printf("Failed to set timezone for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Failed to save your timezone, please try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🌍 Timezone set to *%s*", timezone))
}

func (h *Handlers) trackingByIDParam(ctx context.Context, msg *tgbotapi.Message, idStr string) (*models.Tracking, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Which tracking number? Use /trackings to see the list")
		return nil, false
	}
	tracking, err := h.store.Trackings.GetByIDForUser(ctx, id, msg.From.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d not found", id))
		} else {
			log.Printf("Failed to load tracking %d: %v", id, err)
			h.sendMessage(msg.Chat.ID, "Failed to load the tracking, please try again")
		}
		return nil, false
	}
	return tracking, true
}
