package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/twallet/habitus/internal/ai"
	"github.com/twallet/habitus/internal/lifecycle"
	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/repository"
)

// Notifier wakes the scheduler so a user action is reflected without waiting
// for the next periodic check.
type Notifier interface {
	Notify()
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	store    *repository.Store
	manager  *lifecycle.Manager
	notifier Notifier
	ai       *ai.Client
}

func New(api *tgbotapi.BotAPI, store *repository.Store, manager *lifecycle.Manager, notifier Notifier, aiClient *ai.Client) *Handlers {
	return &Handlers{
		api:      api,
		store:    store,
		manager:  manager,
		notifier: notifier,
		ai:       aiClient,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	// Ensure user exists
	_, err := h.store.Users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Printf("Failed to get/create user: %v", err)
		return
	}

	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "track":
		h.handleTrack(ctx, msg)
	case "trackings":
		h.handleTrackingList(ctx, msg)
	case "pause":
		h.handlePause(ctx, msg)
	case "resume":
		h.handleResume(ctx, msg)
	case "archive":
		h.handleArchive(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "reminders":
		h.handleReminderList(ctx, msg)
	case "skip":
		h.handleSkip(ctx, msg)
	case "timezone":
		h.handleTimezone(ctx, msg)
	case "digest":
		h.handleDigest(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, use /help to see what I can do")
	}
}

func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Ensure user exists
	_, err := h.store.Users.GetOrCreate(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		log.Printf("Failed to get/create user: %v", err)
		return
	}

	h.handleAIMessage(ctx, msg)
}

// HandleCallbackQuery resolves the Done/Dismiss buttons attached to reminder
// notifications. Callback data is "ans:<reminderID>:<done|dismiss>".
func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}

	parts := strings.Split(callback.Data, ":")
	if len(parts) != 3 || parts[0] != "ans" {
		return
	}

	reminderID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return
	}

	var value models.ReminderValue
	switch parts[2] {
	case "done":
		value = models.ValueCompleted
	case "dismiss":
		value = models.ValueDismissed
	default:
		return
	}

	reminder, err := h.store.Reminders.GetByID(ctx, reminderID)
	if err != nil {
		if repository.IsNotFound(err) {
			h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID, "This reminder no longer exists")
			return
		}
		log.Printf("Failed to load reminder %d: %v", reminderID, err)
		return
	}

	if callback.From.ID != reminder.UserID {
		h.answerCallbackWithAlert(callback.ID, "This is not your reminder")
		return
	}

	answered, err := h.manager.Answer(ctx, reminder, value, "", time.Now().UTC())
	if err != nil {
		var terr *lifecycle.TransitionError
		if errors.As(err, &terr) {
			h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID, "This reminder was already answered")
			return
		}
		log.Printf("Failed to answer reminder %d: %v", reminderID, err)
		h.answerCallbackWithAlert(callback.ID, "Failed to record your answer, please try again")
		return
	}

	tracking, err := h.store.Trackings.GetByID(ctx, answered.TrackingID)
	question := "your question"
	if err == nil {
		question = tracking.Question
	}

	result := "✅ Done"
	if value == models.ValueDismissed {
		result = "❌ Dismissed"
	}
	h.editMessageText(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("%s: %s", result, question))

	h.notifier.Notify()
}

func (h *Handlers) answerCallbackWithAlert(callbackID string, text string) {
	answer := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback with alert: %v", err)
	}
}

func (h *Handlers) editMessageText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	text := fmt.Sprintf(`👋 Hi %s!

I'm Habitus. Give me a question and a schedule, and I'll keep asking until you answer.

For example:
• /track Did you stretch? | 09:00,20:00 | daily
• /track Weekly review done? | 18:00 | weekdays Fri
• /track Renew passport? | 10:00 | once 2026-09-15

Answer each reminder with the ✅ Done / ❌ Dismiss buttons; I schedule the next one as soon as you do.

Set your timezone first so reminders land at your local time:
/timezone America/New_York

Use /help to see all commands`, msg.From.FirstName)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	text := `📖 *Commands*

*Trackings*
/track <question> | <times> | <recurrence> - start tracking a question
    times: up to 5 comma-separated HH:MM
    recurrence: daily, weekdays Mon,Thu,..., once YYYY-MM-DD,
    or an RRULE like RRULE:FREQ=DAILY;BYHOUR=9;BYMINUTE=30
/trackings - list your trackings
/pause <id> - stop scheduling reminders
/resume <id> - resume a paused tracking
/archive <id> - archive a tracking (keeps history)
/delete <id> - delete a tracking and its history

*Reminders*
/reminders - questions currently waiting for an answer
/skip <id> - skip the next occurrence of a tracking

*Settings*
/timezone <IANA name> - set your timezone, e.g. Europe/Berlin
/digest [on|off] [HH:MM] - daily summary of unanswered questions

💡 You can also just tell me things like "ask me every morning at 9 whether I slept well"`
	h.sendMessage(msg.Chat.ID, text)
}
