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

	"github.com/twallet/habitus/internal/clock"
	"github.com/twallet/habitus/internal/models"
	"github.com/twallet/habitus/internal/recurrence"
	"github.com/twallet/habitus/internal/repository"
	"github.com/twallet/habitus/internal/schedule"
)

const trackUsage = `Usage: /track <question> | <times> | <recurrence>
Examples:
• /track Did you stretch? | 09:00,20:00 | daily
• /track Weekly review done? | 18:00 | weekdays Mon,Fri
• /track Renew passport? | 10:00 | once 2026-09-15
• /track Did you stretch? | RRULE:FREQ=DAILY;BYHOUR=9,20;BYMINUTE=0`

func (h *Handlers) handleTrack(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		h.sendMessage(msg.Chat.ID, trackUsage)
		return
	}

	question, set, policy, err := parseTrackArgs(args)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ %s\n\n%s", err, trackUsage))
		return
	}

	h.createTracking(ctx, msg.Chat.ID, msg.From.ID, question, set, policy)
}

// createTracking persists the tracking, its schedule entries and the first
// reminder. Shared by /track and the natural-language path.
func (h *Handlers) createTracking(ctx context.Context, chatID, userID int64, question string, set schedule.Set, policy recurrence.Policy) {
	tracking := &models.Tracking{
		UserID:   userID,
		Question: question,
		Kind:     policy.Kind(),
		Weekdays: policy.Days(),
		State:    models.TrackingRunning,
	}
	if policy.IsOneTime() {
		d := policy.Date()
		date := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
		tracking.OneTimeDate = &date
	}

	if err := tracking.Validate(); err != nil {
		h.sendMessage(chatID, fmt.Sprintf("⚠️ %s", err))
		return
	}

	if err := h.store.Trackings.Create(ctx, tracking); err != nil {
		log.Printf("Failed to create tracking: %v", err)
		h.sendMessage(chatID, "Failed to create the tracking, please try again")
		return
	}

	if err := h.store.Schedules.ReplaceForTracking(ctx, tracking.TrackingID, set); err != nil {
		log.Printf("Failed to store schedule for tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(chatID, "Failed to store the schedule, please try again")
		return
	}

	if err := h.manager.ScheduleInitial(ctx, tracking, time.Now().UTC()); err != nil {
		log.Printf("Failed to schedule first reminder for tracking %d: %v", tracking.TrackingID, err)
	}
	h.notifier.Notify()

	h.sendMessage(chatID, fmt.Sprintf("📌 Tracking *#%d* created\n%s\n🕐 %s, %s",
		tracking.TrackingID, question, formatTimes(set), policy.Describe()))
}

func (h *Handlers) handleTrackingList(ctx context.Context, msg *tgbotapi.Message) {
	trackings, err := h.store.Trackings.GetByUserID(ctx, msg.From.ID, false)
	if err != nil {
		log.Printf("Failed to list trackings for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Failed to load your trackings, please try again")
		return
	}

	if len(trackings) == 0 {
		h.sendMessage(msg.Chat.ID, "📌 You are not tracking anything yet. Use /track to start.")
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
	sb.WriteString("📌 *Your trackings*\n\n")
	for _, t := range trackings {
		stateIcon := "▶️"
		switch t.State {
		case models.TrackingPaused:
			stateIcon = "⏸"
		case models.TrackingArchived:
			stateIcon = "🗄"
		}
		sb.WriteString(fmt.Sprintf("%s *%d.* %s\n", stateIcon, t.TrackingID, t.Question))

		if policy, err := t.Policy(); err == nil {
			sb.WriteString(fmt.Sprintf("   🔁 %s", policy.Describe()))
			if rule, err := recurrence.RRule(policy, h.scheduleSetFor(ctx, t.TrackingID)); err == nil {
				sb.WriteString(fmt.Sprintf("  `%s`", rule))
			}
			sb.WriteString("\n")
		}

		if active, err := h.store.Reminders.GetActive(ctx, t.TrackingID); err == nil && active != nil {
			when := active.ScheduledTime.In(loc).Format("Mon Jan 2 15:04")
			if active.Status == models.ReminderPending {
				sb.WriteString(fmt.Sprintf("   ⏳ waiting since %s\n", when))
			} else {
				sb.WriteString(fmt.Sprintf("   ⏰ next at %s\n", when))
			}
		}
		sb.WriteString("\n")
	}
	h.sendMessage(msg.Chat.ID, sb.String())
}

func (h *Handlers) scheduleSetFor(ctx context.Context, trackingID int64) schedule.Set {
	rows, err := h.store.Schedules.GetByTracking(ctx, trackingID)
	if err != nil {
		return schedule.Set{}
	}
	entries := make([]schedule.Entry, len(rows))
	for i, row := range rows {
		entries[i] = schedule.Entry{Hour: row.Hour, Minute: row.Minute}
	}
	set, err := schedule.New(entries)
	if err != nil {
		return schedule.Set{}
	}
	return set
}

func (h *Handlers) handlePause(ctx context.Context, msg *tgbotapi.Message) {
	tracking, ok := h.trackingFromArgs(ctx, msg, "/pause <id>")
	if !ok {
		return
	}
	if tracking.State != models.TrackingRunning {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is %s, only running trackings can be paused", tracking.TrackingID, tracking.State))
		return
	}
	if err := h.store.Trackings.SetState(ctx, tracking.TrackingID, models.TrackingPaused); err != nil {
		log.Printf("Failed to pause tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(msg.Chat.ID, "Failed to pause the tracking, please try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("⏸ Paused *#%d* %s\nThe current reminder stays; no new ones will be scheduled.", tracking.TrackingID, tracking.Question))
}

func (h *Handlers) handleResume(ctx context.Context, msg *tgbotapi.Message) {
	tracking, ok := h.trackingFromArgs(ctx, msg, "/resume <id>")
	if !ok {
		return
	}
	if tracking.State != models.TrackingPaused {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is %s, only paused trackings can be resumed", tracking.TrackingID, tracking.State))
		return
	}
	if err := h.store.Trackings.SetState(ctx, tracking.TrackingID, models.TrackingRunning); err != nil {
		log.Printf("Failed to resume tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(msg.Chat.ID, "Failed to resume the tracking, please try again")
		return
	}

	// A resumed tracking may have no active reminder; resync derives the next one.
	tracking.State = models.TrackingRunning
	if err := h.manager.Resync(ctx, tracking, time.Now().UTC()); err != nil {
		log.Printf("Failed to resync resumed tracking %d: %v", tracking.TrackingID, err)
	}
	h.notifier.Notify()

	h.sendMessage(msg.Chat.ID, fmt.Sprintf("▶️ Resumed *#%d* %s", tracking.TrackingID, tracking.Question))
}

func (h *Handlers) handleArchive(ctx context.Context, msg *tgbotapi.Message) {
	tracking, ok := h.trackingFromArgs(ctx, msg, "/archive <id>")
	if !ok {
		return
	}
	if tracking.State == models.TrackingArchived {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Tracking #%d is already archived", tracking.TrackingID))
		return
	}
	if err := h.store.Trackings.SetState(ctx, tracking.TrackingID, models.TrackingArchived); err != nil {
		log.Printf("Failed to archive tracking %d: %v", tracking.TrackingID, err)
		h.sendMessage(msg.Chat.ID, "Failed to archive the tracking, please try again")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🗄 Archived *#%d* %s\nHistory is kept; use /trackings to review it.", tracking.TrackingID, tracking.Question))
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	tracking, ok := h.trackingFromArgs(ctx, msg, "/delete <id>")
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

// trackingFromArgs parses a single numeric id argument and loads the tracking,
// scoped to the requesting user.
func (h *Handlers) trackingFromArgs(ctx context.Context, msg *tgbotapi.Message, usage string) (*models.Tracking, bool) {
	arg := strings.TrimSpace(msg.CommandArguments())
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		h.sendMessage(msg.Chat.ID, "Usage: "+usage)
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

func parseTrackArgs(args string) (string, schedule.Set, recurrence.Policy, error) {
	parts := strings.Split(args, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	// Two-part form: question | RRULE
	if len(parts) == 2 && strings.HasPrefix(strings.ToUpper(parts[1]), "RRULE:") {
		policy, set, err := recurrence.ParseRRule(parts[1])
		if err != nil {
			return "", schedule.Set{}, recurrence.Policy{}, fmt.Errorf("could not parse rule: %w", err)
		}
		return parts[0], set, policy, nil
	}

	if len(parts) != 3 {
		return "", schedule.Set{}, recurrence.Policy{}, errors.New("expected <question> | <times> | <recurrence>")
	}

	set, err := parseTimes(parts[1])
	if err != nil {
		return "", schedule.Set{}, recurrence.Policy{}, err
	}
	policy, err := parseRecurrence(parts[2])
	if err != nil {
		return "", schedule.Set{}, recurrence.Policy{}, err
	}
	return parts[0], set, policy, nil
}

func parseTimes(raw string) (schedule.Set, error) {
	var entries []schedule.Entry
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		t, err := time.Parse("15:04", field)
		if err != nil {
			return schedule.Set{}, fmt.Errorf("invalid time %q, use HH:MM", field)
		}
		entries = append(entries, schedule.Entry{Hour: t.Hour(), Minute: t.Minute()})
	}
	set, err := schedule.New(entries)
	if err != nil {
		return schedule.Set{}, err
	}
	return set, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

func parseRecurrence(raw string) (recurrence.Policy, error) {
	word, rest, _ := strings.Cut(raw, " ")
	switch strings.ToLower(word) {
	case "daily":
		return recurrence.NewDaily(), nil
	case "weekdays":
		var days recurrence.WeekdaySet
		for _, name := range strings.Split(rest, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			day, ok := weekdayNames[name]
			if !ok {
				return recurrence.Policy{}, fmt.Errorf("unknown weekday %q", name)
			}
			days = days.With(day)
		}
		return recurrence.NewWeekdays(days)
	case "once":
		date, err := time.Parse("2006-01-02", strings.TrimSpace(rest))
		if err != nil {
			return recurrence.Policy{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", rest)
		}
		return recurrence.NewOneTime(clock.DateOf(date, time.UTC)), nil
	default:
		return recurrence.Policy{}, fmt.Errorf("unknown recurrence %q, use daily, weekdays or once", word)
	}
}

func formatTimes(set schedule.Set) string {
	var parts []string
	for _, e := range set.Entries() {
		parts = append(parts, fmt.Sprintf("%02d:%02d", e.Hour, e.Minute))
	}
	return strings.Join(parts, ", ")
}
