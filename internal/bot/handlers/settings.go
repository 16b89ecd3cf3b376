package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/twallet/habitus/internal/clock"
)

func (h *Handlers) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		user, err := h.store.Users.GetByID(ctx, msg.From.ID)
		if err != nil {
			log.Printf("Failed to load user %d: %v", msg.From.ID, err)
			return
		}
		current := user.Timezone
		if current == "" {
			current = "UTC"
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("🌍 Your timezone is *%s*\nChange it with /timezone <IANA name>, e.g. /timezone Europe/Berlin", current))
		return
	}

	loc, err := clock.LoadLocation(arg)
	if err != nil {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ Unknown timezone %q, use an IANA name like America/New_York", arg))
		return
	}

	if err := h.store.Users.SetTimezone(ctx, msg.From.ID, arg); err != nil {
		log.Printf("Failed to set timezone for %d: %v", msg.From.ID, err)
		h.sendMessage(msg.Chat.ID, "Failed to save your timezone, please try again")
		return
	}

	now := time.Now().In(loc)
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("🌍 Timezone set to *%s*\nIt is %s for you now. Upcoming reminders keep their instants; new ones use the new timezone.",
		arg, now.Format("15:04")))
}

func (h *Handlers) handleDigest(ctx context.Context, msg *tgbotapi.Message) {
	user, err := h.store.Users.GetByID(ctx, msg.From.ID)
	if err != nil {
		log.Printf("Failed to load user %d: %v", msg.From.ID, err)
		return
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) == 0 {
		if user.DigestEnabled {
			h.sendMessage(msg.Chat.ID, fmt.Sprintf("☀️ Daily digest is *on* at %s\nTurn it off with /digest off", user.DigestTime))
		} else {
			h.sendMessage(msg.Chat.ID, "☀️ Daily digest is *off*\nTurn it on with /digest on 08:00")
		}
		return
	}

	switch strings.ToLower(fields[0]) {
	case "off":
		if err := h.store.Users.SetDigest(ctx, msg.From.ID, false, user.DigestTime); err != nil {
			log.Printf("Failed to disable digest for %d: %v", msg.From.ID, err)
			h.sendMessage(msg.Chat.ID, "Failed to update the digest setting, please try again")
			return
		}
		h.sendMessage(msg.Chat.ID, "☀️ Daily digest turned *off*")
	case "on":
		digestTime := user.DigestTime
		if digestTime == "" {
			digestTime = "08:00"
		}
		if len(fields) > 1 {
			t, err := time.Parse("15:04", fields[1])
			if err != nil {
				h.sendMessage(msg.Chat.ID, fmt.Sprintf("⚠️ Invalid time %q, use HH:MM", fields[1]))
				return
			}
			digestTime = t.Format("15:04")
		}
		if err := h.store.Users.SetDigest(ctx, msg.From.ID, true, digestTime); err != nil {
			log.Printf("Failed to enable digest for %d: %v", msg.From.ID, err)
			h.sendMessage(msg.Chat.ID, "Failed to update the digest setting, please try again")
			return
		}
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("☀️ Daily digest turned *on* at %s local time", digestTime))
	default:
		h.sendMessage(msg.Chat.ID, "Usage: /digest [on|off] [HH:MM]")
	}
}
