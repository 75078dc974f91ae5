package handler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-checkin/internal/checkin"
	"wedding-checkin/internal/models"
	"wedding-checkin/internal/whatsapp"
)

// Replier sends a text reply to a phone number
type Replier interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// DeskHandler answers check-in commands sent over WhatsApp by door staff
type DeskHandler struct {
	replier   Replier
	directory checkin.Directory
	config    *Config
	staff     map[string]bool
	log       zerolog.Logger
}

type Config struct {
	StaffPhones []string
	CountryCode string
	// Timeout bounds the handling of one command
	Timeout time.Duration
}

// NewDeskHandler creates a new desk command handler
func NewDeskHandler(replier Replier, directory checkin.Directory, cfg *Config, logger zerolog.Logger) *DeskHandler {
	staff := make(map[string]bool, len(cfg.StaffPhones))
	for _, p := range cfg.StaffPhones {
		if p = whatsapp.NormalizePhoneNumber(p, cfg.CountryCode); p != "" {
			staff[p] = true
		}
	}
	return &DeskHandler{
		replier:   replier,
		directory: directory,
		config:    cfg,
		staff:     staff,
		log:       logger.With().Str("component", "desk").Logger(),
	}
}

// HandleMessage processes incoming WhatsApp messages from door staff
func (h *DeskHandler) HandleMessage(msg *events.Message) error {
	if msg.Message == nil {
		return nil
	}

	text := msg.Message.GetConversation()
	if text == "" {
		text = msg.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return nil
	}

	ctx := context.Background()
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}
	return h.Handle(ctx, msg.Info.Sender.User, text)
}

// Handle runs the command in text for phoneNumber and sends the reply.
// Messages from non-staff numbers and text that is not a command are ignored.
func (h *DeskHandler) Handle(ctx context.Context, phoneNumber, text string) error {
	phoneNumber = whatsapp.NormalizePhoneNumber(phoneNumber, h.config.CountryCode)
	if !h.staff[phoneNumber] {
		return nil
	}

	cmd, ok := ParseCommand(text)
	if !ok {
		return nil
	}

	reply := h.Execute(ctx, cmd)
	if err := h.replier.SendMessage(ctx, phoneNumber, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// Action is what a desk command asks for
type Action int

const (
	ActionHelp Action = iota + 1
	ActionLookup
	ActionCheckIn
)

// Command is a parsed desk command
type Command struct {
	Action    Action
	Query     checkin.Query
	UniqueIDs []string
}

// ParseCommand parses "id <uniqueId>", "name <name>", "email <address>",
// "checkin <uniqueId>..." and "help". Keywords are case-insensitive.
func ParseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{}, false
	}
	keyword := strings.ToLower(fields[0])
	rest := strings.Join(fields[1:], " ")

	switch keyword {
	case "help", "?":
		return Command{Action: ActionHelp}, true
	case "id", "uniqueid":
		return lookup(models.ByUniqueID, rest), true
	case "name":
		return lookup(models.ByName, rest), true
	case "email":
		return lookup(models.ByEmail, rest), true
	case "checkin", "check-in":
		var ids []string
		for _, f := range fields[1:] {
			for _, id := range strings.Split(f, ",") {
				if id != "" && !slices.Contains(ids, id) {
					ids = append(ids, id)
				}
			}
		}
		return Command{Action: ActionCheckIn, UniqueIDs: ids}, true
	}
	return Command{}, false
}

func lookup(criteria models.SearchCriteria, term string) Command {
	return Command{Action: ActionLookup, Query: checkin.Query{Criteria: criteria, Term: term}}
}

// Execute runs cmd and returns the reply text
func (h *DeskHandler) Execute(ctx context.Context, cmd Command) string {
	switch cmd.Action {
	case ActionLookup:
		attendees, err := checkin.Lookup(ctx, h.directory, cmd.Query, h.log)
		if err != nil {
			return userMessage(err)
		}
		return formatAttendees(attendees)
	case ActionCheckIn:
		msg, err := checkin.CheckIn(ctx, h.directory, cmd.UniqueIDs, h.log)
		if err != nil {
			return userMessage(err)
		}
		h.log.Info().Strs("unique_ids", cmd.UniqueIDs).Msg("checked in from desk")
		return "✅ " + msg
	default:
		return helpText
	}
}

const helpText = "Check-in desk commands:\n" +
	"• id <unique id>\n" +
	"• name <responder name>\n" +
	"• email <email address>\n" +
	"• checkin <unique id> [unique id...]"

func userMessage(err error) string {
	var e *checkin.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func formatAttendees(attendees []models.Attendee) string {
	var b strings.Builder
	b.WriteString(models.ListHeading(attendees))
	b.WriteString("\n")
	for _, a := range attendees {
		fmt.Fprintf(&b, "\n• %s (%s) [%s]\n  %s", a.Name, a.MealPreference, a.UniqueID, a.StatusLabel())
		if table := a.TableLabel(); table != "" {
			fmt.Fprintf(&b, " | Table: %s", table)
		}
	}
	return b.String()
}
