package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-checkin/internal/models"
)

// MessageHandler is a callback function for handling messages
type MessageHandler func(*events.Message) error

type Config struct {
	DataDir string
	// NotifyPhone receives a receipt for every successful check-in. Empty disables receipts.
	NotifyPhone string
	// CountryCode replaces the leading 0 of national numbers.
	CountryCode string
}

type Service struct {
	client         *whatsmeow.Client
	cfg            *Config
	log            zerolog.Logger
	messageHandler MessageHandler
}

// NewService creates a new WhatsApp service
func NewService(cfg *Config, logger zerolog.Logger) (*Service, error) {
	ctx := context.Background()
	logger = logger.With().Str("component", "WhatsApp").Logger()

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	// Use nil logger - whatsmeow will use a no-op logger by default
	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	// Register event handlers
	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// NormalizePhoneNumber strips formatting from a phone number and converts
// national numbers (leading 0, ten digits) to international format using
// countryCode.
func NormalizePhoneNumber(phoneNumber, countryCode string) string {
	phoneNumber = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phoneNumber)

	if countryCode == "" {
		return phoneNumber
	}

	// 05XXXXXXXX -> <cc>5XXXXXXXX
	if strings.HasPrefix(phoneNumber, "0") && len(phoneNumber) == 10 {
		phoneNumber = countryCode + phoneNumber[1:]
	}

	// <cc>0... -> <cc>...
	if strings.HasPrefix(phoneNumber, countryCode+"0") {
		phoneNumber = countryCode + phoneNumber[len(countryCode)+1:]
	}

	return phoneNumber
}

// Connect connects to WhatsApp, showing a pairing QR code on first run
func (s *Service) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				// Generate and display QR code in terminal
				q, err := qrcode.New(evt.Code, qrcode.Medium)
				if err != nil {
					fmt.Printf("QR Code: %s\n", evt.Code)
					fmt.Println("Please scan this QR code with WhatsApp to connect.")
				} else {
					fmt.Println("\n" + q.ToSmallString(false))
					fmt.Println("📱 Scan the QR code above with the check-in desk's WhatsApp:")
					fmt.Println("   Settings > Linked Devices > Link a Device")
				}
			} else {
				s.log.Info().Str("event", evt.Event).Msg("Login event")
			}
		}
	} else {
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// NotifyCheckIn sends a check-in receipt to the organizer's number
func (s *Service) NotifyCheckIn(ctx context.Context, receipt models.CheckInReceipt) error {
	if s.cfg.NotifyPhone == "" {
		return nil
	}
	return s.SendMessage(ctx, s.cfg.NotifyPhone, FormatReceipt(receipt))
}

// FormatReceipt renders a check-in receipt as a WhatsApp text message
func FormatReceipt(receipt models.CheckInReceipt) string {
	var b strings.Builder
	b.WriteString("✅ *Check-in*\n\n")
	if len(receipt.Names) > 0 {
		for _, name := range receipt.Names {
			fmt.Fprintf(&b, "• %s\n", name)
		}
	} else {
		fmt.Fprintf(&b, "• %s\n", strings.Join(receipt.UniqueIDs, ", "))
	}
	if receipt.Term != "" {
		fmt.Fprintf(&b, "\nSearched by %s: %s", receipt.Criteria.Label(), receipt.Term)
	}
	if !receipt.At.IsZero() {
		fmt.Fprintf(&b, "\nAt: %s", receipt.At.Format("2006-01-02 15:04:05"))
	}
	if receipt.Message != "" {
		fmt.Fprintf(&b, "\n\n%s", receipt.Message)
	}
	return b.String()
}

// SendMessage sends a simple text message
func (s *Service) SendMessage(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = NormalizePhoneNumber(phoneNumber, s.cfg.CountryCode)

	jid, err := s.resolveJID(ctx, phoneNumber)
	if err != nil {
		return err
	}

	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Msg("Attempting to send message")

	sentMsg, err := s.client.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unknown server") || strings.Contains(err.Error(), "can't send message") {
			return fmt.Errorf("failed to send message to %s (JID: %s): %w. The recipient must be in the desk phone's contacts", phoneNumber, jid.String(), err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Debug().Str("id", string(sentMsg.ID)).Time("timestamp", sentMsg.Timestamp).Msg("Message sent")
	return nil
}

// resolveJID verifies the number is on WhatsApp and returns the JID WhatsApp reports for it
func (s *Service) resolveJID(ctx context.Context, phoneNumber string) (types.JID, error) {
	resp, err := s.client.IsOnWhatsApp(ctx, []string{phoneNumber})
	if err != nil {
		return types.JID{}, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}

	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, errors.New("number " + phoneNumber + " is not registered on WhatsApp")
	}

	return resp[0].JID, nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage processes incoming messages
func (s *Service) handleMessage(msg *events.Message) {
	// Skip messages from self
	if msg.Info.IsFromMe {
		return
	}

	if s.messageHandler != nil {
		if err := s.messageHandler(msg); err != nil {
			s.log.Error().Err(err).Msg("Error handling message")
		}
	} else {
		s.log.Debug().
			Str("sender", msg.Info.Sender.String()).
			Msg("Received message")
	}
}

// SetMessageHandler sets a custom handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}
