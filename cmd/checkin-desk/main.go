package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"wedding-checkin/internal/checkin"
	"wedding-checkin/internal/config"
	"wedding-checkin/internal/handler"
	"wedding-checkin/internal/models"
	"wedding-checkin/internal/sheets"
	"wedding-checkin/internal/storage"
	"wedding-checkin/internal/whatsapp"
)

func main() {
	fmt.Println("💍 Wedding Check-In Desk")
	fmt.Println("========================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(cfg.Level())
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize the guest-list client
	client, err := sheets.NewClient(sheets.Config{
		ReadURL:  cfg.Endpoint,
		WriteURL: cfg.PostEndpoint,
		Timeout:  cfg.RequestTimeout,
	}, nil, logger)
	if err != nil {
		fmt.Printf("Error initializing guest-list client: %v\n", err)
		os.Exit(1)
	}

	// Initialize the check-in journal
	journal, err := storage.NewJournal(filepath.Join(cfg.DataDir, "checkins.json"))
	if err != nil {
		fmt.Printf("Error initializing journal: %v\n", err)
		os.Exit(1)
	}

	names := checkin.NewNameIndex()
	deps := checkin.Deps{
		Directory:       client,
		Names:           names,
		Journal:         journal,
		Logger:          logger,
		FollowUpTimeout: cfg.RequestTimeout,
	}

	var whatsappService *whatsapp.Service
	if cfg.WhatsAppEnabled {
		whatsappService, err = whatsapp.NewService(&whatsapp.Config{
			DataDir:     cfg.DataDir,
			NotifyPhone: cfg.WhatsAppNotifyPhone,
			CountryCode: cfg.DefaultCountryCode,
		}, logger)
		if err != nil {
			fmt.Printf("Error initializing WhatsApp service: %v\n", err)
			os.Exit(1)
		}

		desk := handler.NewDeskHandler(whatsappService, client, &handler.Config{
			StaffPhones: cfg.WhatsAppStaffPhones,
			CountryCode: cfg.DefaultCountryCode,
			Timeout:     cfg.RequestTimeout,
		}, logger)
		whatsappService.SetMessageHandler(desk.HandleMessage)

		fmt.Println("Connecting to WhatsApp...")
		if err := whatsappService.Connect(); err != nil {
			fmt.Printf("Error connecting to WhatsApp: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("✅ Connected to WhatsApp")
		deps.Notifier = whatsappService
	}

	coordinator := checkin.NewCoordinator(deps)

	// Autocomplete must never hold up the desk
	go names.Load(ctx, client, logger)

	if len(os.Args) > 1 {
		fmt.Printf("\nOpening %s ...\n", os.Args[1])
		ok, err := coordinator.Bootstrap(ctx, os.Args[1])
		if err != nil && checkin.KindOf(err) == 0 {
			fmt.Printf("Invalid link: %v\n", err)
		}
		if ok {
			render(coordinator.State())
		}
	}

	go func() {
		startCLI(ctx, coordinator, journal, cfg)
		cancel()
	}()

	<-ctx.Done()

	fmt.Println("\n\nShutting down...")
	if whatsappService != nil {
		whatsappService.Disconnect()
	}
	fmt.Println("Goodbye! 👋")
}

func startCLI(ctx context.Context, c *checkin.Coordinator, journal *storage.Journal, cfg *config.Config) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		manual := c.State().ManualSearch()

		fmt.Println("\nCommands:")
		if manual {
			fmt.Println("  1. Search by Unique ID")
			fmt.Println("  2. Search by Name")
			fmt.Println("  3. Search by Email")
		}
		fmt.Println("  4. Select / deselect attendees")
		fmt.Println("  5. Check in selected")
		fmt.Println("  6. Show attendees")
		fmt.Println("  7. Generate deep-link QR code")
		fmt.Println("  8. View check-in journal")
		fmt.Println("  9. Clear results")
		fmt.Println("  0. Exit")
		fmt.Print("\nEnter command: ")

		if !scanner.Scan() {
			return
		}

		command := strings.TrimSpace(scanner.Text())

		switch {
		case manual && command == "1":
			search(ctx, scanner, c, models.ByUniqueID)
		case manual && command == "2":
			search(ctx, scanner, c, models.ByName)
		case manual && command == "3":
			search(ctx, scanner, c, models.ByEmail)
		case command == "4":
			toggle(scanner, c)
		case command == "5":
			submit(ctx, c)
		case command == "6":
			render(c.State())
		case command == "7":
			generateQR(scanner, c, cfg)
		case command == "8":
			viewJournal(scanner, journal)
		case command == "9":
			c.Reset()
			fmt.Println("Results cleared.")
		case command == "0":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func search(ctx context.Context, scanner *bufio.Scanner, c *checkin.Coordinator, criteria models.SearchCriteria) {
	if !c.SetCriteria(criteria) {
		fmt.Println("Search is not available right now.")
		return
	}

	fmt.Printf("Enter %s: ", criteria.Label())
	if !scanner.Scan() {
		return
	}
	c.TypeTerm(scanner.Text())

	if criteria == models.ByName {
		if !refineName(scanner, c) {
			return
		}
	}

	fmt.Println("⏳ Looking up...")
	if _, err := c.Enter(ctx); checkin.KindOf(err) == checkin.KindBusy {
		printError(err)
		return
	}
	render(c.State())
}

// refineName lets the user work through autocomplete suggestions. It returns
// true once the user presses Enter to search.
func refineName(scanner *bufio.Scanner, c *checkin.Coordinator) bool {
	for {
		s := c.State()
		if s.SuggestionsVisible {
			if len(s.Suggestions) == 0 {
				fmt.Println("  (no matching names)")
			}
			for i, name := range s.Suggestions {
				fmt.Printf("  %d. %s\n", i+1, name)
			}
			fmt.Printf("Name [%s] - number to pick, Enter to search, esc to close, or type to refine: ", s.Term)
		} else {
			fmt.Printf("Name [%s] - Enter to search, or type to refine: ", s.Term)
		}

		if !scanner.Scan() {
			return false
		}
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			return true
		case strings.EqualFold(strings.TrimSpace(line), "esc"):
			c.Escape()
		case s.SuggestionsVisible && isNumber(line):
			n, _ := strconv.Atoi(strings.TrimSpace(line))
			if !c.PickSuggestion(n - 1) {
				fmt.Println("No such suggestion.")
			}
		default:
			c.TypeTerm(line)
		}
	}
}

func toggle(scanner *bufio.Scanner, c *checkin.Coordinator) {
	s := c.State()
	if len(s.Attendees) == 0 {
		fmt.Println("\nNo attendees loaded. Search first.")
		return
	}

	if s.Busy {
		fmt.Printf("❌ %s\n", checkin.MsgBusy)
		return
	}

	render(s)
	fmt.Print("Enter attendee number(s) to select/deselect (e.g. 1 3): ")
	if !scanner.Scan() {
		return
	}

	for _, field := range strings.Fields(scanner.Text()) {
		n, err := strconv.Atoi(field)
		if err != nil || n < 1 || n > len(s.Attendees) {
			fmt.Printf("Ignoring %q: not an attendee number.\n", field)
			continue
		}
		a := s.Attendees[n-1]
		if c.Toggle(string(a.UniqueID)) {
			continue
		}
		if a.CheckedIn() {
			fmt.Printf("%s is already checked in.\n", a.Name)
		} else {
			fmt.Printf("%s cannot be selected right now.\n", a.Name)
		}
	}
	render(c.State())
}

func submit(ctx context.Context, c *checkin.Coordinator) {
	fmt.Println("⏳ Checking in...")
	if _, err := c.Submit(ctx); err != nil {
		printError(err)
		return
	}
	render(c.State())
}

func printError(err error) {
	var e *checkin.Error
	if errors.As(err, &e) {
		fmt.Printf("❌ %s\n", e.Message)
	} else {
		fmt.Printf("❌ %v\n", err)
	}
}

func render(s checkin.State) {
	if s.Message != "" {
		fmt.Printf("\n%s\n", s.Message)
	}
	if s.Notice != "" && s.Notice != s.Message {
		fmt.Printf("\n%s\n", s.Notice)
	}
	if len(s.Attendees) == 0 {
		return
	}

	fmt.Printf("\n📋 %s\n", models.ListHeading(s.Attendees))
	fmt.Println(strings.Repeat("-", 60))
	for i, a := range s.Attendees {
		box := "[ ]"
		switch {
		case a.CheckedIn():
			box = "[-]"
		case s.IsSelected(string(a.UniqueID)):
			box = "[x]"
		}
		fmt.Printf("%s %d. %s (%s)\n", box, i+1, a.Name, a.MealPreference)
		status := "    Status: " + a.StatusLabel()
		if table := a.TableLabel(); table != "" {
			status += " | Table: " + table
		}
		fmt.Println(status)
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%d selected\n", len(s.Selected))
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func generateQR(scanner *bufio.Scanner, c *checkin.Coordinator, cfg *config.Config) {
	s := c.State()
	q := checkin.Query{Criteria: s.Criteria, Term: s.Term}

	fmt.Printf("Search key (1=Unique ID, 2=Name, 3=Email) [%s]: ", s.Criteria.Label())
	if !scanner.Scan() {
		return
	}
	switch strings.TrimSpace(scanner.Text()) {
	case "1":
		q = checkin.Query{Criteria: models.ByUniqueID}
	case "2":
		q = checkin.Query{Criteria: models.ByName}
	case "3":
		q = checkin.Query{Criteria: models.ByEmail}
	}

	fmt.Printf("%s [%s]: ", q.Criteria.Label(), q.Term)
	if !scanner.Scan() {
		return
	}
	if term := strings.TrimSpace(scanner.Text()); term != "" {
		q.Term = term
	}

	link, err := checkin.BuildDeepLink(cfg.DeepLinkBase, q)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}

	name := unsafeFileChars.ReplaceAllString(string(q.Criteria)+"-"+q.Term, "_")
	path := filepath.Join(cfg.DataDir, "qr", name+".png")
	if err := checkin.WriteDeepLinkQR(path, link, 512); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("✅ %s\n   saved to %s\n", link, path)
}

func viewJournal(scanner *bufio.Scanner, journal *storage.Journal) {
	fmt.Print("Show (1=all, 2=successful, 3=rejected, 4=transport errors) [1]: ")
	if !scanner.Scan() {
		return
	}

	var receipts []models.CheckInReceipt
	switch strings.TrimSpace(scanner.Text()) {
	case "2":
		receipts = journal.GetByOutcome(models.OutcomeSuccess)
	case "3":
		receipts = journal.GetByOutcome(models.OutcomeRejected)
	case "4":
		receipts = journal.GetByOutcome(models.OutcomeTransportError)
	default:
		receipts = journal.GetAll()
	}
	if len(receipts) == 0 {
		fmt.Println("\nNo check-ins recorded.")
		return
	}

	fmt.Printf("\n📒 Check-ins (%d submissions, %d guests checked in):\n", len(receipts), len(journal.CheckedInIDs()))
	fmt.Println(strings.Repeat("-", 60))
	for _, r := range receipts {
		fmt.Printf("At: %s\n", r.At.Format("2006-01-02 15:04:05"))
		fmt.Printf("Outcome: %s\n", r.Outcome)
		if len(r.Names) > 0 {
			fmt.Printf("Guests: %s\n", strings.Join(r.Names, ", "))
		}
		fmt.Printf("IDs: %s\n", strings.Join(r.UniqueIDs, ", "))
		if r.Message != "" {
			fmt.Printf("Message: %s\n", r.Message)
		}
		fmt.Println(strings.Repeat("-", 60))
	}
}

func isNumber(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}
