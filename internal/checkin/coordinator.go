// Package checkin coordinates attendee lookups and batched check-ins against
// the remote guest list.
//
// A Coordinator owns the session state a front end renders: the active
// search, the fetched attendees, the selection, the latest message and the
// autocomplete suggestions. One request, search or submission, runs at a
// time; user-triggered calls made while one is in flight are rejected with
// ErrBusy. The refetch that follows a successful submission runs inside the
// submission's slot.
package checkin

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"wedding-checkin/internal/models"
)

var errSuperseded = errors.New("response superseded by a newer search")

// Directory is the remote guest list.
type Directory interface {
	Search(ctx context.Context, criteria models.SearchCriteria, term string) ([]models.Attendee, error)
	CheckIn(ctx context.Context, uniqueIDs []string) (string, error)
}

// Notifier is told about every successful check-in.
type Notifier interface {
	NotifyCheckIn(ctx context.Context, receipt models.CheckInReceipt) error
}

// Recorder keeps a record of every submission, successful or not.
type Recorder interface {
	Record(receipt models.CheckInReceipt) error
}

// defaultFollowUpTimeout bounds the refetch and receipt after a check-in.
const defaultFollowUpTimeout = 20 * time.Second

// Deps holds the coordinator's collaborators. Notifier and Journal are optional.
type Deps struct {
	Directory Directory
	Names     *NameIndex
	Notifier  Notifier
	Journal   Recorder
	Logger    zerolog.Logger
	Now       func() time.Time
	// FollowUpTimeout bounds the work done after the server accepted a
	// check-in. That work no longer follows the caller's cancellation.
	FollowUpTimeout time.Duration
}

// State is a snapshot of the coordinator's session state.
type State struct {
	Criteria           models.SearchCriteria
	Term               string
	Attendees          []models.Attendee
	Selected           []string
	Message            string
	Notice             string
	Suggestions        []string
	SuggestionsVisible bool
	Busy               bool
	DeepLinked         bool
}

// IsSelected reports whether uniqueID is in the selection.
func (s State) IsSelected(uniqueID string) bool {
	return slices.Contains(s.Selected, uniqueID)
}

// ManualSearch reports whether the manual search input should be offered.
func (s State) ManualSearch() bool {
	return !s.DeepLinked
}

// Coordinator drives lookups and check-ins for one desk session. It is safe
// for concurrent use.
type Coordinator struct {
	dir      Directory
	names    *NameIndex
	notifier Notifier
	journal  Recorder
	log      zerolog.Logger
	now      func() time.Time
	followUp time.Duration

	// inflight admits one request at a time. It is only acquired, probed and
	// released with mu held.
	inflight *semaphore.Weighted

	mu           sync.Mutex
	criteria     models.SearchCriteria
	term         string
	query        Query
	attendees    []models.Attendee
	selected     []string
	message      string
	notice       string
	ac           autocomplete
	deepLinked   bool
	bootstrapped bool
	generation   uint64
}

// NewCoordinator creates a coordinator searching by unique id.
func NewCoordinator(deps Deps) *Coordinator {
	names := deps.Names
	if names == nil {
		names = NewNameIndex()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	followUp := deps.FollowUpTimeout
	if followUp <= 0 {
		followUp = defaultFollowUpTimeout
	}
	return &Coordinator{
		dir:      deps.Directory,
		names:    names,
		notifier: deps.Notifier,
		journal:  deps.Journal,
		log:      deps.Logger.With().Str("component", "checkin").Logger(),
		now:      now,
		followUp: followUp,
		inflight: semaphore.NewWeighted(1),
		criteria: models.ByUniqueID,
	}
}

// State returns a snapshot safe to read while requests are in flight.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Criteria:           c.criteria,
		Term:               c.term,
		Attendees:          slices.Clone(c.attendees),
		Selected:           slices.Clone(c.selected),
		Message:            c.message,
		Notice:             c.notice,
		Suggestions:        slices.Clone(c.ac.suggestions),
		SuggestionsVisible: c.ac.visible,
		Busy:               c.busy(),
		DeepLinked:         c.deepLinked,
	}
}

// busy reports whether a request holds the slot. c.mu must be held.
func (c *Coordinator) busy() bool {
	if !c.inflight.TryAcquire(1) {
		return true
	}
	c.inflight.Release(1)
	return false
}

// acquire takes the request slot without waiting. c.mu must be held.
func (c *Coordinator) acquire() bool {
	return c.inflight.TryAcquire(1)
}

// release gives the request slot back.
func (c *Coordinator) release() {
	c.mu.Lock()
	c.inflight.Release(1)
	c.mu.Unlock()
}

// Bootstrap triggers the lookup addressed by a deep link, if any. Only the
// first call can trigger a lookup; once one runs the manual search input is
// switched off for the rest of the session.
func (c *Coordinator) Bootstrap(ctx context.Context, link string) (bool, error) {
	q, ok, err := ParseDeepLinkURL(link)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if !ok || c.bootstrapped {
		c.mu.Unlock()
		return false, nil
	}
	c.bootstrapped = true
	c.deepLinked = true
	c.criteria = q.Criteria
	c.term = q.Term
	c.mu.Unlock()

	c.log.Info().Str("criteria", string(q.Criteria)).Str("term", q.Term).Msg("deep link lookup")
	_, err = c.Search(ctx, q.Criteria, q.Term)
	return true, err
}

// SetCriteria switches the active search field and clears the typed term.
func (c *Coordinator) SetCriteria(criteria models.SearchCriteria) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deepLinked || !criteria.Valid() || c.busy() {
		return false
	}
	c.criteria = criteria
	c.term = ""
	c.ac.hide()
	return true
}

// TypeTerm records the typed search term and, when searching by name,
// recomputes the suggestions from the name index.
func (c *Coordinator) TypeTerm(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deepLinked {
		return
	}
	c.term = input
	if c.criteria == models.ByName {
		c.ac.update(c.names.Names(), input)
	} else {
		c.ac.hide()
	}
}

// PickSuggestion makes the i-th visible suggestion the search term and hides
// the list. It does not search.
func (c *Coordinator) PickSuggestion(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ac.visible || i < 0 || i >= len(c.ac.suggestions) {
		return false
	}
	c.term = c.ac.suggestions[i]
	c.ac.hide()
	return true
}

// Escape hides the suggestions and keeps the term.
func (c *Coordinator) Escape() {
	c.mu.Lock()
	c.ac.hide()
	c.mu.Unlock()
}

// Enter hides the suggestions and searches for the current term.
func (c *Coordinator) Enter(ctx context.Context) ([]models.Attendee, error) {
	c.mu.Lock()
	c.ac.hide()
	q := Query{Criteria: c.criteria, Term: c.term}
	c.mu.Unlock()
	return c.Search(ctx, q.Criteria, q.Term)
}

// Search looks up attendees by criteria and term. On success the attendee
// list is replaced and the selection cleared; on failure the list is cleared
// and the returned *Error's Message becomes the session message.
func (c *Coordinator) Search(ctx context.Context, criteria models.SearchCriteria, term string) ([]models.Attendee, error) {
	c.mu.Lock()
	if !c.acquire() {
		c.mu.Unlock()
		return nil, busyError()
	}
	c.notice = ""
	c.mu.Unlock()
	defer c.release()

	return c.resolve(ctx, Query{Criteria: criteria, Term: term})
}

// resolve runs one lookup. The caller holds the request slot.
func (c *Coordinator) resolve(ctx context.Context, q Query) ([]models.Attendee, error) {
	if e := validateQuery(q); e != nil {
		return nil, c.failSearch(q, e)
	}
	term := strings.TrimSpace(q.Term)

	c.mu.Lock()
	c.criteria = q.Criteria
	c.term = q.Term
	c.message = ""
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	attendees, err := c.dir.Search(ctx, q.Criteria, term)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.log.Debug().Str("criteria", string(q.Criteria)).Str("term", term).Msg("discarding superseded search response")
		return nil, &Error{Kind: KindBusy, Message: MsgBusy, Err: errSuperseded}
	}
	if err != nil {
		return nil, c.clearWith(searchError(err, q, c.log))
	}
	if len(attendees) == 0 {
		return nil, c.clearWith(&Error{Kind: KindServer, Message: MsgNoAttendees})
	}

	c.attendees = slices.Clone(attendees)
	c.selected = nil
	c.query = Query{Criteria: q.Criteria, Term: term}
	c.log.Debug().Str("criteria", string(q.Criteria)).Int("attendees", len(attendees)).Msg("search resolved")
	return slices.Clone(attendees), nil
}

func (c *Coordinator) failSearch(q Query, e *Error) *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if q.Criteria.Valid() {
		c.criteria = q.Criteria
	}
	return c.clearWith(e)
}

// clearWith drops the attendee list and selection and shows e. c.mu must be held.
func (c *Coordinator) clearWith(e *Error) *Error {
	c.attendees = nil
	c.selected = nil
	c.message = e.Message
	return e
}

// Toggle flips uniqueID's membership in the selection. Attendees already
// checked in, ids not in the current list and calls made while a request is
// in flight are refused. It reports whether the selection changed.
func (c *Coordinator) Toggle(uniqueID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy() {
		return false
	}

	i := slices.IndexFunc(c.attendees, func(a models.Attendee) bool {
		return string(a.UniqueID) == uniqueID
	})
	if i < 0 || c.attendees[i].CheckedIn() {
		return false
	}

	if j := slices.Index(c.selected, uniqueID); j >= 0 {
		c.selected = slices.Delete(c.selected, j, j+1)
	} else {
		c.selected = append(c.selected, uniqueID)
	}
	return true
}

// Submit checks in the selected attendees. On success it returns the
// server's message and refetches the active search so statuses reflect the
// server; on failure the list and selection are left as they were.
func (c *Coordinator) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if !c.acquire() {
		c.mu.Unlock()
		return "", busyError()
	}
	if len(c.selected) == 0 {
		c.inflight.Release(1)
		c.notice = MsgSelectAtLeast
		c.mu.Unlock()
		return "", validationError(MsgSelectAtLeast)
	}
	ids := slices.Clone(c.selected)
	names := c.selectedNames()
	q := c.query
	c.notice = ""
	c.mu.Unlock()
	defer c.release()

	receipt := models.CheckInReceipt{
		ID:        uuid.NewString(),
		At:        c.now(),
		Criteria:  q.Criteria,
		Term:      q.Term,
		UniqueIDs: ids,
		Names:     names,
	}

	msg, err := c.dir.CheckIn(ctx, ids)
	if err != nil {
		out := submitError(err, ids, c.log)
		if out.Kind == KindServer {
			receipt.Outcome = models.OutcomeRejected
		} else {
			receipt.Outcome = models.OutcomeTransportError
		}
		receipt.Message = out.Message
		c.record(receipt)

		c.mu.Lock()
		c.notice = out.Message
		c.mu.Unlock()
		return "", out
	}

	receipt.Outcome = models.OutcomeSuccess
	receipt.Message = msg
	c.record(receipt)

	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()

	c.log.Info().Str("receipt", receipt.ID).Int("attendees", len(ids)).Msg("check-in submitted")

	// The server has accepted the batch, so the list must be refreshed even
	// if the caller has gone away.
	followCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.followUp)
	defer cancel()
	c.refetch(followCtx, q)
	c.notify(followCtx, receipt)
	return msg, nil
}

// selectedNames returns the names of the selected attendees. c.mu must be held.
func (c *Coordinator) selectedNames() []string {
	var names []string
	for _, a := range c.attendees {
		if slices.Contains(c.selected, string(a.UniqueID)) {
			names = append(names, string(a.Name))
		}
	}
	return names
}

// refetch reruns q after a successful submission and keeps the submission
// notice. The caller holds the request slot. A failed refetch clears the list
// and the selection like any failed search.
func (c *Coordinator) refetch(ctx context.Context, q Query) {
	if _, err := c.resolve(ctx, q); err != nil {
		c.log.Warn().Err(err).Msg("refetch after check-in failed")
	}
}

func (c *Coordinator) record(receipt models.CheckInReceipt) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Record(receipt); err != nil {
		c.log.Error().Err(err).Str("receipt", receipt.ID).Msg("failed to journal check-in")
	}
}

func (c *Coordinator) notify(ctx context.Context, receipt models.CheckInReceipt) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyCheckIn(ctx, receipt); err != nil {
		c.log.Error().Err(err).Str("receipt", receipt.ID).Msg("failed to send check-in receipt")
	}
}

// Reset clears the session back to an empty search, keeping the active
// criteria. Responses to searches still in flight are discarded.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.term = ""
	c.query = Query{}
	c.attendees = nil
	c.selected = nil
	c.message = ""
	c.notice = ""
	c.ac.hide()
}
