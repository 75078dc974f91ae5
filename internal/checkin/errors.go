package checkin

import (
	"errors"
	"fmt"

	"wedding-checkin/internal/models"
)

// User-facing messages.
const (
	MsgFetchError     = "Error fetching data."
	MsgSubmitError    = "Error submitting check-in."
	MsgNameNotFound   = "Name not found."
	MsgNoAttendees    = "No attendees found."
	MsgSelectAtLeast  = "Please select at least one attendee to check in."
	MsgBusy           = "Please wait for the current request to finish."
	msgPromptTemplate = "Please enter a %s."
)

// PromptFor is the message shown when a search is attempted with no term.
func PromptFor(criteria models.SearchCriteria) string {
	return fmt.Sprintf(msgPromptTemplate, criteria.Label())
}

// Kind classifies a failed operation.
type Kind int

const (
	// KindValidation is detected locally; no request was sent.
	KindValidation Kind = iota + 1
	// KindServer means the remote side answered with a non-success status.
	KindServer
	// KindTransport covers network failures, timeouts and malformed responses.
	KindTransport
	// KindBusy means another request of the same class is still in flight.
	KindBusy
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindTransport:
		return "transport"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ErrBusy is matched by every KindBusy error.
var ErrBusy = errors.New("request already in flight")

// Error is returned by coordinator operations. Message is safe to show to
// the user; Err carries diagnostic detail.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func busyError() *Error {
	return &Error{Kind: KindBusy, Message: MsgBusy, Err: ErrBusy}
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
