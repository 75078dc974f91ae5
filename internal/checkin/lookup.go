package checkin

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"wedding-checkin/internal/models"
	"wedding-checkin/internal/sheets"
)

// Lookup runs one stateless search with the same rules the Coordinator
// applies. Callers without session state, such as the WhatsApp desk, use it
// directly.
func Lookup(ctx context.Context, dir Directory, q Query, log zerolog.Logger) ([]models.Attendee, error) {
	if e := validateQuery(q); e != nil {
		return nil, e
	}
	attendees, err := dir.Search(ctx, q.Criteria, strings.TrimSpace(q.Term))
	if err != nil {
		return nil, searchError(err, q, log)
	}
	if len(attendees) == 0 {
		return nil, &Error{Kind: KindServer, Message: MsgNoAttendees}
	}
	return attendees, nil
}

// CheckIn submits ids once with the same rules the Coordinator applies.
func CheckIn(ctx context.Context, dir Directory, ids []string, log zerolog.Logger) (string, error) {
	if len(ids) == 0 {
		return "", validationError(MsgSelectAtLeast)
	}
	msg, err := dir.CheckIn(ctx, ids)
	if err != nil {
		return "", submitError(err, ids, log)
	}
	return msg, nil
}

func validateQuery(q Query) *Error {
	term := strings.TrimSpace(q.Term)
	switch {
	case !q.Criteria.Valid():
		return validationError("Unknown search criteria.")
	case term == "":
		return validationError(PromptFor(q.Criteria))
	case q.Criteria == models.ByName && term == models.AllNames:
		// reserved for loading the name index
		return validationError(MsgNameNotFound)
	}
	return nil
}

func searchError(err error, q Query, log zerolog.Logger) *Error {
	var serr *sheets.ServerError
	if errors.As(err, &serr) {
		msg := serr.Message
		if msg == "" {
			msg = MsgFetchError
		}
		return &Error{Kind: KindServer, Message: msg, Err: err}
	}
	log.Error().Err(err).Str("criteria", string(q.Criteria)).Str("term", q.Term).Msg("Error fetching data")
	return &Error{Kind: KindTransport, Message: MsgFetchError, Err: err}
}

func submitError(err error, ids []string, log zerolog.Logger) *Error {
	var serr *sheets.ServerError
	if errors.As(err, &serr) {
		msg := serr.Message
		if msg == "" {
			msg = MsgSubmitError
		}
		return &Error{Kind: KindServer, Message: msg, Err: err}
	}
	log.Error().Err(err).Strs("unique_ids", ids).Msg("Error submitting check-in")
	return &Error{Kind: KindTransport, Message: MsgSubmitError, Err: err}
}
