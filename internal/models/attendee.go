package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Attendee represents one guest-list row as reported by the remote sheet
type Attendee struct {
	Timestamp           Text          `json:"Timestamp"`
	Email               Text          `json:"Email"`
	ResponderName       Text          `json:"Responder Name"`
	NumberOfGuests      Text          `json:"Number of Guests"`
	Name                Text          `json:"Name"`
	MealPreference      Text          `json:"Meal Preference"`
	AllergyRestrictions Text          `json:"Allergy & Restrictions"`
	CheckInStatus       CheckInStatus `json:"CheckIn"`
	UniqueID            Text          `json:"UniqueId"`
	TableNo             Text          `json:"Table No,omitempty"`
}

// CheckedIn reports whether the sheet marks the attendee as arrived
func (a Attendee) CheckedIn() bool {
	return a.CheckInStatus == CheckedIn
}

// StatusLabel returns the human readable check-in status
func (a Attendee) StatusLabel() string {
	if a.CheckedIn() {
		return "Checked In"
	}
	return "Not Checked In"
}

// TableLabel returns the assigned table, only once the attendee is checked in
func (a Attendee) TableLabel() string {
	if !a.CheckedIn() {
		return ""
	}
	return string(a.TableNo)
}

// ListHeading is the heading shown above a fetched attendee list
func ListHeading(attendees []Attendee) string {
	if len(attendees) == 0 {
		return ""
	}
	return fmt.Sprintf("Attendees for Email: %s", attendees[0].Email)
}

// CheckInStatus is the sheet's check-in marker
type CheckInStatus string

const (
	CheckedIn    CheckInStatus = "Y"
	NotCheckedIn CheckInStatus = ""
)

// UnmarshalJSON maps "Y" to CheckedIn and everything else to NotCheckedIn.
func (s *CheckInStatus) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	if t == "Y" {
		*s = CheckedIn
	} else {
		*s = NotCheckedIn
	}
	return nil
}

// Text is a sheet cell decoded as a string. Sheets hand back numbers and
// booleans for cells that look like them, so those are accepted too.
type Text string

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported cell value %s: %w", data, err)
		}
		if f, err := n.Float64(); err == nil && f == float64(int64(f)) {
			*t = Text(strconv.FormatInt(int64(f), 10))
		} else {
			*t = Text(n.String())
		}
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// SearchCriteria is the field a lookup is keyed by. Its value doubles as the
// query parameter name.
type SearchCriteria string

const (
	ByUniqueID SearchCriteria = "uniqueId"
	ByName     SearchCriteria = "name"
	ByEmail    SearchCriteria = "email"
)

// Label is the wording used in prompts for the criteria
func (c SearchCriteria) Label() string {
	switch c {
	case ByUniqueID:
		return "Unique ID"
	case ByName:
		return "Name"
	case ByEmail:
		return "Email Address"
	default:
		return string(c)
	}
}

// Valid reports whether c is one of the three supported criteria
func (c SearchCriteria) Valid() bool {
	switch c {
	case ByUniqueID, ByName, ByEmail:
		return true
	}
	return false
}

// AllNames is the reserved name term requesting the full name index
const AllNames = "ALL"

// CheckInRequest is the payload of the remote write
type CheckInRequest struct {
	UniqueIDs []string `json:"uniqueIds"`
}

// Envelope is the raw response shape shared by every remote call
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Names   []string        `json:"names,omitempty"`
}

// StatusSuccess is the only status value treated as success
const StatusSuccess = "success"

// OK reports whether the remote side reported success
func (e Envelope) OK() bool {
	return e.Status == StatusSuccess
}
