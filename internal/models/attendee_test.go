package models

import (
	"encoding/json"
	"testing"
)

func TestAttendee_UnmarshalSheetRow(t *testing.T) {
	raw := `{
		"Timestamp": "2024-05-01T10:00:00.000Z",
		"Email": "alice@example.com",
		"Responder Name": "Alice Smith",
		"Number of Guests": 2,
		"Name": "Bob Smith",
		"Meal Preference": "Vegetarian",
		"Allergy & Restrictions": null,
		"CheckIn": "Y",
		"UniqueId": "A1B2",
		"Table No": 7
	}`

	var a Attendee
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if a.ResponderName != "Alice Smith" {
		t.Errorf("ResponderName = %q", a.ResponderName)
	}
	if a.NumberOfGuests != "2" {
		t.Errorf("NumberOfGuests = %q, want %q", a.NumberOfGuests, "2")
	}
	if a.AllergyRestrictions != "" {
		t.Errorf("AllergyRestrictions = %q, want empty", a.AllergyRestrictions)
	}
	if !a.CheckedIn() {
		t.Error("expected attendee to be checked in")
	}
	if a.TableLabel() != "7" {
		t.Errorf("TableLabel() = %q, want %q", a.TableLabel(), "7")
	}
	if a.UniqueID != "A1B2" {
		t.Errorf("UniqueID = %q", a.UniqueID)
	}
}

func TestCheckInStatus_Unmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want CheckInStatus
	}{
		{`"Y"`, CheckedIn},
		{`"N"`, NotCheckedIn},
		{`""`, NotCheckedIn},
		{`"y"`, NotCheckedIn},
		{`null`, NotCheckedIn},
		{`false`, NotCheckedIn},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var s CheckInStatus
			if err := json.Unmarshal([]byte(tt.raw), &s); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if s != tt.want {
				t.Errorf("status = %q, want %q", s, tt.want)
			}
		})
	}
}

func TestText_Unmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want Text
	}{
		{`"hello"`, "hello"},
		{`12`, "12"},
		{`12.5`, "12.5"},
		{`true`, "true"},
		{`null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var got Text
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Text = %q, want %q", got, tt.want)
			}
		})
	}

	var bad Text
	if err := json.Unmarshal([]byte(`{"a":1}`), &bad); err == nil {
		t.Error("expected error for object cell")
	}
}

func TestAttendee_Labels(t *testing.T) {
	pending := Attendee{Name: "Joan", TableNo: "4"}
	if pending.StatusLabel() != "Not Checked In" {
		t.Errorf("StatusLabel() = %q", pending.StatusLabel())
	}
	if pending.TableLabel() != "" {
		t.Errorf("TableLabel() = %q, want empty before check-in", pending.TableLabel())
	}

	if got := ListHeading(nil); got != "" {
		t.Errorf("ListHeading(nil) = %q", got)
	}
	got := ListHeading([]Attendee{{Email: "a@b.c"}, {Email: "x@y.z"}})
	if got != "Attendees for Email: a@b.c" {
		t.Errorf("ListHeading = %q", got)
	}
}

func TestSearchCriteria(t *testing.T) {
	tests := []struct {
		c     SearchCriteria
		label string
		valid bool
	}{
		{ByUniqueID, "Unique ID", true},
		{ByName, "Name", true},
		{ByEmail, "Email Address", true},
		{SearchCriteria("phone"), "phone", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			if got := tt.c.Label(); got != tt.label {
				t.Errorf("Label() = %q, want %q", got, tt.label)
			}
			if got := tt.c.Valid(); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}
