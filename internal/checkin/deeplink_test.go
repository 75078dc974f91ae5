package checkin

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"wedding-checkin/internal/models"
)

func TestParseDeepLink(t *testing.T) {
	tests := []struct {
		query string
		want  Query
		ok    bool
	}{
		{"uniqueId=XYZ&name=Bob", Query{models.ByUniqueID, "XYZ"}, true},
		{"email=a%40b.c&name=Bob", Query{models.ByName, "Bob"}, true},
		{"email=a%40b.c", Query{models.ByEmail, "a@b.c"}, true},
		{"uniqueId=&email=a%40b.c", Query{models.ByEmail, "a@b.c"}, true},
		{"table=4", Query{}, false},
		{"", Query{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			params, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			got, ok := ParseDeepLink(params)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseDeepLink(%q) = %+v, %v; want %+v, %v", tt.query, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseDeepLinkURL(t *testing.T) {
	q, ok, err := ParseDeepLinkURL("https://checkin.example.com/?name=Bob&uniqueId=XYZ")
	if err != nil || !ok {
		t.Fatalf("ParseDeepLinkURL: %v %v", ok, err)
	}
	if q != (Query{models.ByUniqueID, "XYZ"}) {
		t.Errorf("query = %+v", q)
	}

	q, ok, err = ParseDeepLinkURL("?email=alice%40example.com")
	if err != nil || !ok || q.Term != "alice@example.com" {
		t.Errorf("bare query = %+v %v %v", q, ok, err)
	}

	if _, ok, err := ParseDeepLinkURL(""); ok || err != nil {
		t.Errorf("empty link = %v %v", ok, err)
	}
}

func TestBuildDeepLink(t *testing.T) {
	link, err := BuildDeepLink("https://checkin.example.com/", Query{models.ByEmail, "alice@example.com"})
	if err != nil {
		t.Fatalf("BuildDeepLink: %v", err)
	}
	if link != "https://checkin.example.com/?email=alice%40example.com" {
		t.Errorf("link = %q", link)
	}

	q, ok, err := ParseDeepLinkURL(link)
	if err != nil || !ok || q != (Query{models.ByEmail, "alice@example.com"}) {
		t.Errorf("round trip = %+v %v %v", q, ok, err)
	}

	if _, err := BuildDeepLink("https://x/", Query{models.ByName, " "}); err == nil {
		t.Error("expected error for blank term")
	}
	if _, err := BuildDeepLink("https://x/", Query{"phone", "1"}); err == nil {
		t.Error("expected error for unknown criteria")
	}
}

func TestWriteDeepLinkQR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qr", "A1.png")
	if err := WriteDeepLinkQR(path, "https://checkin.example.com/?uniqueId=A1", 0); err != nil {
		t.Fatalf("WriteDeepLinkQR: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("empty QR file")
	}
}

func TestBootstrap(t *testing.T) {
	sheet := newFakeSheet(guestList()...)
	c := newTestCoordinator(sheet, "Alice Smith")

	ok, err := c.Bootstrap(context.Background(), "https://checkin.example.com/?uniqueId=A2&name=Bob")
	if err != nil || !ok {
		t.Fatalf("Bootstrap = %v, %v", ok, err)
	}
	if len(sheet.searches) != 1 || sheet.searches[0] != (Query{models.ByUniqueID, "A2"}) {
		t.Fatalf("searches = %+v", sheet.searches)
	}

	s := c.State()
	if !s.DeepLinked || s.ManualSearch() {
		t.Error("deep link should suppress manual search")
	}
	if len(s.Attendees) != 1 || s.Attendees[0].Name != "Tom Smith" {
		t.Errorf("attendees = %+v", s.Attendees)
	}

	c.TypeTerm("ali")
	if c.SetCriteria(models.ByName) {
		t.Error("criteria change should be refused in deep-link mode")
	}
	if s := c.State(); s.Term != "A2" || s.SuggestionsVisible {
		t.Errorf("manual input leaked into deep-link session: %+v", s)
	}

	if ok, _ := c.Bootstrap(context.Background(), "?email=alice%40example.com"); ok {
		t.Error("second bootstrap should not trigger a lookup")
	}
	if n := sheet.searchCount(); n != 1 {
		t.Errorf("searches = %d, want 1", n)
	}
}

func TestBootstrap_NoParameters(t *testing.T) {
	sheet := newFakeSheet(guestList()...)
	c := newTestCoordinator(sheet)

	ok, err := c.Bootstrap(context.Background(), "https://checkin.example.com/")
	if err != nil || ok {
		t.Fatalf("Bootstrap = %v, %v", ok, err)
	}
	if sheet.searchCount() != 0 {
		t.Error("no lookup expected")
	}
	if !c.State().ManualSearch() {
		t.Error("manual search should stay available")
	}
}
