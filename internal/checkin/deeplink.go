package checkin

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/skip2/go-qrcode"

	"wedding-checkin/internal/models"
)

// Query is an active search: the criteria and the term searched for.
type Query struct {
	Criteria models.SearchCriteria
	Term     string
}

// deepLinkOrder is the precedence of deep-link parameters, highest first.
var deepLinkOrder = []models.SearchCriteria{models.ByUniqueID, models.ByName, models.ByEmail}

// ParseDeepLink picks the search addressed by a link's query parameters.
// The first non-empty parameter in deepLinkOrder wins; the rest are ignored.
func ParseDeepLink(params url.Values) (Query, bool) {
	for _, c := range deepLinkOrder {
		if v := params.Get(string(c)); v != "" {
			return Query{Criteria: c, Term: v}, true
		}
	}
	return Query{}, false
}

// ParseDeepLinkURL is ParseDeepLink over a full URL or a bare query string.
func ParseDeepLinkURL(raw string) (Query, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, false, nil
	}
	if strings.HasPrefix(raw, "?") {
		params, err := url.ParseQuery(raw[1:])
		if err != nil {
			return Query{}, false, fmt.Errorf("parse deep link query: %w", err)
		}
		q, ok := ParseDeepLink(params)
		return q, ok, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Query{}, false, fmt.Errorf("parse deep link: %w", err)
	}
	q, ok := ParseDeepLink(u.Query())
	return q, ok, nil
}

// BuildDeepLink returns base with the single parameter addressing q.
func BuildDeepLink(base string, q Query) (string, error) {
	if !q.Criteria.Valid() {
		return "", fmt.Errorf("unknown search criteria %q", q.Criteria)
	}
	if strings.TrimSpace(q.Term) == "" {
		return "", fmt.Errorf("deep link needs a %s", q.Criteria.Label())
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse deep link base: %w", err)
	}
	params := url.Values{}
	params.Set(string(q.Criteria), q.Term)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// WriteDeepLinkQR writes a PNG QR code encoding link to path.
func WriteDeepLinkQR(path, link string, size int) error {
	if size <= 0 {
		size = 256
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := qrcode.WriteFile(link, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	return nil
}
