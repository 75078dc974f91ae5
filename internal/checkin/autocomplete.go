package checkin

import (
	"strings"

	"golang.org/x/text/cases"
)

// Suggest returns every name containing input as a case-insensitive
// substring, in the order of names. Blank input yields nil.
func Suggest(names []string, input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	fold := cases.Fold()
	needle := fold.String(input)

	var out []string
	for _, name := range names {
		if strings.Contains(fold.String(name), needle) {
			out = append(out, name)
		}
	}
	return out
}

// autocomplete tracks the suggestion list for name searches.
type autocomplete struct {
	suggestions []string
	visible     bool
}

func (a *autocomplete) update(names []string, input string) {
	if strings.TrimSpace(input) == "" {
		a.hide()
		return
	}
	a.suggestions = Suggest(names, input)
	a.visible = true
}

func (a *autocomplete) hide() {
	a.visible = false
	a.suggestions = nil
}
