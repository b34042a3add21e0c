package tui

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/eventdesk/internal/database/repository"
)

// filterEvents keeps events whose name or location contains query, or has a
// word within a small edit distance of each query word.
func filterEvents(events []repository.Event, query string) []repository.Event {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return events
	}
	var out []repository.Event
	for _, ev := range events {
		if matchesAll(strings.ToLower(ev.Name+" "+ev.Location), terms) {
			out = append(out, ev)
		}
	}
	return out
}

func matchesAll(text string, terms []string) bool {
	words := strings.Fields(text)
	for _, term := range terms {
		if !strings.Contains(text, term) && !fuzzyWord(words, term) {
			return false
		}
	}
	return true
}

func fuzzyWord(words []string, term string) bool {
	if len(term) < 3 {
		return false
	}
	tolerance := 1
	if len(term) >= 6 {
		tolerance = 2
	}
	for _, w := range words {
		if levenshtein.ComputeDistance(w, term) <= tolerance {
			return true
		}
	}
	return false
}
