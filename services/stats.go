package services

import (
	"sort"
	"strings"

	"stylemateapi/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tally counts labels case-insensitively and reports them title-cased,
// most frequent first.
type Tally struct {
	counts map[string]int
}

func NewTally() *Tally {
	return &Tally{counts: map[string]int{}}
}

// Add counts label, or fallback when label is blank.
func (t *Tally) Add(label string, fallback string) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		label = fallback
	}
	t.counts[label]++
}

func (t *Tally) Entries() []models.CountEntry {
	caser := cases.Title(language.English)
	entries := make([]models.CountEntry, 0, len(t.counts))
	for name, count := range t.counts {
		entries = append(entries, models.CountEntry{Name: caser.String(name), Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
