// Package recommend assembles weather-appropriate outfit suggestions from a
// user's wardrobe. It is a small randomized heuristic: it keeps no state
// between calls and makes no attempt at optimal combinations.
package recommend

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"stylemateapi/apperr"
)

const (
	// Attempts is the number of assembly rounds per request. Rejected rounds
	// are not retried, so fewer candidates may come back.
	Attempts = 4
	// MinItems is the smallest accepted outfit.
	MinItems = 2

	coldBelow = 15.0
	hotAbove  = 25.0
)

// Categories in the order items appear inside a candidate.
var Categories = []string{"tops", "bottoms", "outerwear"}

var categoryRank = map[string]int{"tops": 0, "bottoms": 1, "outerwear": 2}

var (
	ErrEmptyWardrobe   = apperr.New(apperr.KindNotFound, "No items found in wardrobe")
	ErrNoViableOutfits = apperr.New(apperr.KindNotFound, "Could not generate outfit recommendations with current wardrobe")
)

type Weather struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
}

// Preferences are carried with the request but do not currently influence
// which items pass the filter.
type Preferences struct {
	MinTemperature      float64  `json:"min_temperature"`
	MaxTemperature      float64  `json:"max_temperature"`
	PreferredConditions []string `json:"preferred_conditions"`
}

func DefaultPreferences() Preferences {
	return Preferences{MinTemperature: 15, MaxTemperature: 25, PreferredConditions: []string{"sunny", "cloudy"}}
}

type Item struct {
	ID       uint
	Name     string
	Category string
	ImageURL *string
}

type ItemSummary struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	ImageURL     *string `json:"image_url"`
	CategoryName string  `json:"category_name"`
}

type CandidateOutfit struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Items       []ItemSummary `json:"items"`
	Weather     string        `json:"weather"`
	Temperature float64       `json:"temperature"`
	Rating      int           `json:"rating"`
}

// Engine is safe for concurrent use as long as Rand is.
type Engine struct {
	// Rand returns a value in [0, n). Defaults to math/rand/v2.IntN.
	Rand func(n int) int
	Now  func() time.Time
}

func New() *Engine {
	return &Engine{Rand: rand.IntN, Now: time.Now}
}

// IsAppropriate applies the temperature and condition rules to the
// lower-cased item name. Temperature takes precedence over condition.
func IsAppropriate(item Item, w Weather) bool {
	name := strings.ToLower(item.Name)
	switch {
	case w.Temperature < coldBelow:
		return strings.Contains(name, "sweater") || strings.Contains(name, "jacket") || strings.Contains(name, "coat")
	case w.Temperature > hotAbove:
		return strings.Contains(name, "t-shirt") || strings.Contains(name, "shorts") || !strings.Contains(name, "sweater")
	case w.Condition == "rainy":
		return strings.Contains(name, "rain") || strings.Contains(name, "waterproof")
	default:
		return true
	}
}

// Recommend returns between zero and Attempts candidates. Each item is used
// by at most one candidate.
func (e *Engine) Recommend(items []Item, w Weather, prefs *Preferences) ([]CandidateOutfit, error) {
	if len(items) == 0 {
		return nil, ErrEmptyWardrobe
	}
	if prefs == nil {
		p := DefaultPreferences()
		prefs = &p
	}

	used := make(map[uint]bool, len(items))
	stamp := e.now().UnixMilli()
	var out []CandidateOutfit

	for i := 0; i < Attempts; i++ {
		var picked []Item
		for _, category := range Categories {
			pool := e.eligible(items, category, w, used)
			if len(pool) == 0 {
				continue
			}
			choice := pool[e.intn(len(pool))]
			used[choice.ID] = true
			picked = append(picked, choice)
		}
		if len(picked) < MinItems {
			continue
		}
		sort.SliceStable(picked, func(a, b int) bool {
			return rank(picked[a].Category) < rank(picked[b].Category)
		})

		summaries := make([]ItemSummary, 0, len(picked))
		for _, it := range picked {
			summaries = append(summaries, ItemSummary{
				ID:           it.ID,
				Name:         it.Name,
				ImageURL:     it.ImageURL,
				CategoryName: it.Category,
			})
		}
		out = append(out, CandidateOutfit{
			ID:          CandidateID(stamp, i),
			Name:        fmt.Sprintf("Weather-Appropriate Outfit %d", i+1),
			Description: fmt.Sprintf("Perfect for %s weather at %s°C", w.Condition, formatTemp(w.Temperature)),
			Items:       summaries,
			Weather:     w.Condition,
			Temperature: w.Temperature,
			Rating:      e.intn(5) + 1,
		})
	}

	if len(out) == 0 {
		return nil, ErrNoViableOutfits
	}
	return out, nil
}

func (e *Engine) eligible(items []Item, category string, w Weather, used map[uint]bool) []Item {
	var pool []Item
	for _, it := range items {
		if strings.ToLower(it.Category) != category || used[it.ID] {
			continue
		}
		if IsAppropriate(it, w) {
			pool = append(pool, it)
		}
	}
	return pool
}

func (e *Engine) intn(n int) int {
	if e.Rand == nil {
		return rand.IntN(n)
	}
	return e.Rand(n)
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func rank(category string) int {
	if r, ok := categoryRank[strings.ToLower(category)]; ok {
		return r
	}
	return len(categoryRank)
}

// CandidateID builds the synthetic id for the i-th candidate of a request.
func CandidateID(stampMillis int64, i int) string {
	return fmt.Sprintf("rec_%d_%d", stampMillis, i)
}

// formatTemp prints the temperature as given, without rounding.
func formatTemp(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}
