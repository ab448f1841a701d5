package weather

import (
	"context"
	"regexp"
	"strings"
	"time"

	"stylemateapi/apperr"
	"stylemateapi/recommend"
)

// Provider looks up current conditions and a short forecast for a city.
type Provider interface {
	Current(ctx context.Context, city string) (*Report, error)
	Forecast(ctx context.Context, city string) (*Forecast, error)
}

type Report struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
}

// Snapshot reduces a report to what the recommendation engine consumes.
func (r *Report) Snapshot() recommend.Weather {
	return recommend.Weather{Temperature: r.Temperature, Condition: r.Condition}
}

type ForecastEntry struct {
	Date        time.Time `json:"date"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Humidity    int       `json:"humidity"`
	Description string    `json:"description"`
	Condition   string    `json:"condition"`
	Icon        string    `json:"icon"`
	WindSpeed   float64   `json:"wind_speed"`
}

type Forecast struct {
	City    string          `json:"city"`
	Country string          `json:"country"`
	List    []ForecastEntry `json:"list"`
}

// Fixed always reports the same conditions. It stands in for a live
// provider when none is configured.
type Fixed struct {
	Temperature float64
	Condition   string
}

func (f Fixed) Current(ctx context.Context, city string) (*Report, error) {
	return &Report{
		Temperature: f.Temperature,
		FeelsLike:   f.Temperature,
		Description: f.Condition,
		Condition:   f.Condition,
		City:        city,
	}, nil
}

func (f Fixed) Forecast(ctx context.Context, city string) (*Forecast, error) {
	return nil, apperr.New(apperr.KindDependency, "Weather forecast is not configured")
}

// NormalizeCondition maps an OpenWeather "main" group onto the condition
// vocabulary used by the rest of the service.
func NormalizeCondition(main string) string {
	switch strings.ToLower(main) {
	case "clear":
		return "sunny"
	case "clouds":
		return "cloudy"
	case "rain", "drizzle":
		return "rainy"
	case "thunderstorm":
		return "stormy"
	case "snow":
		return "snowy"
	case "mist", "fog", "haze", "smoke", "dust", "sand", "ash":
		return "foggy"
	case "squall", "tornado":
		return "windy"
	default:
		return "cloudy"
	}
}

var (
	nonAlnum       = regexp.MustCompile(`[^a-z0-9\s]`)
	spaces         = regexp.MustCompile(`\s+`)
	adminDivisions = regexp.MustCompile(`\b(ward|district|county)\b`)
)

// CleanCity lower-cases the name, drops punctuation and administrative
// suffixes such as "ward" or "county", and collapses whitespace.
func CleanCity(city string) string {
	c := strings.ToLower(strings.TrimSpace(city))
	c = nonAlnum.ReplaceAllString(c, "")
	c = adminDivisions.ReplaceAllString(c, "")
	c = spaces.ReplaceAllString(c, " ")
	return strings.TrimSpace(c)
}

type coordinates struct {
	Lat float64
	Lon float64
}

// knownLocations resolves places the upstream API does not find by name.
var knownLocations = map[string]coordinates{
	"kabete": {Lat: -1.25, Lon: 36.75},
}
