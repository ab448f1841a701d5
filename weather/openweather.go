package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stylemateapi/apperr"
	"stylemateapi/config"
)

var errCityNotFound = errors.New("city not found")

// OpenWeatherClient talks to the OpenWeather REST API.
type OpenWeatherClient struct {
	BaseURL     string
	APIKey      string
	CountryCode string
	HTTPClient  *http.Client
}

func NewOpenWeatherClient(cfg config.WeatherConfig) *OpenWeatherClient {
	return &OpenWeatherClient{
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:      cfg.APIKey,
		CountryCode: cfg.CountryCode,
		HTTPClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type owCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
}

type owWind struct {
	Speed float64 `json:"speed"`
}

type owCurrent struct {
	Name    string        `json:"name"`
	Main    owMain        `json:"main"`
	Weather []owCondition `json:"weather"`
	Wind    owWind        `json:"wind"`
	Sys     struct {
		Country string `json:"country"`
	} `json:"sys"`
}

type owForecast struct {
	List []struct {
		Dt      int64         `json:"dt"`
		Main    owMain        `json:"main"`
		Weather []owCondition `json:"weather"`
		Wind    owWind        `json:"wind"`
	} `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

func (c *OpenWeatherClient) Current(ctx context.Context, city string) (*Report, error) {
	var body owCurrent
	if err := c.lookup(ctx, "/data/2.5/weather", city, &body); err != nil {
		return nil, err
	}
	report := &Report{
		Temperature: body.Main.Temp,
		FeelsLike:   body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		WindSpeed:   body.Wind.Speed,
		City:        body.Name,
		Country:     body.Sys.Country,
		Condition:   NormalizeCondition(""),
	}
	if len(body.Weather) > 0 {
		report.Description = body.Weather[0].Description
		report.Icon = body.Weather[0].Icon
		report.Condition = NormalizeCondition(body.Weather[0].Main)
	}
	return report, nil
}

func (c *OpenWeatherClient) Forecast(ctx context.Context, city string) (*Forecast, error) {
	var body owForecast
	if err := c.lookup(ctx, "/data/2.5/forecast", city, &body); err != nil {
		return nil, err
	}
	forecast := &Forecast{
		City:    body.City.Name,
		Country: body.City.Country,
		List:    make([]ForecastEntry, 0, len(body.List)),
	}
	for _, entry := range body.List {
		fe := ForecastEntry{
			Date:        time.Unix(entry.Dt, 0).UTC(),
			Temperature: entry.Main.Temp,
			FeelsLike:   entry.Main.FeelsLike,
			Humidity:    entry.Main.Humidity,
			WindSpeed:   entry.Wind.Speed,
			Condition:   NormalizeCondition(""),
		}
		if len(entry.Weather) > 0 {
			fe.Description = entry.Weather[0].Description
			fe.Icon = entry.Weather[0].Icon
			fe.Condition = NormalizeCondition(entry.Weather[0].Main)
		}
		forecast.List = append(forecast.List, fe)
	}
	return forecast, nil
}

// lookup resolves the city (known coordinates first, then the cleaned name
// scoped to the country) and falls back to the name as given when the
// cleaned one is unknown upstream.
func (c *OpenWeatherClient) lookup(ctx context.Context, path, city string, out any) error {
	city = strings.TrimSpace(city)
	if city == "" {
		return apperr.UserInput("City name is required")
	}
	if c.APIKey == "" {
		return apperr.New(apperr.KindDependency, "Weather API key is not configured")
	}

	cleaned := CleanCity(city)
	params := url.Values{}
	if loc, ok := knownLocations[cleaned]; ok {
		params.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	} else if c.CountryCode != "" {
		params.Set("q", cleaned+","+c.CountryCode)
	} else {
		params.Set("q", cleaned)
	}

	err := c.get(ctx, path, params, out)
	if errors.Is(err, errCityNotFound) && params.Has("q") && city != cleaned {
		retry := url.Values{}
		retry.Set("q", city)
		err = c.get(ctx, path, retry, out)
	}
	if errors.Is(err, errCityNotFound) {
		return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("City %q not found", city), err)
	}
	return err
}

func (c *OpenWeatherClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("appid", c.APIKey)
	params.Set("units", "metric")
	endpoint := c.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return apperr.Dependency("Weather service unavailable", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return errCityNotFound
	case http.StatusUnauthorized:
		return apperr.New(apperr.KindDependency, "Invalid weather API key")
	case http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, "Too many weather requests, please try again later")
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Dependency("Weather service unavailable",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Dependency("Weather service returned an invalid response", err)
	}
	return nil
}

func (c *OpenWeatherClient) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}
