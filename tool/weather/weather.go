// Package weather exposes weather lookup tools backed by the Open-Meteo API
// (geocoding + forecast). No API key is required.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/meteolab/skycast/tool"
)

const (
	defaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
	defaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
)

// Options configure the weather client.
type Options struct {
	HTTPClient   *http.Client
	ForecastURL  string
	GeocodingURL string
}

// Client resolves locations and fetches weather data from Open-Meteo.
type Client struct {
	httpClient   *http.Client
	forecastURL  string
	geocodingURL string
}

// NewClient constructs a weather client with sensible defaults.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		ForecastURL:  defaultForecastURL,
		GeocodingURL: defaultGeocodingURL,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		httpClient:   opts.HTTPClient,
		forecastURL:  opts.ForecastURL,
		geocodingURL: opts.GeocodingURL,
	}
}

type place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type geocodeResponse struct {
	Results []place `json:"results"`
}

type forecastResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
		Time        string  `json:"time"`
	} `json:"current_weather"`
	Daily struct {
		Time           []string  `json:"time"`
		TemperatureMax []float64 `json:"temperature_2m_max"`
		TemperatureMin []float64 `json:"temperature_2m_min"`
		WeatherCode    []int     `json:"weathercode"`
	} `json:"daily"`
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// geocode resolves a free-form location string to coordinates.
func (c *Client) geocode(ctx context.Context, location string) (place, error) {
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")

	var res geocodeResponse
	if err := c.getJSON(ctx, c.geocodingURL+"?"+q.Encode(), &res); err != nil {
		return place{}, fmt.Errorf("geocoding failed: %w", err)
	}
	if len(res.Results) == 0 {
		return place{}, fmt.Errorf("unknown location %q", location)
	}
	return res.Results[0], nil
}

// Current returns the current weather for a location.
func (c *Client) Current(ctx context.Context, location string) (map[string]any, error) {
	p, err := c.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", p.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", p.Longitude))
	q.Set("current_weather", "true")

	var res forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &res); err != nil {
		return nil, fmt.Errorf("forecast lookup failed: %w", err)
	}

	return map[string]any{
		"location":      fmt.Sprintf("%s, %s", p.Name, p.Country),
		"temperature_c": res.CurrentWeather.Temperature,
		"wind_kph":      res.CurrentWeather.WindSpeed,
		"condition":     condition(res.CurrentWeather.WeatherCode),
		"observed_at":   res.CurrentWeather.Time,
	}, nil
}

// Forecast returns a daily forecast for a location over the given number of days.
func (c *Client) Forecast(ctx context.Context, location string, days int) (map[string]any, error) {
	if days < 1 {
		days = 1
	}
	if days > 7 {
		days = 7
	}

	p, err := c.geocode(ctx, location)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", p.Latitude))
	q.Set("longitude", fmt.Sprintf("%.4f", p.Longitude))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,weathercode")
	q.Set("forecast_days", fmt.Sprintf("%d", days))
	q.Set("timezone", "auto")

	var res forecastResponse
	if err := c.getJSON(ctx, c.forecastURL+"?"+q.Encode(), &res); err != nil {
		return nil, fmt.Errorf("forecast lookup failed: %w", err)
	}

	daily := make([]map[string]any, 0, len(res.Daily.Time))
	for i, day := range res.Daily.Time {
		entry := map[string]any{"date": day}
		if i < len(res.Daily.TemperatureMax) {
			entry["temperature_max_c"] = res.Daily.TemperatureMax[i]
		}
		if i < len(res.Daily.TemperatureMin) {
			entry["temperature_min_c"] = res.Daily.TemperatureMin[i]
		}
		if i < len(res.Daily.WeatherCode) {
			entry["condition"] = condition(res.Daily.WeatherCode[i])
		}
		daily = append(daily, entry)
	}

	return map[string]any{
		"location": fmt.Sprintf("%s, %s", p.Name, p.Country),
		"daily":    daily,
	}, nil
}

// condition maps WMO weather interpretation codes to a short description.
func condition(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code <= 3:
		return "Partly Cloudy"
	case code <= 48:
		return "Fog"
	case code <= 57:
		return "Drizzle"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Rain Showers"
	case code <= 86:
		return "Snow Showers"
	default:
		return "Thunderstorm"
	}
}

// CurrentTool exposes Client.Current as the get_current_weather tool.
func CurrentTool(c *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_current_weather",
		"Get the current weather conditions for a location",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City name, e.g. 'Paris' or 'Berlin, DE'",
				},
			},
			"required": []string{"location"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			location, _ := args["location"].(string)
			if location == "" {
				return nil, tool.NewToolError("get_current_weather", "location is required", "VALIDATION_ERROR")
			}
			return c.Current(ctx, location)
		},
	)
}

// ForecastTool exposes Client.Forecast as the get_forecast tool.
func ForecastTool(c *Client) tool.Tool {
	return tool.NewFunctionTool(
		"get_forecast",
		"Get a daily weather forecast for a location, up to 7 days ahead",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{
					"type":        "string",
					"description": "City name, e.g. 'Paris' or 'Berlin, DE'",
				},
				"days": map[string]any{
					"type":        "integer",
					"description": "Number of days to forecast (1-7)",
				},
			},
			"required": []string{"location"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			location, _ := args["location"].(string)
			if location == "" {
				return nil, tool.NewToolError("get_forecast", "location is required", "VALIDATION_ERROR")
			}
			days := 3
			if d, ok := args["days"].(float64); ok {
				days = int(d)
			}
			return c.Forecast(ctx, location, days)
		},
	)
}

// Tools returns the full weather toolkit for a client.
func Tools(c *Client) []tool.Tool {
	return []tool.Tool{CurrentTool(c), ForecastTool(c)}
}
