package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	geocoding := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "Nowhere" {
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"name":      "Paris",
				"country":   "France",
				"latitude":  48.8566,
				"longitude": 2.3522,
			}},
		})
	}))
	t.Cleanup(geocoding.Close)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "48.8566", r.URL.Query().Get("latitude"))

		payload := map[string]any{
			"current_weather": map[string]any{
				"temperature": 21.5,
				"windspeed":   12.3,
				"weathercode": 2,
				"time":        "2026-08-24T12:00",
			},
		}
		if r.URL.Query().Get("daily") != "" {
			payload["daily"] = map[string]any{
				"time":               []string{"2026-08-24", "2026-08-25"},
				"temperature_2m_max": []float64{24.0, 19.5},
				"temperature_2m_min": []float64{15.0, 12.1},
				"weathercode":        []int{0, 61},
			}
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(forecast.Close)

	return NewClient(func(o *Options) {
		o.GeocodingURL = geocoding.URL
		o.ForecastURL = forecast.URL
	})
}

func TestClientCurrent(t *testing.T) {
	client := newTestClient(t)

	data, err := client.Current(context.Background(), "Paris")
	require.NoError(t, err)

	assert.Equal(t, "Paris, France", data["location"])
	assert.Equal(t, 21.5, data["temperature_c"])
	assert.Equal(t, "Partly Cloudy", data["condition"])
}

func TestClientForecast(t *testing.T) {
	client := newTestClient(t)

	data, err := client.Forecast(context.Background(), "Paris", 2)
	require.NoError(t, err)

	daily, ok := data["daily"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, daily, 2)
	assert.Equal(t, "Clear", daily[0]["condition"])
	assert.Equal(t, "Rain", daily[1]["condition"])
}

func TestClientUnknownLocation(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Current(context.Background(), "Nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown location")
}

func TestCurrentToolValidatesLocation(t *testing.T) {
	tool := CurrentTool(newTestClient(t))

	_, err := tool.Call(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestForecastToolDefaultsDays(t *testing.T) {
	tool := ForecastTool(newTestClient(t))

	data, err := tool.Call(context.Background(), map[string]any{"location": "Paris"})
	require.NoError(t, err)

	payload, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Paris, France", payload["location"])
}

func TestConditionMapping(t *testing.T) {
	assert.Equal(t, "Clear", condition(0))
	assert.Equal(t, "Fog", condition(45))
	assert.Equal(t, "Rain", condition(63))
	assert.Equal(t, "Snow", condition(73))
	assert.Equal(t, "Thunderstorm", condition(95))
}
