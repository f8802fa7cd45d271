package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/mohammad-safakhou/taskpilot/config"
)

// WeatherLookup implements city weather lookup against OpenWeatherMap.
type WeatherLookup struct {
	cfg    config.WeatherConfig
	http   *HTTPClient
	logger *log.Logger
}

func NewWeatherLookup(cfg config.WeatherConfig, httpc *HTTPClient, logger *log.Logger) *WeatherLookup {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openweathermap.org/data/2.5/weather"
	}
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	return &WeatherLookup{cfg: cfg, http: httpc, logger: logger}
}

func (w *WeatherLookup) Name() string { return "weather.get_weather" }

func (w *WeatherLookup) Description() string {
	return "Looks up current weather conditions for a city."
}

func (w *WeatherLookup) Parameters() map[string]string {
	return map[string]string{
		"city": "city name to look up (required)",
	}
}

func (w *WeatherLookup) Validate(input map[string]interface{}) error {
	c, ok := input["city"]
	if !ok {
		return fmt.Errorf("missing required parameter 'city'")
	}
	cs, ok := c.(string)
	if !ok {
		return fmt.Errorf("parameter 'city' must be a string, got %T", c)
	}
	if cs == "" {
		return fmt.Errorf("parameter 'city' cannot be empty")
	}
	return nil
}

// Invoke looks up the weather. A missing API key or a failed lookup becomes
// an `{"error": ...}` payload; the call never returns a Go error.
func (w *WeatherLookup) Invoke(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	city, _ := input["city"].(string)

	if w.cfg.APIKey == "" {
		return map[string]interface{}{"error": "weather API key not configured"}, nil
	}

	var resp struct {
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}

	u := fmt.Sprintf("%s?q=%s&appid=%s&units=%s", w.cfg.Endpoint, url.QueryEscape(city), w.cfg.APIKey, w.cfg.Units)
	if err := w.http.DoJSON(ctx, "GET", u, nil, nil, &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return map[string]interface{}{"error": fmt.Sprintf("City '%s' not found", city)}, nil
		}
		w.logger.Printf("weather lookup failed for %q: %v", city, err)
		return map[string]interface{}{"error": fmt.Sprintf("weather lookup failed: %v", err)}, nil
	}

	condition := ""
	if len(resp.Weather) > 0 {
		condition = resp.Weather[0].Description
	}
	return map[string]interface{}{
		"city":        city,
		"temperature": resp.Main.Temp,
		"condition":   condition,
		"humidity":    resp.Main.Humidity,
		"wind_speed":  resp.Wind.Speed,
	}, nil
}
