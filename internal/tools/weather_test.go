package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/taskpilot/config"
)

func TestWeatherLookupInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Paris" {
			t.Errorf("unexpected city: %q", q.Get("q"))
		}
		if q.Get("units") != "metric" {
			t.Errorf("unexpected units: %q", q.Get("units"))
		}
		if q.Get("appid") != "test-key" {
			t.Errorf("unexpected api key: %q", q.Get("appid"))
		}
		w.Write([]byte(`{
			"main": {"temp": 18.5, "humidity": 60},
			"weather": [{"description": "light rain"}],
			"wind": {"speed": 4.2}
		}`))
	}))
	defer srv.Close()

	tool := NewWeatherLookup(config.WeatherConfig{Endpoint: srv.URL, APIKey: "test-key"}, NewHTTPClient(0, 0, 0), testLogger())
	out, err := tool.Invoke(context.Background(), map[string]interface{}{"city": "Paris"})
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}

	report := out.(map[string]interface{})
	if report["city"] != "Paris" {
		t.Fatalf("unexpected city: %v", report["city"])
	}
	if report["temperature"] != 18.5 {
		t.Fatalf("unexpected temperature: %v", report["temperature"])
	}
	if report["condition"] != "light rain" {
		t.Fatalf("unexpected condition: %v", report["condition"])
	}
	if report["humidity"] != 60 {
		t.Fatalf("unexpected humidity: %v", report["humidity"])
	}
	if report["wind_speed"] != 4.2 {
		t.Fatalf("unexpected wind speed: %v", report["wind_speed"])
	}
}

func TestWeatherLookupCityNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod": "404", "message": "city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewWeatherLookup(config.WeatherConfig{Endpoint: srv.URL, APIKey: "test-key"}, NewHTTPClient(0, 0, 0), testLogger())
	out, err := tool.Invoke(context.Background(), map[string]interface{}{"city": "Atlantis"})
	if err != nil {
		t.Fatalf("404 must not return a Go error, got: %v", err)
	}

	payload := out.(map[string]interface{})
	if payload["error"] != "City 'Atlantis' not found" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestWeatherLookupMissingAPIKey(t *testing.T) {
	tool := NewWeatherLookup(config.WeatherConfig{}, NewHTTPClient(0, 0, 0), testLogger())
	out, err := tool.Invoke(context.Background(), map[string]interface{}{"city": "Paris"})
	if err != nil {
		t.Fatalf("missing key must not return a Go error, got: %v", err)
	}
	payload := out.(map[string]interface{})
	if payload["error"] != "weather API key not configured" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestWeatherLookupValidate(t *testing.T) {
	tool := NewWeatherLookup(config.WeatherConfig{}, NewHTTPClient(0, 0, 0), testLogger())

	if err := tool.Validate(map[string]interface{}{"city": "Oslo"}); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("expected error for missing city")
	}
	if err := tool.Validate(map[string]interface{}{"city": ""}); err == nil {
		t.Fatalf("expected error for empty city")
	}
	if err := tool.Validate(map[string]interface{}{"city": 12}); err == nil {
		t.Fatalf("expected error for non-string city")
	}
}
