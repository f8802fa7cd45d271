package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/taskpilot/internal/agent/core"
)

// stubRunner records RunTask calls and returns a canned report.
type stubRunner struct {
	report     core.TaskReport
	err        error
	gotTask    string
	gotRetries int
	calls      int
}

func (s *stubRunner) RunTask(ctx context.Context, task string, maxRetries int) (core.TaskReport, error) {
	s.calls++
	s.gotTask = task
	s.gotRetries = maxRetries
	return s.report, s.err
}

func newTestServer(runner *stubRunner) *httptest.Server {
	e := newEcho()
	th := &TaskHandler{Orch: runner, DefaultRetries: 3}
	th.Register(e)
	return httptest.NewServer(e)
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return resp, decoded
}

func TestRunTaskEndpoint(t *testing.T) {
	runner := &stubRunner{report: core.TaskReport{
		Task: "weather in Paris",
		Plan: core.Plan{Steps: []core.Step{{Tool: "weather.get_weather", Input: map[string]interface{}{"city": "Paris"}}}},
		Results: []core.StepResult{
			{Step: 1, Tool: "weather.get_weather", Output: map[string]interface{}{"city": "Paris"}, Success: true},
		},
		Verification: core.VerificationReport{Verified: true, Summary: "done"},
	}}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/run-task", `{"task": "weather in Paris"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if runner.gotTask != "weather in Paris" {
		t.Fatalf("runner saw task %q", runner.gotTask)
	}
	if runner.gotRetries != 3 {
		t.Fatalf("expected default retries 3, got %d", runner.gotRetries)
	}
	if body["task"] != "weather in Paris" {
		t.Fatalf("unexpected task in response: %v", body["task"])
	}
	verification, ok := body["verification"].(map[string]interface{})
	if !ok || verification["verified"] != true {
		t.Fatalf("unexpected verification block: %v", body["verification"])
	}
}

func TestRunTaskEndpointRetriesOverride(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/run-task", `{"task": "x", "max_retries": 0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if runner.gotRetries != 0 {
		t.Fatalf("expected retries override 0, got %d", runner.gotRetries)
	}
}

func TestRunTaskEndpointRejectsEmptyTask(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/run-task", `{"task": ""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if _, present := body["error"]; !present {
		t.Fatalf("expected error body, got %v", body)
	}
	if runner.calls != 0 {
		t.Fatalf("orchestrator must not run for empty task")
	}
}

func TestRunTaskEndpointRejectsNegativeRetries(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, _ := postJSON(t, srv.URL+"/run-task", `{"task": "x", "max_retries": -2}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if runner.calls != 0 {
		t.Fatalf("orchestrator must not run for invalid retries")
	}
}

func TestRunTaskEndpointEmptyPlan(t *testing.T) {
	runner := &stubRunner{err: core.ErrEmptyPlan}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/run-task", `{"task": "walk my dog"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	suggestions, ok := body["suggestions"].([]interface{})
	if !ok || len(suggestions) == 0 {
		t.Fatalf("expected planning suggestions, got %v", body)
	}
}

func TestRunTaskEndpointInternalError(t *testing.T) {
	runner := &stubRunner{err: errors.New("provider exploded")}
	srv := newTestServer(runner)
	defer srv.Close()

	resp, body := postJSON(t, srv.URL+"/run-task", `{"task": "x"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if _, present := body["error"]; !present {
		t.Fatalf("expected error body, got %v", body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubRunner{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "ok" || body["service"] != serviceName {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := newTestServer(&stubRunner{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["service"] != serviceName {
		t.Fatalf("unexpected root body: %v", body)
	}
}
