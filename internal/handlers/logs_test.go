package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"climate_guard/internal/models"
	"climate_guard/internal/service"
)

func TestGetLogs_NoFilters(t *testing.T) {
	el := &mockEventLog{resp: []models.GuardEvent{
		{EventID: "1", DeviceID: "dev1", Type: "START"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: el})

	w := doRequest(r, http.MethodGet, "/api/v1/logs", nil, authHeader("tok"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["count"] != float64(1) {
		t.Fatalf("unexpected count: %v", body["count"])
	}
	if !el.lastFilter.From.IsZero() || !el.lastFilter.To.IsZero() {
		t.Fatalf("expected zero bounds, got %+v", el.lastFilter)
	}
}

func TestGetLogs_FullFilter(t *testing.T) {
	el := &mockEventLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: el})

	w := doRequest(r, http.MethodGet,
		"/api/v1/logs?device=dev1&from=2026-08-01T00:00:00Z&to=2026-08-02T00:00:00Z&type=start",
		nil, authHeader("tok"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	f := el.lastFilter
	if f.DeviceID != "dev1" {
		t.Errorf("device = %q", f.DeviceID)
	}
	if f.Type != "START" {
		t.Errorf("type should be upper-cased, got %q", f.Type)
	}
	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !f.From.Equal(wantFrom) {
		t.Errorf("from = %v, want %v", f.From, wantFrom)
	}
}

func TestGetLogs_DateOnlyToIsEndOfDay(t *testing.T) {
	el := &mockEventLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: el})

	w := doRequest(r, http.MethodGet, "/api/v1/logs?to=2026-08-31", nil, authHeader("tok"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	endOfDay := time.Date(2026, 8, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !el.lastFilter.To.Equal(endOfDay) {
		t.Errorf("to = %v, want end of day %v", el.lastFilter.To, endOfDay)
	}
}

func TestGetLogs_InvalidFrom(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: &mockEventLog{}})

	w := doRequest(r, http.MethodGet, "/api/v1/logs?from=yesterday", nil, authHeader("tok"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetLogs_FromAfterTo(t *testing.T) {
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: &mockEventLog{}})

	w := doRequest(r, http.MethodGet,
		"/api/v1/logs?from=2026-08-02&to=2026-08-01", nil, authHeader("tok"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetLogs_ServiceError(t *testing.T) {
	el := &mockEventLog{err: errors.New("db down")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: el})

	w := doRequest(r, http.MethodGet, "/api/v1/logs", nil, authHeader("tok"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func Test_parseQueryTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-08-25T15:04:05Z", time.Date(2026, 8, 25, 15, 4, 5, 0, time.UTC), false},
		{"2026-08-25 15:04:05", time.Date(2026, 8, 25, 15, 4, 5, 0, time.UTC), false},
		{"2026-08-25", time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), false},
		{"25/08/2026", time.Time{}, true},
		{"", time.Time{}, true},
	}
	for _, tc := range tests {
		got, err := parseQueryTime(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseQueryTime(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && !got.Equal(tc.want) {
			t.Errorf("parseQueryTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
