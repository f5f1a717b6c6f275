package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubLiveness struct{ live bool }

func (s *stubLiveness) IsLive(ctx context.Context) bool { return s.live }

func TestHealth_Live_ReportsHealthy(t *testing.T) {
	h := Health(&stubLiveness{live: true})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != healthHealthy {
		t.Errorf("status = %q, want %q", body.Status, healthHealthy)
	}
	if !body.DatabaseConnected {
		t.Error("expected database_connected = true")
	}
}

func TestHealth_NotLive_ReportsDegraded(t *testing.T) {
	h := Health(&stubLiveness{live: false})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (the process itself is up)", rec.Code)
	}

	var body healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Status != healthDegraded {
		t.Errorf("status = %q, want %q", body.Status, healthDegraded)
	}
	if body.DatabaseConnected {
		t.Error("expected database_connected = false")
	}
}
