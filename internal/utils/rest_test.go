package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := RespondWithJSON(rec, http.StatusCreated, map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("RespondWithJSON() error = %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, http.StatusUnauthorized, "Invalid API key")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Error != "Invalid API key" {
		t.Errorf("error = %q, want Invalid API key", body.Error)
	}
	if body.Details != nil {
		t.Errorf("details = %v, want omitted", body.Details)
	}
}

func TestRespondWithErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithErrorDetails(rec, http.StatusPaymentRequired, "Insufficient credits", map[string]any{
		"credits_required":  5,
		"credits_available": 2,
	})

	if rec.Code != http.StatusPaymentRequired {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusPaymentRequired)
	}

	var body struct {
		Error   string         `json:"error"`
		Details map[string]int `json:"details"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if body.Details["credits_required"] != 5 || body.Details["credits_available"] != 2 {
		t.Errorf("details = %v, want required 5 available 2", body.Details)
	}
}
