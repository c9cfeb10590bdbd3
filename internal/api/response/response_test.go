package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]int{"recipes": 3})

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	var body struct {
		Data map[string]int `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Data["recipes"] != 3 {
		t.Errorf("Expected recipes 3, got %v", body.Data)
	}
}

func TestJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for an unencodable body, got %d", rec.Code)
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name  string
		write func(http.ResponseWriter, error)
		code  int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"not found", NotFound, http.StatusNotFound},
		{"internal", InternalError, http.StatusInternalServerError},
		{"bad gateway", BadGateway, http.StatusBadGateway},
		{"unavailable", ServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec, errors.New("boom"))

			if rec.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, rec.Code)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body.Code != tt.code || body.Message != "boom" || body.Error != http.StatusText(tt.code) {
				t.Errorf("Unexpected error body %+v", body)
			}
		})
	}
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	Attachment(rec, "text/csv", "profits.csv", []byte("rank\n1\n"))

	if rec.Header().Get("Content-Type") != "text/csv" {
		t.Errorf("Unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="profits.csv"` {
		t.Errorf("Unexpected disposition %q", got)
	}
	if rec.Body.String() != "rank\n1\n" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}

func TestHTML(t *testing.T) {
	rec := httptest.NewRecorder()
	HTML(rec, []byte("<p>ok</p>"))

	if rec.Header().Get("Content-Type") != "text/html; charset=utf-8" {
		t.Errorf("Unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "<p>ok</p>" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
}
