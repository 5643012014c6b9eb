package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load consultation: %w", ErrNotFound), http.StatusNotFound},
		{"validation", Validation("patient not found"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", Validation("invalid date")), http.StatusBadRequest},
		{"persistence", Persistence("insert patient", errors.New("duplicate key")), http.StatusInternalServerError},
		{"storage", StorageIO("download", errors.New("boom")), http.StatusInternalServerError},
		{"echo http error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPersistence_KeepsCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := Persistence("insert patient", cause)
	if !errors.Is(err, ErrPersistence) {
		t.Error("expected ErrPersistence classification")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be preserved")
	}
	if Persistence("noop", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestHTTPErrorHandler_HidesServerErrorDetail(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-1")

	h := HTTPErrorHandler(zerolog.Nop())
	h(Persistence("insert patient", errors.New("secret constraint name")), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret constraint name") {
		t.Error("expected cause to be hidden from the response body")
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RequestID != "rid-1" {
		t.Errorf("expected request id rid-1, got %q", body.RequestID)
	}
}

func TestHTTPErrorHandler_ValidationMessage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/consultations", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.Nop())(Validation("invalid date"), c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid date") {
		t.Errorf("expected validation message in body, got %s", rec.Body.String())
	}
}
