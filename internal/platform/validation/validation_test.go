package validation

import (
	"strings"
	"testing"

	"github.com/medconsult/medconsult/internal/platform/apperr"
)

type sample struct {
	Name  string `json:"name" validate:"required,max=5"`
	Age   int    `json:"age" validate:"min=1,max=120"`
	Email string `json:"email" validate:"required,email"`
	Time  string `form:"time" validate:"required,datetime=15:04"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&sample{Name: "Ann", Age: 30, Email: "ann@example.com", Time: "09:30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	v := New()
	err := v.Validate(&sample{Name: "Annabelle", Age: 0, Email: "nope", Time: "9am"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !apperr.IsValidation(err) {
		t.Fatalf("expected *apperr.ValidationError, got %T", err)
	}

	msg := err.Error()
	for _, want := range []string{"name must be at most 5", "age must be at least 1", "email must be a valid email", "time must match 15:04"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}
