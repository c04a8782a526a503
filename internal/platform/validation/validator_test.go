package validation

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type doctorForm struct {
	Name  string   `json:"name" validate:"required"`
	Email string   `json:"email" validate:"required,email"`
	Times []string `json:"available_times" validate:"dive,slot"`
	Role  string   `json:"role" validate:"omitempty,oneof=patient doctor admin"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&doctorForm{Name: "Dr. A", Email: "a@clinic.test", Times: []string{"09:00", "13:30"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	v := New()
	err := v.Validate(&doctorForm{Email: "nope", Times: []string{"09:15"}, Role: "nurse"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
	msg, _ := httpErr.Message.(string)
	for _, want := range []string{"name is required", "email must be a valid email", "available_times[0] must be a half-hour", "role must be one of"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestIsSlotLabel(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"09:00", true},
		{"17:30", true},
		{"00:00", true},
		{"9:00", false},
		{"09:15", false},
		{"24:00", false},
		{"noon", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSlotLabel(tt.in); got != tt.want {
			t.Errorf("IsSlotLabel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
