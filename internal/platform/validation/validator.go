// Package validation adapts go-playground/validator to echo's Validator
// interface and registers the clinic's custom tags.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// "slot" accepts an HH:MM label on a half-hour boundary.
	_ = v.RegisterValidation("slot", func(fl validator.FieldLevel) bool {
		return IsSlotLabel(fl.Field().String())
	})
	return &Validator{v: v}
}

// IsSlotLabel reports whether s is a 24h "HH:MM" label at :00 or :30.
func IsSlotLabel(s string) bool {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return false
	}
	return t.Minute() == 0 || t.Minute() == 30
}

// Validate implements echo.Validator. Failures are returned as a 400
// echo.HTTPError listing each offending field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return echo.NewHTTPError(http.StatusBadRequest, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "slot":
		return fmt.Sprintf("%s must be a half-hour HH:MM label", field)
	}
	return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
}
