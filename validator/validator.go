// Package validator checks deal records before they are written.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"dealsmap/models"
)

// ErrInvalidDeal wraps every validation failure returned by ValidateDeal.
var ErrInvalidDeal = errors.New("invalid deal")

var clockTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validator validates deals against their struct tags plus the "hhmm" rule
// for 24-hour clock times.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator. Failures are reported by JSON field name.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return clockTime.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// ValidateDeal returns nil for a deal that can be stored, or an error wrapping
// ErrInvalidDeal that lists each failing field and rule, e.g.
// `invalid deal "Pizza": latitude (latitude), day (oneof)`.
func (v *Validator) ValidateDeal(d models.Deal) error {
	err := v.validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate deal %q: %w", d.Title, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fieldPath(fe), fe.Tag()))
	}
	return fmt.Errorf("%w %q: %s", ErrInvalidDeal, d.Title, strings.Join(fields, ", "))
}

// fieldPath drops the struct name from the namespace, so nested hours read
// as operatingHours.friday.close.
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}
