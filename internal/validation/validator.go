// Package validation checks decoded request bodies using validator/v10.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrSnakeDoc/bookboard/internal/domain"
)

// Error lists the fields that failed validation, keyed by their JSON name.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Validator wraps go-playground/validator with the bookboard rules.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the catalog tags registered:
// colortheme, plant, sortmode and viewmode.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	must(v.RegisterValidation("colortheme", func(fl validator.FieldLevel) bool {
		return domain.IsColorTheme(fl.Field().String())
	}))
	must(v.RegisterValidation("plant", func(fl validator.FieldLevel) bool {
		return domain.IsPlant(fl.Field().String())
	}))
	must(v.RegisterValidation("sortmode", func(fl validator.FieldLevel) bool {
		return domain.SortMode(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("viewmode", func(fl validator.FieldLevel) bool {
		return domain.ViewMode(fl.Field().String()).Valid()
	}))

	return &Validator{v: v}
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
}

// Validate validates a struct and returns an *Error for field failures.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return &Error{Fields: fields}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not exceed %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "colortheme":
		return "must be a known color theme"
	case "plant":
		return "must be a known plant"
	case "sortmode":
		return "must be one of: newest-first oldest-first highest-rated-first lowest-rated-first"
	case "viewmode":
		return "must be one of: unread read"
	default:
		return "is invalid"
	}
}
