// Package validation checks drafts and configuration locally using the validator/v10 library,
// so malformed payloads are rejected before any request reaches an instance.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" || name == "-" {
			return fld.Name
		}
		// Remove options like omitempty, omitzero
		if i := strings.IndexByte(name, ','); i >= 0 {
			return name[:i]
		}
		return name
	})

	// Placement fields are unexported, so the struct tag route cannot reach them.
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		d := sl.Current().Interface().(domain.PageDraft)
		if !d.Placement.Valid() {
			sl.ReportError(d.Placement, "book_id", "Placement", "placement", "")
		}
	}, domain.PageDraft{})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// formatError converts validator errors to domain errors.
// The message lists every failing field so it reads well in logs and CLI output.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "validate")
	}

	// Collect all field errors
	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[fieldPath(e)] = v.friendlyMessage(e)
	}

	fields := make([]string, 0, len(fieldErrors))
	for f := range fieldErrors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + fieldErrors[f]
	}

	return domainerrors.ValidationWithDetails("validation failed: "+strings.Join(parts, "; "), fieldErrors)
}

// fieldPath returns the dotted JSON path without the top-level struct name,
// e.g. "tags[0].name".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

//nolint:gocyclo // Switch statement covering validation tags is intentionally exhaustive.
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is absent", strings.ToLower(e.Param()))
	case "placement":
		return "must name a destination book"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "nefield":
		return "must differ from " + strings.ToLower(e.Param())
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}
