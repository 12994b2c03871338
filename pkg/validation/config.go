package validation

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// FieldError is one rejected config value, addressed by its dotted path
// (for example "Config.Store.S3.Bucket").
type FieldError struct {
	Path    string
	Problem string
	Err     error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return e.Path + ": " + e.Err.Error()
	}
	return e.Path + ": " + e.Problem
}

func (e *FieldError) Unwrap() error { return e.Err }

// ConfigError lists every FieldError found by one Validate call.
type ConfigError struct {
	Name   string
	Fields []*FieldError
}

func (e *ConfigError) Error() string {
	if len(e.Fields) == 1 {
		return e.Fields[0].Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%s validation failed with %d errors: %s", e.Name, len(e.Fields), strings.Join(msgs, "; "))
}

// Unwrap exposes each field so errors.Is reaches errors from Custom checks.
func (e *ConfigError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// ConfigValidator chains checks over a config struct and keeps going after
// a failure, so one Validate call reports every bad value.
type ConfigValidator struct {
	name   string
	fields []*FieldError
}

func NewConfigValidator(configName string) *ConfigValidator {
	return &ConfigValidator{name: configName}
}

func (cv *ConfigValidator) fail(field string, err error, format string, args ...any) *ConfigValidator {
	cv.fields = append(cv.fields, &FieldError{
		Path:    cv.name + "." + field,
		Problem: fmt.Sprintf(format, args...),
		Err:     err,
	})
	return cv
}

func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if strings.TrimSpace(value) == "" {
		return cv.fail(field, nil, "required field is empty")
	}
	return cv
}

func (cv *ConfigValidator) MinDuration(field string, value, floor time.Duration) *ConfigValidator {
	if value < floor {
		return cv.fail(field, nil, "duration %v is below minimum %v", value, floor)
	}
	return cv
}

func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		return cv.fail(field, nil, "value %d must be positive", value)
	}
	return cv
}

func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		return cv.fail(field, nil, "value %d must be non-negative", value)
	}
	return cv
}

func (cv *ConfigValidator) OneOf(field, value string, allowed []string) *ConfigValidator {
	if !slices.Contains(allowed, value) {
		return cv.fail(field, nil, "value %q must be one of %v", value, allowed)
	}
	return cv
}

// URL requires an absolute URL. With schemes given, the scheme must be one
// of them.
func (cv *ConfigValidator) URL(field, value string, schemes ...string) *ConfigValidator {
	u, err := url.Parse(value)
	switch {
	case err != nil || u.Scheme == "":
		return cv.fail(field, nil, "%q is not an absolute URL", value)
	case len(schemes) > 0 && !slices.Contains(schemes, u.Scheme):
		return cv.fail(field, nil, "scheme %q must be one of %v", u.Scheme, schemes)
	}
	return cv
}

// Custom records fn's error against field. The error stays reachable through
// errors.Is on the result of Validate.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		return cv.fail(field, err, "%v", err)
	}
	return cv
}

// When runs validations only if condition holds, for settings that depend on
// a selected backend or mode.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.fields) > 0
}

// Error returns the first failure, or nil.
func (cv *ConfigValidator) Error() error {
	if len(cv.fields) == 0 {
		return nil
	}
	return cv.fields[0]
}

func (cv *ConfigValidator) Errors() []error {
	errs := make([]error, len(cv.fields))
	for i, f := range cv.fields {
		errs[i] = f
	}
	return errs
}

// Validate returns nil or a *ConfigError holding every failure.
func (cv *ConfigValidator) Validate() error {
	if len(cv.fields) == 0 {
		return nil
	}
	return &ConfigError{Name: cv.name, Fields: slices.Clone(cv.fields)}
}

// DefaultOr returns value unless it is the zero value.
func DefaultOr[T comparable](value, fallback T) T {
	var zero T
	if value == zero {
		return fallback
	}
	return value
}

// DefaultPositive returns value when it is above zero. Config loading uses
// it for sizes and timeouts where a negative number means "unset".
func DefaultPositive[T ~int | ~int64 | ~float64](value, fallback T) T {
	if value <= 0 {
		return fallback
	}
	return value
}

// FieldErrors flattens err into its field failures. It returns nil when err
// did not come from Validate.
func FieldErrors(err error) []*FieldError {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Fields
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return []*FieldError{fe}
	}
	return nil
}
