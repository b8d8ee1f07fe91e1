package jsonschema

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Keyword names the schema keyword a value violated.
type Keyword string

const (
	KeywordType                 Keyword = "type"
	KeywordEnum                 Keyword = "enum"
	KeywordMinimum              Keyword = "minimum"
	KeywordMaximum              Keyword = "maximum"
	KeywordMultipleOf           Keyword = "multipleOf"
	KeywordMinLength            Keyword = "minLength"
	KeywordMaxLength            Keyword = "maxLength"
	KeywordPattern              Keyword = "pattern"
	KeywordMinItems             Keyword = "minItems"
	KeywordMaxItems             Keyword = "maxItems"
	KeywordUniqueItems          Keyword = "uniqueItems"
	KeywordMinProperties        Keyword = "minProperties"
	KeywordMaxProperties        Keyword = "maxProperties"
	KeywordRequired             Keyword = "required"
	KeywordAdditionalProperties Keyword = "additionalProperties"
)

// ValidationError reports one value of a settings document that violates
// one keyword of its schema.
type ValidationError struct {
	// Path is the setting path of the value, with [i] for list elements.
	Path string

	Keyword Keyword

	// Value is the offending value, nil for missing properties.
	Value any

	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// ValidationErrors is the report of one validation run, in path order.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Len returns the number of errors.
func (e *ValidationErrors) Len() int { return len(e.Errors) }

// AsError returns nil for an empty report.
func (e *ValidationErrors) AsError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// ErrorsForPath returns the errors reported at path.
func (e *ValidationErrors) ErrorsForPath(path string) []*ValidationError {
	var result []*ValidationError
	for _, err := range e.Errors {
		if err.Path == path {
			result = append(result, err)
		}
	}
	return result
}

// ForKeyword returns the errors raised by kw.
func (e *ValidationErrors) ForKeyword(kw Keyword) []*ValidationError {
	var result []*ValidationError
	for _, err := range e.Errors {
		if err.Keyword == kw {
			result = append(result, err)
		}
	}
	return result
}

func (e *ValidationErrors) add(err *ValidationError) {
	e.Errors = append(e.Errors, err)
}

func (e *ValidationErrors) addf(path string, kw Keyword, value any, format string, args ...any) {
	e.add(&ValidationError{Path: path, Keyword: kw, Value: value, Message: fmt.Sprintf(format, args...)})
}

func typeError(path string, expected SchemaType, value any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Keyword: KeywordType,
		Value:   value,
		Message: fmt.Sprintf("expected %s, got %s", expected, jsonTypeName(value)),
	}
}

func enumError(path string, value any, allowed []any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Keyword: KeywordEnum,
		Value:   value,
		Message: fmt.Sprintf("%v is not one of %v", value, allowed),
	}
}

// boundError reports a number outside an inclusive bound. Bounds are
// printed exactly as the schema states them.
func boundError(path string, kw Keyword, value, bound decimal.Decimal) *ValidationError {
	rel := "at least"
	if kw == KeywordMaximum {
		rel = "at most"
	}
	return &ValidationError{
		Path:    path,
		Keyword: kw,
		Value:   value,
		Message: fmt.Sprintf("%s must be %s %s", value, rel, bound),
	}
}

func multipleError(path string, value, step decimal.Decimal) *ValidationError {
	return &ValidationError{
		Path:    path,
		Keyword: KeywordMultipleOf,
		Value:   value,
		Message: fmt.Sprintf("%s is not a multiple of %s", value, step),
	}
}

func patternError(path, value, pattern string) *ValidationError {
	return &ValidationError{
		Path:    path,
		Keyword: KeywordPattern,
		Value:   value,
		Message: fmt.Sprintf("%q does not match %s", value, pattern),
	}
}

func requiredError(path string) *ValidationError {
	return &ValidationError{Path: path, Keyword: KeywordRequired, Message: "required property is missing"}
}

// NewUnknownPropertyError reports a property a closed object does not
// declare.
func NewUnknownPropertyError(path string) *ValidationError {
	return &ValidationError{Path: path, Keyword: KeywordAdditionalProperties, Message: "unknown property"}
}

// jsonTypeName names the JSON type of a decoded value.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	}
	if _, ok := toDecimal(v); ok {
		return "number"
	}
	if toSlice(v) != nil {
		return "array"
	}
	return fmt.Sprintf("%T", v)
}
