package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sync"

	"github.com/rivo/uniseg"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"
)

// Validator checks raw settings documents against a schema before they
// are applied to a tree.
type Validator struct {
	schema *Schema

	strictMode bool // fail on unknown properties
	maxErrors  int  // 0 = unlimited

	patternCache sync.Map // map[string]*regexp.Regexp
}

// NewValidator creates a validator for the given schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:    schema,
		maxErrors: 100,
	}
}

// WithStrictMode enables strict mode: properties a closed object does not
// declare are errors. Otherwise they are ignored, matching how documents
// are applied to trees.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strictMode = strict
	return v
}

// WithMaxErrors sets the maximum number of errors to collect.
func (v *Validator) WithMaxErrors(max int) *Validator {
	v.maxErrors = max
	return v
}

// Validate validates a settings document. Errors are reported in path
// order as *ValidationErrors.
func (v *Validator) Validate(data map[string]any) error {
	if v.schema == nil {
		return nil
	}

	errs := &ValidationErrors{}
	v.validateValue("", data, v.schema, errs)
	return errs.AsError()
}

// ValidatePath validates a single value at a given path.
func (v *Validator) ValidatePath(path string, value any) error {
	if v.schema == nil {
		return nil
	}

	propSchema := v.schema.GetProperty(path)
	if propSchema == nil {
		if v.strictMode {
			return NewUnknownPropertyError(path)
		}
		return nil
	}

	errs := &ValidationErrors{}
	v.validateValue(path, value, propSchema, errs)
	return errs.AsError()
}

func (v *Validator) full(errs *ValidationErrors) bool {
	return v.maxErrors > 0 && errs.Len() >= v.maxErrors
}

func (v *Validator) validateValue(path string, value any, schema *Schema, errs *ValidationErrors) {
	if schema == nil || v.full(errs) {
		return
	}

	if len(schema.Enum) > 0 && !slices.ContainsFunc(schema.Enum, func(a any) bool { return valuesEqual(value, a) }) {
		errs.add(enumError(path, value, schema.Enum))
	}

	if !schema.Type.IsEmpty() {
		v.validateType(path, value, schema, errs)
	}
}

func (v *Validator) validateType(path string, value any, schema *Schema, errs *ValidationErrors) {
	for _, typ := range schema.Type.Types {
		if !matchesType(value, typ) {
			continue
		}
		switch typ {
		case "string":
			v.validateString(path, value.(string), schema, errs)
		case "number", "integer":
			v.validateNumber(path, value, schema, errs)
		case "array":
			v.validateArray(path, value, schema, errs)
		case "object":
			v.validateObject(path, value.(map[string]any), schema, errs)
		}
		return
	}
	errs.add(typeError(path, schema.Type, value))
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := toDecimal(value)
		return ok
	case "integer":
		d, ok := toDecimal(value)
		return ok && d.IsInteger()
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		return toSlice(value) != nil
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "null":
		return value == nil
	default:
		return false
	}
}

func (v *Validator) validateString(path string, value string, schema *Schema, errs *ValidationErrors) {
	n := uniseg.GraphemeClusterCount(value)
	if schema.MinLength != nil && n < *schema.MinLength {
		errs.addf(path, KeywordMinLength, value, "length %d is less than %d", n, *schema.MinLength)
	}
	if schema.MaxLength != nil && n > *schema.MaxLength {
		errs.addf(path, KeywordMaxLength, value, "length %d is greater than %d", n, *schema.MaxLength)
	}
	if schema.Pattern != "" && !v.matchPattern(value, schema.Pattern) {
		errs.add(patternError(path, value, schema.Pattern))
	}
}

func (v *Validator) validateNumber(path string, value any, schema *Schema, errs *ValidationErrors) {
	d, _ := toDecimal(value)

	if min, ok := bound(schema.Minimum); ok && d.LessThan(min) {
		errs.add(boundError(path, KeywordMinimum, d, min))
	}
	if max, ok := bound(schema.Maximum); ok && d.GreaterThan(max) {
		errs.add(boundError(path, KeywordMaximum, d, max))
	}
	if step, ok := bound(schema.MultipleOf); ok && !step.IsZero() && !d.Mod(step).IsZero() {
		errs.add(multipleError(path, d, step))
	}
}

func (v *Validator) validateArray(path string, value any, schema *Schema, errs *ValidationErrors) {
	arr := toSlice(value)

	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		errs.addf(path, KeywordMinItems, value, "%d items, fewer than %d", len(arr), *schema.MinItems)
	}
	if schema.MaxItems != nil && len(arr) > *schema.MaxItems {
		errs.addf(path, KeywordMaxItems, value, "%d items, more than %d", len(arr), *schema.MaxItems)
	}

	if schema.UniqueItems {
		seen := make(map[string]bool, len(arr))
		for i, item := range arr {
			key := itemKey(item)
			if seen[key] {
				errs.addf(path, KeywordUniqueItems, value, "duplicate item at index %d", i)
				break
			}
			seen[key] = true
		}
	}

	if schema.Items != nil {
		for i, item := range arr {
			v.validateValue(fmt.Sprintf("%s[%d]", path, i), item, schema.Items, errs)
		}
	}
}

func (v *Validator) validateObject(path string, obj map[string]any, schema *Schema, errs *ValidationErrors) {
	for _, req := range schema.Required {
		if _, exists := obj[req]; !exists {
			errs.add(requiredError(joinPath(path, req)))
		}
	}

	n := len(obj)
	if schema.MinProperties != nil && n < *schema.MinProperties {
		errs.addf(path, KeywordMinProperties, obj, "%d properties, fewer than %d", n, *schema.MinProperties)
	}
	if schema.MaxProperties != nil && n > *schema.MaxProperties {
		errs.addf(path, KeywordMaxProperties, obj, "%d properties, more than %d", n, *schema.MaxProperties)
	}

	names := maps.Keys(obj)
	slices.Sort(names)
	for _, name := range names {
		if v.full(errs) {
			return
		}
		propPath := joinPath(path, name)
		propValue := obj[name]

		switch propSchema, ok := schema.Properties[name]; {
		case ok:
			if propSchema.SerializeSeparately {
				continue
			}
			v.validateValue(propPath, propValue, propSchema, errs)
		case schema.additionalSchema() != nil:
			v.validateValue(propPath, propValue, schema.additionalSchema(), errs)
		case v.strictMode && !schema.AllowsAdditionalProperties():
			errs.add(NewUnknownPropertyError(propPath))
		}
	}
}

func (v *Validator) matchPattern(value, pattern string) bool {
	if cached, ok := v.patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(value)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}

	v.patternCache.Store(pattern, re)
	return re.MatchString(value)
}

// bound parses a numeric keyword. Absent or malformed keywords impose
// nothing.
func bound(n json.Number) (decimal.Decimal, bool) {
	if n == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(n.String())
	return d, err == nil
}

// toDecimal converts any Go or JSON number.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.RequireFromString(fmt.Sprint(rv.Uint())), true
	}
	return decimal.Decimal{}, false
}

func toSlice(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func itemKey(item any) string {
	if d, ok := toDecimal(item); ok {
		return "n:" + d.String()
	}
	b, err := json.Marshal(item)
	if err != nil {
		return fmt.Sprintf("%v", item)
	}
	return string(b)
}

func valuesEqual(a, b any) bool {
	da, aNum := toDecimal(a)
	db, bNum := toDecimal(b)
	if aNum && bNum {
		return da.Equal(db)
	}
	return reflect.DeepEqual(a, b)
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
