// Package jsonschema describes settings trees as JSON Schema documents and
// validates raw settings documents against them.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Draft is the JSON Schema dialect of generated documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema represents a JSON Schema definition.
type Schema struct {
	// ID is the schema identifier ($id).
	ID string `json:"$id,omitempty"`

	// SchemaVersion is the JSON Schema dialect ($schema).
	SchemaVersion string `json:"$schema,omitempty"`

	// Title is a descriptive title.
	Title string `json:"title,omitempty"`

	// Description provides documentation.
	Description string `json:"description,omitempty"`

	// Type is the JSON type (string, number, integer, boolean, array, object).
	Type SchemaType `json:"type,omitempty"`

	// Properties defines object properties (for type: object).
	Properties map[string]*Schema `json:"properties,omitempty"`

	// AdditionalProperties controls properties not listed in Properties.
	AdditionalProperties *Additional `json:"additionalProperties,omitempty"`

	// Required lists required property names.
	Required []string `json:"required,omitempty"`

	// MinProperties and MaxProperties bound the size of objects.
	MinProperties *int `json:"minProperties,omitempty"`
	MaxProperties *int `json:"maxProperties,omitempty"`

	// Items defines the schema for array elements.
	Items *Schema `json:"items,omitempty"`

	// Enum lists allowed values.
	Enum []any `json:"enum,omitempty"`

	// Default is the default value.
	Default any `json:"default,omitempty"`

	// Minimum, Maximum and MultipleOf constrain numbers. They keep the
	// literal text so bounds beyond float64 precision survive a round trip.
	Minimum    json.Number `json:"minimum,omitempty"`
	Maximum    json.Number `json:"maximum,omitempty"`
	MultipleOf json.Number `json:"multipleOf,omitempty"`

	// MinLength for strings, in user-perceived characters.
	MinLength *int `json:"minLength,omitempty"`

	// MaxLength for strings.
	MaxLength *int `json:"maxLength,omitempty"`

	// Pattern is a regex pattern for strings.
	Pattern string `json:"pattern,omitempty"`

	// Format is a semantic format hint (e.g., "duration", "color").
	Format string `json:"format,omitempty"`

	// MinItems for arrays.
	MinItems *int `json:"minItems,omitempty"`

	// MaxItems for arrays.
	MaxItems *int `json:"maxItems,omitempty"`

	// UniqueItems requires array elements to be unique.
	UniqueItems bool `json:"uniqueItems,omitempty"`

	// SerializeSeparately marks a branch stored outside its parent's document.
	SerializeSeparately bool `json:"x-serialize-separately,omitempty"`
}

// SchemaType represents JSON Schema type(s).
// Can be a single type or an array of types.
type SchemaType struct {
	Types []string
}

// TypeOf returns a SchemaType of the given types.
func TypeOf(types ...string) SchemaType {
	return SchemaType{Types: types}
}

// UnmarshalJSON handles both single type and array of types.
func (t *SchemaType) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		t.Types = []string{single}
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("type must be string or array of strings: %w", err)
	}
	t.Types = arr
	return nil
}

// MarshalJSON outputs single type as string, multiple as array.
func (t SchemaType) MarshalJSON() ([]byte, error) {
	if len(t.Types) == 1 {
		return json.Marshal(t.Types[0])
	}
	return json.Marshal(t.Types)
}

// Is checks if the schema type includes the given type.
func (t SchemaType) Is(typ string) bool {
	return slices.Contains(t.Types, typ)
}

// IsEmpty returns true if no types are defined.
func (t SchemaType) IsEmpty() bool {
	return len(t.Types) == 0
}

// String returns the type as a string.
func (t SchemaType) String() string {
	if len(t.Types) == 1 {
		return t.Types[0]
	}
	return fmt.Sprintf("%v", t.Types)
}

// Additional is the additionalProperties keyword: either a boolean or a
// schema every extra property must satisfy.
type Additional struct {
	Allowed bool
	Schema  *Schema
}

// Forbid returns an Additional that rejects extra properties.
func Forbid() *Additional { return &Additional{} }

// AllowSchema returns an Additional that admits extra properties matching s.
func AllowSchema(s *Schema) *Additional { return &Additional{Allowed: true, Schema: s} }

// MarshalJSON outputs a schema when one is set, else a boolean.
func (a Additional) MarshalJSON() ([]byte, error) {
	if a.Schema != nil {
		return json.Marshal(a.Schema)
	}
	return json.Marshal(a.Allowed)
}

// UnmarshalJSON accepts a boolean or a schema object.
func (a *Additional) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Additional{Allowed: b}
		return nil
	}

	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("additionalProperties must be a boolean or a schema: %w", err)
	}
	*a = Additional{Allowed: true, Schema: s}
	return nil
}

// Parse parses a JSON Schema from bytes.
func Parse(data []byte) (*Schema, error) {
	s := &Schema{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

// Marshal encodes s as indented JSON.
func Marshal(s *Schema) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// GetProperty returns the schema for a nested property path.
// Path is dot-separated (e.g., "server.port").
func (s *Schema) GetProperty(path string) *Schema {
	if s == nil || path == "" {
		return s
	}

	current := s
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		prop, ok := current.Properties[part]
		if !ok {
			return nil
		}
		current = prop
	}
	return current
}

// HasProperty checks if a property exists at the given path.
func (s *Schema) HasProperty(path string) bool {
	return s.GetProperty(path) != nil
}

// IsRequired checks if a property is required.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// AllowsAdditionalProperties returns whether additional properties are allowed.
func (s *Schema) AllowsAdditionalProperties() bool {
	if s.AdditionalProperties == nil {
		return true
	}
	return s.AdditionalProperties.Allowed
}

// additionalSchema returns the schema for extra properties, if any.
func (s *Schema) additionalSchema() *Schema {
	if s.AdditionalProperties == nil {
		return nil
	}
	return s.AdditionalProperties.Schema
}
