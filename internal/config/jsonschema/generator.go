package jsonschema

import (
	"encoding/json"

	"github.com/dshills/settree/internal/config/constraint"
	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/serial"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Generator builds the schema of one settings type. It implements
// schema.TypeSerializer.
type Generator struct {
	result *Schema
}

var _ schema.TypeSerializer = (*Generator)(nil)

// ForType returns the JSON Schema describing values of t.
func ForType(t schema.Type) *Schema {
	g := &Generator{}
	t.Serialize(g)
	return g.Result()
}

// Result returns the schema built by the last Serialize call.
func (g *Generator) Result() *Schema { return g.result }

// SerializeBoolean describes a boolean.
func (g *Generator) SerializeBoolean(*schema.BooleanType) {
	g.result = &Schema{Type: TypeOf("boolean")}
}

// SerializeNumber describes a number. Types whose grid holds only
// integers become "integer".
func (g *Generator) SerializeNumber(t *schema.NumberType) {
	s := &Schema{Type: TypeOf("number")}
	if min, ok := t.Minimum(); ok {
		s.Minimum = number(min)
	}
	if max, ok := t.Maximum(); ok {
		s.Maximum = number(max)
	}
	if inc, ok := t.Increment(); ok {
		s.MultipleOf = number(inc)
		if inc.IsInteger() {
			s.Type = TypeOf("integer")
		}
	}
	g.result = s
}

// SerializeString describes a string. The pattern is anchored since
// settings patterns must match the whole value.
func (g *Generator) SerializeString(t *schema.StringType) {
	s := &Schema{Type: TypeOf("string")}
	if n := t.MinLength(); n > 0 {
		s.MinLength = &n
	}
	if n := t.MaxLength(); n != constraint.Unbounded {
		s.MaxLength = &n
	}
	if p := t.Pattern(); p != "" {
		s.Pattern = "^(?:" + p + ")$"
	}
	g.result = s
}

// SerializeEnum describes a closed set of strings.
func (g *Generator) SerializeEnum(t *schema.EnumType) {
	s := &Schema{Type: TypeOf("string")}
	for _, v := range t.Values() {
		s.Enum = append(s.Enum, v)
	}
	g.result = s
}

// SerializeList describes an array.
func (g *Generator) SerializeList(t schema.ListDescriptor) {
	s := &Schema{
		Type:        TypeOf("array"),
		Items:       ForType(t.ElementType()),
		UniqueItems: t.Unique(),
	}
	if n := t.MinSize(); n > 0 {
		s.MinItems = &n
	}
	if n := t.MaxSize(); n != constraint.Unbounded {
		s.MaxItems = &n
	}
	g.result = s
}

// SerializeMap describes an object with arbitrary keys.
func (g *Generator) SerializeMap(t schema.MapDescriptor) {
	s := &Schema{
		Type:                 TypeOf("object"),
		AdditionalProperties: AllowSchema(ForType(t.ValueType())),
	}
	if n := t.MinSize(); n > 0 {
		s.MinProperties = &n
	}
	if n := t.MaxSize(); n != constraint.Unbounded {
		s.MaxProperties = &n
	}
	g.result = s
}

// SerializeRecord describes an object with a fixed set of fields, all
// required.
func (g *Generator) SerializeRecord(t *schema.RecordType) {
	s := &Schema{
		Type:                 TypeOf("object"),
		Properties:           make(map[string]*Schema),
		AdditionalProperties: Forbid(),
	}
	for _, f := range t.Fields() {
		s.Properties[f.Name] = ForType(f.Type)
		s.Required = append(s.Required, f.Name)
	}
	g.result = s
}

// ForTree describes a settings tree. Branches become closed objects,
// leaves carry their comment and default. Separately serialized branches
// are included and marked.
func ForTree(root *tree.Branch) *Schema {
	s := forBranch(root)
	s.SchemaVersion = Draft
	return s
}

func forBranch(b *tree.Branch) *Schema {
	s := &Schema{
		Type:                 TypeOf("object"),
		Description:          b.Comment(),
		Properties:           make(map[string]*Schema, b.Len()),
		AdditionalProperties: Forbid(),
		SerializeSeparately:  b.IsSerializedSeparately(),
	}
	for _, child := range b.Items() {
		switch n := child.(type) {
		case *tree.Branch:
			s.Properties[n.Name()] = forBranch(n)
		case tree.LeafNode:
			s.Properties[n.Name()] = forLeaf(n)
		}
	}
	return s
}

func forLeaf(l tree.LeafNode) *Schema {
	s := ForType(l.Type())
	s.Description = l.Comment()

	def, err := l.Type().SerializeAny(l.AnyDefault(), serial.MapSerializer{})
	if err != nil {
		log.Debug().Err(err).Str("leaf", l.Name()).Msg("omitting default from schema")
		return s
	}
	s.Default = def
	return s
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
