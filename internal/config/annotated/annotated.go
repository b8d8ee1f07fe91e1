// Package annotated builds settings trees from annotated Go structs and
// copies tree values back into them.
//
// Each exported field becomes a leaf, nested structs become branches.
// Field tags refine the result:
//
//	settree:"name"      settings name, "-" to skip the field
//	comment:"text"      node comment
//	min, max, step      numeric bounds and increment
//	minlen, maxlen      string length bounds
//	regex               string pattern, matched in full
//	oneof:"a b c"       closed set of strings
//	minsize, maxsize    list and map size bounds
//	unique:"true"       list elements must be distinct
//	separate:"true"     serialize a nested struct on its own
//
// Numeric and string tags on a slice or map field constrain its elements.
// The current field values become the defaults.
package annotated

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/settree/internal/config/builder"
	"github.com/dshills/settree/internal/config/constraint"
	"github.com/dshills/settree/internal/config/schema"
	"github.com/dshills/settree/internal/config/tree"
	"github.com/dshills/settree/internal/config/types"
	"github.com/shopspring/decimal"
)

// Tag keys.
const (
	TagName     = "settree"
	TagComment  = "comment"
	TagMin      = "min"
	TagMax      = "max"
	TagStep     = "step"
	TagMinLen   = "minlen"
	TagMaxLen   = "maxlen"
	TagRegex    = "regex"
	TagOneOf    = "oneof"
	TagMinSize  = "minsize"
	TagMaxSize  = "maxsize"
	TagUnique   = "unique"
	TagSeparate = "separate"
)

var (
	// ErrNotStruct indicates a value that is not a struct or pointer to one.
	ErrNotStruct = errors.New("expected a struct or a pointer to a struct")

	// ErrUnsupportedField indicates a field type with no settings equivalent.
	ErrUnsupportedField = errors.New("unsupported field type")

	// ErrInvalidTag indicates a tag value that does not parse or conflicts
	// with the field type.
	ErrInvalidTag = errors.New("invalid tag")
)

// FieldError reports a problem with one struct field.
type FieldError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

var durationType = reflect.TypeOf((*time.Duration)(nil)).Elem()

// Build creates a settings tree mirroring the struct v, or the struct v
// points to.
func Build(v any, opts ...Option) (*tree.Branch, error) {
	o := newOptions(opts)

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w, got %T", ErrNotStruct, v)
	}

	b := builder.Tree().Comment(o.comment)
	if err := o.fields(b, rv, ""); err != nil {
		return nil, err
	}
	return b.Build()
}

// fields adds a node to b for every exported field of rv.
func (o options) fields(b *builder.BranchBuilder, rv reflect.Value, prefix string) error {
	var errs []error

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		fv := rv.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && tag == "" {
			if err := o.fields(b, fv, prefix); err != nil {
				errs = append(errs, err)
			}
			continue
		}

		name := tag
		if name == "" {
			name = o.convention.Apply(f.Name)
		}

		n, err := o.node(name, f, fv, prefix+f.Name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.Add(n)
	}

	return errors.Join(errs...)
}

func (o options) node(name string, f reflect.StructField, fv reflect.Value, path string) (tree.Node, error) {
	fail := func(err error) (tree.Node, error) {
		return nil, &FieldError{Field: path, Err: err}
	}
	comment := f.Tag.Get(TagComment)

	if f.Type.Kind() == reflect.Struct {
		separate, err := tagBool(f, TagSeparate)
		if err != nil {
			return fail(err)
		}
		child := builder.Branch(name).Comment(comment).SerializeSeparately(separate)
		if err := o.fields(child, fv, path+"."); err != nil {
			return nil, err
		}
		b, err := child.Build()
		if err != nil {
			return fail(err)
		}
		return b, nil
	}

	var (
		n   tree.Node
		err error
	)
	switch f.Type.Kind() {
	case reflect.Slice:
		n, err = listLeaf(name, comment, f, fv)
	case reflect.Map:
		n, err = mapLeaf(name, comment, f, fv)
	default:
		var sc scalar
		sc, err = scalarOf(f, f.Type)
		if err == nil {
			n, err = sc.leaf(name, comment, fv)
		}
	}
	if err != nil {
		return fail(err)
	}
	return n, nil
}

// scalar maps one Go scalar type onto a settings type.
type scalar struct {
	typ      schema.Type
	value    func(reflect.Value) any
	duration bool
}

func scalarOf(f reflect.StructField, t reflect.Type) (scalar, error) {
	if t == durationType {
		conv := types.Duration()
		return scalar{
			typ:      conv.SerializedType(),
			value:    func(v reflect.Value) any { return conv.ToSerialized(time.Duration(v.Int())) },
			duration: true,
		}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return scalar{typ: schema.Boolean(), value: func(v reflect.Value) any { return v.Bool() }}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		nt, err := numberType(f, t, true)
		return scalar{typ: nt, value: func(v reflect.Value) any { return decimal.NewFromInt(v.Int()) }}, err

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		nt, err := numberType(f, t, true)
		return scalar{typ: nt, value: func(v reflect.Value) any {
			return decimal.NewFromBigInt(new(big.Int).SetUint64(v.Uint()), 0)
		}}, err

	case reflect.Float32, reflect.Float64:
		nt, err := numberType(f, t, false)
		return scalar{typ: nt, value: func(v reflect.Value) any { return decimal.NewFromFloat(v.Float()) }}, err

	case reflect.String:
		st, err := stringType(f)
		return scalar{typ: st, value: func(v reflect.Value) any { return v.String() }}, err
	}

	return scalar{}, fmt.Errorf("%w: %s", ErrUnsupportedField, t)
}

func (sc scalar) leaf(name, comment string, fv reflect.Value) (tree.Node, error) {
	if sc.duration {
		return build(builder.ConvertedLeaf(name, types.Duration(), time.Duration(fv.Int())).Comment(comment))
	}

	switch typ := sc.typ.(type) {
	case schema.SerializableType[bool]:
		return newLeaf(name, comment, typ, sc.value(fv).(bool))
	case schema.SerializableType[decimal.Decimal]:
		return newLeaf(name, comment, typ, sc.value(fv).(decimal.Decimal))
	case schema.SerializableType[string]:
		return newLeaf(name, comment, typ, sc.value(fv).(string))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, sc.typ)
}

func newLeaf[T any](name, comment string, typ schema.SerializableType[T], def T) (tree.Node, error) {
	return build(builder.Leaf(name, typ).Comment(comment).Default(def))
}

func build[T any](lb *builder.LeafBuilder[T]) (tree.Node, error) {
	l, err := lb.Build()
	if err != nil {
		return nil, err
	}
	return l, nil
}

type sizeTags struct {
	min, max int
	unique   bool
}

func sizesOf(f reflect.StructField) (sizeTags, error) {
	var s sizeTags
	var err error
	if s.min, err = tagInt(f, TagMinSize, 0); err != nil {
		return s, err
	}
	if s.max, err = tagInt(f, TagMaxSize, constraint.Unbounded); err != nil {
		return s, err
	}
	s.unique, err = tagBool(f, TagUnique)
	return s, err
}

func listLeaf(name, comment string, f reflect.StructField, fv reflect.Value) (tree.Node, error) {
	sc, err := scalarOf(f, f.Type.Elem())
	if err != nil {
		return nil, err
	}
	size, err := sizesOf(f)
	if err != nil {
		return nil, err
	}

	switch elem := sc.typ.(type) {
	case schema.SerializableType[bool]:
		return typedList(name, comment, elem, sc, fv, size)
	case schema.SerializableType[decimal.Decimal]:
		return typedList(name, comment, elem, sc, fv, size)
	case schema.SerializableType[string]:
		return typedList(name, comment, elem, sc, fv, size)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, f.Type)
}

func typedList[E any](name, comment string, elem schema.SerializableType[E], sc scalar, fv reflect.Value, size sizeTags) (tree.Node, error) {
	lt, err := schema.NewListType(elem, size.min, size.max, size.unique)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	def := make([]E, fv.Len())
	for i := range def {
		def[i] = sc.value(fv.Index(i)).(E)
	}
	return newLeaf(name, comment, lt, def)
}

func mapLeaf(name, comment string, f reflect.StructField, fv reflect.Value) (tree.Node, error) {
	if f.Type.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w: map keys must be strings, got %s", ErrUnsupportedField, f.Type.Key())
	}
	sc, err := scalarOf(f, f.Type.Elem())
	if err != nil {
		return nil, err
	}
	size, err := sizesOf(f)
	if err != nil {
		return nil, err
	}

	switch elem := sc.typ.(type) {
	case schema.SerializableType[bool]:
		return typedMap(name, comment, elem, sc, fv, size)
	case schema.SerializableType[decimal.Decimal]:
		return typedMap(name, comment, elem, sc, fv, size)
	case schema.SerializableType[string]:
		return typedMap(name, comment, elem, sc, fv, size)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedField, f.Type)
}

func typedMap[V any](name, comment string, value schema.SerializableType[V], sc scalar, fv reflect.Value, size sizeTags) (tree.Node, error) {
	mt, err := schema.NewMapType(value, size.min, size.max)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	def := make(map[string]V, fv.Len())
	iter := fv.MapRange()
	for iter.Next() {
		def[iter.Key().String()] = sc.value(iter.Value()).(V)
	}
	return newLeaf(name, comment, mt, def)
}

// numberType builds the type of a numeric field. Integer fields get the
// bounds of their Go type and an increment of one unless tagged otherwise.
func numberType(f reflect.StructField, t reflect.Type, integer bool) (*schema.NumberType, error) {
	min, err := tagDecimal(f, TagMin)
	if err != nil {
		return nil, err
	}
	max, err := tagDecimal(f, TagMax)
	if err != nil {
		return nil, err
	}
	step, err := tagDecimal(f, TagStep)
	if err != nil {
		return nil, err
	}

	if integer {
		lo, hi := integerBounds(t)
		if !min.Valid {
			min = decimal.NewNullDecimal(lo)
		}
		if !max.Valid {
			max = decimal.NewNullDecimal(hi)
		}
		if !step.Valid {
			step = decimal.NewNullDecimal(decimal.NewFromInt(1))
		}
	}

	nt, err := schema.NewNumberType(min, max, step)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	return nt, nil
}

func integerBounds(t reflect.Type) (lo, hi decimal.Decimal) {
	bits := uint(t.Bits())
	one := big.NewInt(1)
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		h := new(big.Int).Sub(new(big.Int).Lsh(one, bits), one)
		return decimal.Zero, decimal.NewFromBigInt(h, 0)
	default:
		h := new(big.Int).Sub(new(big.Int).Lsh(one, bits-1), one)
		l := new(big.Int).Neg(new(big.Int).Lsh(one, bits-1))
		return decimal.NewFromBigInt(l, 0), decimal.NewFromBigInt(h, 0)
	}
}

func stringType(f reflect.StructField) (schema.Type, error) {
	if oneof, ok := f.Tag.Lookup(TagOneOf); ok {
		values := strings.Fields(oneof)
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: %s is empty", ErrInvalidTag, TagOneOf)
		}
		return schema.Enum(values...), nil
	}

	minLen, err := tagInt(f, TagMinLen, 0)
	if err != nil {
		return nil, err
	}
	maxLen, err := tagInt(f, TagMaxLen, constraint.Unbounded)
	if err != nil {
		return nil, err
	}
	st, err := schema.NewStringType(minLen, maxLen, f.Tag.Get(TagRegex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	return st, nil
}

func tagDecimal(f reflect.StructField, key string) (decimal.NullDecimal, error) {
	s, ok := f.Tag.Lookup(key)
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s=%q: %v", ErrInvalidTag, key, s, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func tagInt(f reflect.StructField, key string, def int) (int, error) {
	s, ok := f.Tag.Lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidTag, key, s, err)
	}
	return n, nil
}

func tagBool(f reflect.StructField, key string) (bool, error) {
	s, ok := f.Tag.Lookup(key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q: %v", ErrInvalidTag, key, s, err)
	}
	return b, nil
}
