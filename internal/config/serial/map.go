package serial

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/dshills/settree/internal/config/schema"
	"github.com/shopspring/decimal"
)

// MapSerializer converts platform values to plain Go values: bool, string,
// int64 or float64 numbers, []any and map[string]any. It is the common
// representation of the TOML, YAML and JSON codecs.
//
// On input it accepts every Go numeric kind, json.Number and any slice or
// string-keyed map.
type MapSerializer struct {
	// Lenient also parses strings into booleans, numbers, lists and maps,
	// for sources such as environment variables that carry only text.
	// Lists are JSON arrays or comma-separated; maps are JSON objects.
	Lenient bool
}

var _ schema.ValueSerializer = MapSerializer{}

// SerializeBoolean returns v.
func (MapSerializer) SerializeBoolean(v bool, _ *schema.BooleanType) any { return v }

// DeserializeBoolean accepts a bool, or in lenient mode a boolean word.
func (s MapSerializer) DeserializeBoolean(elem any, t *schema.BooleanType) (bool, error) {
	switch v := elem.(type) {
	case bool:
		return v, nil
	case string:
		if s.Lenient {
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "on", "1":
				return true, nil
			case "false", "no", "off", "0":
				return false, nil
			}
		}
	}
	return false, unexpected(elem, t)
}

// SerializeNumber returns an int64 for integers that fit, otherwise a float64.
func (MapSerializer) SerializeNumber(v decimal.Decimal, _ *schema.NumberType) any {
	if v.IsInteger() {
		if b := v.BigInt(); b.IsInt64() {
			return b.Int64()
		}
	}
	return v.InexactFloat64()
}

// DeserializeNumber accepts any Go number or json.Number.
func (s MapSerializer) DeserializeNumber(elem any, t *schema.NumberType) (decimal.Decimal, error) {
	switch v := elem.(type) {
	case decimal.Decimal:
		return v, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, schema.NewDeserializationError(elem, t, err)
		}
		return d, nil
	case float32:
		return fromFloat(float64(v), elem, t)
	case float64:
		return fromFloat(v, elem, t)
	case string:
		if s.Lenient {
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return decimal.Decimal{}, schema.NewDeserializationError(elem, t, err)
			}
			return d, nil
		}
	}

	rv := reflect.ValueOf(elem)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(rv.Uint()), 0), nil
	}
	return decimal.Decimal{}, unexpected(elem, t)
}

// SerializeString returns v.
func (MapSerializer) SerializeString(v string, _ *schema.StringType) any { return v }

// DeserializeString accepts a string.
func (MapSerializer) DeserializeString(elem any, t *schema.StringType) (string, error) {
	if v, ok := elem.(string); ok {
		return v, nil
	}
	return "", unexpected(elem, t)
}

// SerializeEnum returns v.
func (MapSerializer) SerializeEnum(v string, _ *schema.EnumType) any { return v }

// DeserializeEnum accepts a string.
func (MapSerializer) DeserializeEnum(elem any, t *schema.EnumType) (string, error) {
	if v, ok := elem.(string); ok {
		return v, nil
	}
	return "", unexpected(elem, t)
}

// SerializeList returns elems.
func (MapSerializer) SerializeList(elems []any, _ schema.ListDescriptor) any { return elems }

// DeserializeList accepts any slice.
func (s MapSerializer) DeserializeList(elem any, t schema.ListDescriptor) ([]any, error) {
	if v, ok := elem.([]any); ok {
		return v, nil
	}
	if str, ok := elem.(string); ok && s.Lenient {
		str = strings.TrimSpace(str)
		if strings.HasPrefix(str, "[") {
			var out []any
			if err := decodeJSON(str, &out); err != nil {
				return nil, schema.NewDeserializationError(elem, t, err)
			}
			return out, nil
		}
		if str == "" {
			return []any{}, nil
		}
		parts := strings.Split(str, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	}

	rv := reflect.ValueOf(elem)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, unexpected(elem, t)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// SerializeMap returns entries.
func (MapSerializer) SerializeMap(entries map[string]any, _ schema.MapDescriptor) any { return entries }

// DeserializeMap accepts any string-keyed map.
func (s MapSerializer) DeserializeMap(elem any, t schema.MapDescriptor) (map[string]any, error) {
	return s.table(elem, t)
}

// SerializeRecord returns fields.
func (MapSerializer) SerializeRecord(fields map[string]any, _ *schema.RecordType) any { return fields }

// DeserializeRecord accepts any string-keyed map.
func (s MapSerializer) DeserializeRecord(elem any, t *schema.RecordType) (map[string]any, error) {
	return s.table(elem, t)
}

func (s MapSerializer) table(elem any, t schema.Type) (map[string]any, error) {
	if v, ok := elem.(map[string]any); ok {
		return v, nil
	}
	if str, ok := elem.(string); ok && s.Lenient {
		var out map[string]any
		if err := decodeJSON(str, &out); err != nil {
			return nil, schema.NewDeserializationError(elem, t, err)
		}
		return out, nil
	}

	rv := reflect.ValueOf(elem)
	if rv.Kind() != reflect.Map {
		return nil, unexpected(elem, t)
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		if k.Kind() != reflect.String {
			return nil, schema.NewDeserializationError(elem, t,
				fmt.Errorf("%w: key %v is not a string", schema.ErrUnexpectedShape, iter.Key().Interface()))
		}
		out[k.String()] = iter.Value().Interface()
	}
	return out, nil
}

func fromFloat(f float64, elem any, t schema.Type) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, schema.NewDeserializationError(elem, t,
			fmt.Errorf("%w: %s is not a finite number", schema.ErrUnexpectedShape, strconv.FormatFloat(f, 'g', -1, 64)))
	}
	return decimal.NewFromFloat(f), nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(v)
}

func unexpected(elem any, t schema.Type) error {
	return schema.NewDeserializationError(elem, t, fmt.Errorf("%w: %T", schema.ErrUnexpectedShape, elem))
}
