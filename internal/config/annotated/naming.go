package annotated

import "github.com/iancoleman/strcase"

// NameConvention maps Go field names to settings names.
type NameConvention int

const (
	// SnakeCase turns MaxConnections into max_connections.
	SnakeCase NameConvention = iota
	// LowerCamelCase turns MaxConnections into maxConnections.
	LowerCamelCase
	// KebabCase turns MaxConnections into max-connections.
	KebabCase
	// Identity keeps the field name.
	Identity
)

// Apply converts a Go field name.
func (c NameConvention) Apply(name string) string {
	switch c {
	case SnakeCase:
		return strcase.ToSnake(name)
	case LowerCamelCase:
		return strcase.ToLowerCamel(name)
	case KebabCase:
		return strcase.ToKebab(name)
	default:
		return name
	}
}

// String returns the convention name.
func (c NameConvention) String() string {
	switch c {
	case SnakeCase:
		return "snake_case"
	case LowerCamelCase:
		return "lowerCamelCase"
	case KebabCase:
		return "kebab-case"
	case Identity:
		return "identity"
	default:
		return "unknown"
	}
}

// Option configures Build and Apply.
type Option func(*options)

type options struct {
	convention NameConvention
	comment    string
}

// WithConvention sets the naming convention for untagged fields.
// The default is SnakeCase.
func WithConvention(c NameConvention) Option {
	return func(o *options) { o.convention = c }
}

// WithComment sets the comment of the root branch.
func WithComment(comment string) Option {
	return func(o *options) { o.comment = comment }
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
