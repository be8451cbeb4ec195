package flatconf

import "fmt"

// DefaultSeparator joins a prefix with a child key when flattening keys.
const DefaultSeparator = "_"

// Schema is the declared shape of a configuration type: its keys in
// declaration order, their attributes, the flattening separator, and policy
// flags. Schemas are immutable once built and safe to share across instances.
type Schema struct {
	keys         []string
	attrs        map[string]Attribute
	accessors    map[string]*accessor
	separator    string
	allowExtra   bool
	requirements []Requirement
}

// accessor is the per-key dispatch entry compiled once per schema. Instances
// look their key up here instead of generating code per object. predicate is
// non-nil only for boolean-valued attributes.
type accessor struct {
	key       string
	get       func(c *Config) (any, error)
	set       func(c *Config, value any) error
	predicate func(c *Config) bool
}

// Keys returns the declared key names in declaration order.
func (s *Schema) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Attribute returns the declared attribute for key.
func (s *Schema) Attribute(key string) (Attribute, bool) {
	attr, ok := s.attrs[key]
	return attr, ok
}

// Separator returns the flattening separator.
func (s *Schema) Separator() string { return s.separator }

// AllowExtra reports whether unknown raw keys pass validation.
func (s *Schema) AllowExtra() bool { return s.allowExtra }

// Derive returns a builder seeded from this schema for declaring a derived
// configuration type. The separator is copied by value at this point; later
// changes to the parent do not affect the derived schema. Derived schemas
// allow extra keys unless overridden.
func (s *Schema) Derive() *Builder {
	b := NewBuilder().Separator(s.separator)
	for _, key := range s.keys {
		b.Key(key, s.attrs[key])
	}
	b.requirements = append(b.requirements, s.requirements...)
	return b
}

// Builder assembles a Schema. Declaration order of Key calls is preserved.
type Builder struct {
	separator    string
	allowExtra   bool
	keys         []string
	attrs        map[string]Attribute
	requirements []Requirement
	err          error
}

// NewBuilder creates a schema builder with the default separator and extra
// keys allowed.
func NewBuilder() *Builder {
	return &Builder{
		separator:  DefaultSeparator,
		allowExtra: true,
		attrs:      make(map[string]Attribute),
	}
}

// Separator sets the string joining a prefix with a child key in flat keys.
func (b *Builder) Separator(sep string) *Builder {
	if sep == "" {
		b.fail(fmt.Errorf("separator cannot be empty"))
		return b
	}
	b.separator = sep
	return b
}

// AllowExtra controls whether raw keys not declared in the schema are a
// validation error.
func (b *Builder) AllowExtra(allow bool) *Builder {
	b.allowExtra = allow
	return b
}

// Key declares a named attribute. Key names must be unique within a schema.
func (b *Builder) Key(name string, attr Attribute) *Builder {
	if !isValidKey(name) {
		b.fail(fmt.Errorf("invalid key name %q", name))
		return b
	}
	if attr == nil {
		b.fail(fmt.Errorf("key %q declared with nil attribute", name))
		return b
	}
	if _, exists := b.attrs[name]; exists {
		b.fail(fmt.Errorf("key %q declared twice", name))
		return b
	}
	b.keys = append(b.keys, name)
	b.attrs[name] = attr
	return b
}

// Require appends a cross-field requirement evaluated during validation.
func (b *Builder) Require(req Requirement) *Builder {
	if req != nil {
		b.requirements = append(b.requirements, req)
	}
	return b
}

// Build compiles the schema, including the per-key accessor table shared by
// every instance of this schema.
func (b *Builder) Build() (*Schema, error) {
	if b.err != nil {
		return nil, b.err
	}

	s := &Schema{
		keys:         append([]string(nil), b.keys...),
		attrs:        make(map[string]Attribute, len(b.attrs)),
		accessors:    make(map[string]*accessor, len(b.attrs)),
		separator:    b.separator,
		allowExtra:   b.allowExtra,
		requirements: append([]Requirement(nil), b.requirements...),
	}
	for name, attr := range b.attrs {
		s.attrs[name] = attr
	}

	for _, name := range s.keys {
		s.accessors[name] = s.compileAccessor(name, s.attrs[name])
	}

	return s, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("flatconf: schema build failed: %v", err))
	}
	return s
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// compileAccessor builds the getter/setter pair for a declared key, plus the
// predicate reader for boolean-valued attributes.
func (s *Schema) compileAccessor(key string, attr Attribute) *accessor {
	acc := &accessor{
		key: key,
		get: func(c *Config) (any, error) {
			return c.resolve(key, nil, attr)
		},
		set: func(c *Config, value any) error {
			loaded, err := attr.Load(value, c.ctx.Child(key))
			if err != nil {
				return err
			}
			c.resolved[key] = loaded
			c.raw[key] = loaded
			return nil
		},
	}

	if bv, ok := attr.(BoolValued); ok && bv.IsBoolValued() {
		acc.predicate = func(c *Config) bool {
			v, err := c.resolve(key, nil, attr)
			if err != nil || v == nil || v == false {
				return false
			}
			return true
		}
	}

	return acc
}

// isValidKey checks that a key name is a bare identifier: ASCII letters,
// digits, underscores, and dashes, starting with a letter or underscore.
func isValidKey(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isLetter && r != '_' {
			return false
		}
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}
