package flatconf

import (
	"fmt"
	"strings"
)

// Config resolves a flat raw mapping into the typed tree declared by its
// schema. Resolution is lazy: a key's attribute runs once on first read and
// the result is memoized until Set or Merge changes the underlying raw state.
//
// Config is not safe for concurrent use.
type Config struct {
	schema   *Schema
	raw      map[string]any
	resolved map[string]any
	ctx      Path
}

// New creates a Config over the supplied raw mapping. The mapping is owned by
// the instance afterwards and mutated in place by Set.
//
// raw may be nil (treated as empty), a map[string]any (used directly), a
// map[string]string, or a map[any]any whose keys stringify; any key that is
// neither a string nor a fmt.Stringer fails construction with
// ErrInvalidKeyType.
func New(schema *Schema, raw any) (*Config, error) {
	return newConfig(schema, raw, nil)
}

func newConfig(schema *Schema, raw any, ctx Path) (*Config, error) {
	if schema == nil {
		return nil, fmt.Errorf("flatconf: schema cannot be nil")
	}
	m, err := normalizeRaw(raw)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]any)
	}
	return &Config{
		schema:   schema,
		raw:      m,
		resolved: make(map[string]any),
		ctx:      ctx,
	}, nil
}

// Schema returns the schema this instance resolves against.
func (c *Config) Schema() *Schema { return c.schema }

// Get resolves the declared key to its typed value, memoizing the result.
// Undeclared keys return ErrUndefinedKey; coercion failures propagate from
// the attribute unchanged.
func (c *Config) Get(key string) (any, error) {
	acc, ok := c.schema.accessors[key]
	if !ok {
		return nil, undefinedKeyError(key, c.ctx)
	}
	return acc.get(c)
}

// Set coerces value through the key's attribute and writes the result to
// both the memoization cache and the raw mapping at the exact key, so the
// write is visible to later exact-match fetches.
func (c *Config) Set(key string, value any) error {
	acc, ok := c.schema.accessors[key]
	if !ok {
		return undefinedKeyError(key, c.ctx)
	}
	return acc.set(c, value)
}

// Is is the predicate reader for boolean-typed declared keys: absence, load
// failures, nil, and false all yield false; any other resolved value yields
// true. Keys not declared with a boolean-valued attribute yield false.
func (c *Config) Is(key string) bool {
	acc, ok := c.schema.accessors[key]
	if !ok || acc.predicate == nil {
		return false
	}
	return acc.predicate(c)
}

// resolve is the key-resolution engine behind every accessor. ctx defaults to
// the instance context extended by key; attr defaults to the schema's
// declared attribute. Memoization is keyed by the exact key name;
// case-insensitive matching applies only inside Fetch.
func (c *Config) resolve(key string, ctx Path, attr Attribute) (any, error) {
	if attr == nil {
		var ok bool
		attr, ok = c.schema.attrs[key]
		if !ok {
			return nil, undefinedKeyError(key, c.ctx)
		}
	}
	if ctx == nil {
		ctx = c.ctx.Child(key)
	}

	if v, ok := c.resolved[key]; ok {
		return v, nil
	}

	if st, ok := attr.(SchemaTyped); ok && st.SchemaType() != nil {
		// Nested values come from an explicit sub-mapping under the key,
		// from flattened key<separator>subkey entries, or both; the
		// flattened entries win.
		raw := c.Fetch(key, func() any { return map[string]any{} })
		loaded, err := attr.Load(raw, ctx)
		if err != nil {
			return nil, err
		}
		child, ok := loaded.(*Config)
		if !ok {
			return nil, fmt.Errorf("%s: %w: nested attribute resolved to %T", ctx, ErrCoercion, loaded)
		}
		child.Merge(c.Subselect(key))
		c.resolved[key] = child
		return child, nil
	}

	// Missing leaf keys resolve to nil here; default and required-ness
	// policy belongs to the attribute.
	raw := c.Fetch(key, nil)
	loaded, err := attr.Load(raw, ctx)
	if err != nil {
		return nil, err
	}
	c.resolved[key] = loaded
	return loaded, nil
}

// Fetch returns the raw value stored under an exact key match, falling back
// to the first raw entry whose key matches case-insensitively. Precedence
// among case-colliding raw keys follows map iteration order and is
// unspecified. With no match, fallback is evaluated (nil result if none).
func (c *Config) Fetch(key string, fallback func() any) any {
	if v, ok := c.raw[key]; ok {
		return v
	}
	for k, v := range c.raw {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	if fallback != nil {
		return fallback()
	}
	return nil
}

// Subselect extracts every raw entry whose key starts with
// prefix<separator>, case-insensitively, keyed by the remainder. Duplicate
// remainders overwrite in map iteration order.
func (c *Config) Subselect(prefix string) map[string]any {
	out := make(map[string]any)
	full := prefix + c.schema.separator
	for k, v := range c.raw {
		if len(k) >= len(full) && strings.EqualFold(k[:len(full)], full) {
			out[k[len(full):]] = v
		}
	}
	return out
}

// Merge discards the entire memoization cache and merges m into the raw
// mapping, overwriting existing values at the same exact key. It returns the
// instance for chaining.
func (c *Config) Merge(m map[string]any) *Config {
	c.resolved = make(map[string]any)
	for k, v := range m {
		c.raw[k] = v
	}
	return c
}

// Nested resolves key and returns it as a child Config.
func (c *Config) Nested(key string) (*Config, error) {
	v, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	child, ok := v.(*Config)
	if !ok {
		return nil, fmt.Errorf("%s: key %q is not a nested configuration (resolved to %T)", c.ctx, key, v)
	}
	return child, nil
}

// String resolves key and converts the value to a string.
func (c *Config) String(key string) (string, error) {
	v, err := c.Get(key)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	s, err := coerceString(v)
	if err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	return s, nil
}

// Int64 resolves key and converts the value to an int64.
func (c *Config) Int64(key string) (int64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("key %q: value is nil, cannot convert to int64", key)
	}
	i, err := coerceInt64(v)
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return i, nil
}

// Float64 resolves key and converts the value to a float64.
func (c *Config) Float64(key string) (float64, error) {
	v, err := c.Get(key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("key %q: value is nil, cannot convert to float64", key)
	}
	f, err := coerceFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, err)
	}
	return f, nil
}

// Bool resolves key and converts the value to a bool.
func (c *Config) Bool(key string) (bool, error) {
	v, err := c.Get(key)
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, fmt.Errorf("key %q: value is nil, cannot convert to bool", key)
	}
	b, err := coerceBool(v)
	if err != nil {
		return false, fmt.Errorf("key %q: %w", key, err)
	}
	return b, nil
}
