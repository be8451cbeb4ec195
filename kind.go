package flatconf

import (
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Ptr returns a pointer to v, for populating attribute Default fields inline.
func Ptr[T any](v T) *T {
	return &v
}

// StringAttr declares a string-typed attribute.
// Attempts conversion from common scalar types if the raw value isn't already
// a string.
type StringAttr struct {
	Default  *string
	Required bool
	Enum     []string
	Sample   any
}

func (a StringAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return *a.Default, nil
		}
		return nil, nil
	}
	s, err := coerceString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx, err)
	}
	return s, nil
}

func (a StringAttr) Validate(value any, ctx Path) []string {
	if value == nil {
		if a.Required {
			return []string{"is required"}
		}
		return nil
	}
	if len(a.Enum) > 0 {
		s, _ := value.(string)
		for _, allowed := range a.Enum {
			if s == allowed {
				return nil
			}
		}
		return []string{fmt.Sprintf("must be one of [%s]", strings.Join(a.Enum, ", "))}
	}
	return nil
}

func (a StringAttr) Example() any { return exampleValue(a.Sample, a.Default) }

// Int64Attr declares an int64-typed attribute with optional bounds.
type Int64Attr struct {
	Default  *int64
	Required bool
	Min      *int64
	Max      *int64
	Sample   any
}

func (a Int64Attr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return *a.Default, nil
		}
		return nil, nil
	}
	i, err := coerceInt64(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx, err)
	}
	return i, nil
}

func (a Int64Attr) Validate(value any, ctx Path) []string {
	if value == nil {
		if a.Required {
			return []string{"is required"}
		}
		return nil
	}
	i, _ := value.(int64)
	var findings []string
	if a.Min != nil && i < *a.Min {
		findings = append(findings, fmt.Sprintf("must be at least %d", *a.Min))
	}
	if a.Max != nil && i > *a.Max {
		findings = append(findings, fmt.Sprintf("must be at most %d", *a.Max))
	}
	return findings
}

func (a Int64Attr) Example() any { return exampleValue(a.Sample, a.Default) }

// Float64Attr declares a float64-typed attribute.
type Float64Attr struct {
	Default  *float64
	Required bool
	Sample   any
}

func (a Float64Attr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return *a.Default, nil
		}
		return nil, nil
	}
	f, err := coerceFloat64(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx, err)
	}
	return f, nil
}

func (a Float64Attr) Validate(value any, ctx Path) []string {
	if value == nil && a.Required {
		return []string{"is required"}
	}
	return nil
}

func (a Float64Attr) Example() any { return exampleValue(a.Sample, a.Default) }

// BoolAttr declares a boolean-typed attribute. Keys declared with BoolAttr
// get the predicate accessor (Config.Is).
type BoolAttr struct {
	Default  *bool
	Required bool
	Sample   any
}

func (a BoolAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return *a.Default, nil
		}
		return nil, nil
	}
	b, err := coerceBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx, err)
	}
	return b, nil
}

func (a BoolAttr) Validate(value any, ctx Path) []string {
	if value == nil && a.Required {
		return []string{"is required"}
	}
	return nil
}

func (a BoolAttr) IsBoolValued() bool { return true }

func (a BoolAttr) Example() any { return exampleValue(a.Sample, a.Default) }

// DurationAttr declares a time.Duration-typed attribute. Strings are parsed
// with time.ParseDuration; integers are taken as nanoseconds.
type DurationAttr struct {
	Default  *time.Duration
	Required bool
	Sample   any
}

func (a DurationAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return *a.Default, nil
		}
		return nil, nil
	}
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: invalid duration %q", ctx, ErrCoercion, v)
		}
		return d, nil
	default:
		i, err := coerceInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ctx, err)
		}
		return time.Duration(i), nil
	}
}

func (a DurationAttr) Validate(value any, ctx Path) []string {
	if value == nil && a.Required {
		return []string{"is required"}
	}
	return nil
}

func (a DurationAttr) Example() any { return exampleValue(a.Sample, a.Default) }

// URLAttr declares a *url.URL-typed attribute.
type URLAttr struct {
	Default  *string
	Required bool
	Schemes  []string
	Sample   any
}

func (a URLAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default == nil {
			return nil, nil
		}
		raw = *a.Default
	}
	switch v := raw.(type) {
	case *url.URL:
		return v, nil
	case url.URL:
		return &v, nil
	case string:
		if len(v) > 2048 {
			return nil, fmt.Errorf("%s: %w: URL too long (%d bytes)", ctx, ErrCoercion, len(v))
		}
		u, err := url.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: invalid URL %q", ctx, ErrCoercion, v)
		}
		return u, nil
	default:
		return nil, fmt.Errorf("%s: %w: cannot use %T as URL", ctx, ErrCoercion, raw)
	}
}

func (a URLAttr) Validate(value any, ctx Path) []string {
	if value == nil {
		if a.Required {
			return []string{"is required"}
		}
		return nil
	}
	if len(a.Schemes) > 0 {
		u, _ := value.(*url.URL)
		for _, scheme := range a.Schemes {
			if u != nil && u.Scheme == scheme {
				return nil
			}
		}
		return []string{fmt.Sprintf("scheme must be one of [%s]", strings.Join(a.Schemes, ", "))}
	}
	return nil
}

func (a URLAttr) Example() any { return exampleValue(a.Sample, a.Default) }

// IPAttr declares a net.IP-typed attribute.
type IPAttr struct {
	Default  *string
	Required bool
	Sample   any
}

func (a IPAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default == nil {
			return nil, nil
		}
		raw = *a.Default
	}
	switch v := raw.(type) {
	case net.IP:
		return v, nil
	case string:
		if len(v) > 45 { // max IPv6 textual length
			return nil, fmt.Errorf("%s: %w: invalid IP length %d", ctx, ErrCoercion, len(v))
		}
		ip := net.ParseIP(v)
		if ip == nil {
			return nil, fmt.Errorf("%s: %w: invalid IP address %q", ctx, ErrCoercion, v)
		}
		return ip, nil
	default:
		return nil, fmt.Errorf("%s: %w: cannot use %T as IP address", ctx, ErrCoercion, raw)
	}
}

func (a IPAttr) Validate(value any, ctx Path) []string {
	if value == nil && a.Required {
		return []string{"is required"}
	}
	return nil
}

func (a IPAttr) Example() any { return exampleValue(a.Sample, a.Default) }

// StringsAttr declares a []string-typed attribute. A plain string is split on
// commas; slices have their elements coerced individually.
type StringsAttr struct {
	Default  []string
	Required bool
	Sample   any
}

func (a StringsAttr) Load(raw any, ctx Path) (any, error) {
	if raw == nil {
		if a.Default != nil {
			return append([]string(nil), a.Default...), nil
		}
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case string:
		if v == "" {
			return []string{}, nil
		}
		parts := strings.Split(v, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		return parts, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, err := coerceString(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ctx, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: %w: cannot use %T as string list", ctx, ErrCoercion, raw)
	}
}

func (a StringsAttr) Validate(value any, ctx Path) []string {
	if value == nil && a.Required {
		return []string{"is required"}
	}
	return nil
}

func (a StringsAttr) Example() any {
	if a.Sample != nil {
		return a.Sample
	}
	if a.Default != nil {
		return append([]string(nil), a.Default...)
	}
	return nil
}

// NestedAttr declares a key whose value is itself a configuration described
// by Schema. Loading produces a *Config over the explicit sub-mapping stored
// under the key; the core then merges in flattened parent-level entries.
type NestedAttr struct {
	Schema *Schema
}

func (a NestedAttr) Load(raw any, ctx Path) (any, error) {
	// A previously resolved child can re-enter through raw state (Set stores
	// the coerced *Config into the raw mapping); rebuild it from its own raw
	// mapping so resolution starts fresh.
	if existing, ok := raw.(*Config); ok {
		raw = existing.raw
	}
	m, err := normalizeRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx, err)
	}
	// The child owns its raw mapping by value; copy so merges into the child
	// never reach the parent's sub-mapping.
	own := make(map[string]any, len(m))
	for k, v := range m {
		own[k] = v
	}
	return newConfig(a.Schema, own, ctx)
}

// Validate returns nil; the validation pipeline recurses into the child
// Config directly.
func (a NestedAttr) Validate(value any, ctx Path) []string { return nil }

func (a NestedAttr) SchemaType() *Schema { return a.Schema }

func exampleValue[T any](sample any, def *T) any {
	if sample != nil {
		return sample
	}
	if def != nil {
		return *def
	}
	return nil
}

// coerceString converts common scalar types to string.
func coerceString(val any) (string, error) {
	if s, ok := val.(string); ok {
		return s, nil
	}
	switch v := val.(type) {
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case int, int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(val).Int(), 10), nil
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(val).Uint(), 10), nil
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case error:
		return v.Error(), nil
	default:
		return "", fmt.Errorf("%w: %T to string", ErrCoercion, val)
	}
}

// coerceInt64 converts numeric types, parsable strings, and booleans to int64.
func coerceInt64(val any) (int64, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		maxInt64 := int64(^uint64(0) >> 1)
		if u > uint64(maxInt64) {
			return 0, fmt.Errorf("%w: unsigned integer %d to int64: overflow", ErrCoercion, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), nil
	case reflect.String:
		s := v.String()
		if i, err := strconv.ParseInt(s, 0, 64); err == nil { // base 0 allows "0xFF"
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: string %q to int64", ErrCoercion, s)
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T to int64", ErrCoercion, val)
}

// coerceFloat64 converts numeric types, parsable strings, and booleans to float64.
func coerceFloat64(val any) (float64, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.String:
		s := v.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return 0, fmt.Errorf("%w: string %q to float64", ErrCoercion, s)
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T to float64", ErrCoercion, val)
}

// coerceBool converts parsable strings and numeric types (0=false) to bool.
func coerceBool(val any) (bool, error) {
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		s := v.String()
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
		return false, fmt.Errorf("%w: string %q to bool", ErrCoercion, s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}
	return false, fmt.Errorf("%w: %T to bool", ErrCoercion, val)
}
