package flatconf

// Attribute is the typed-value collaborator consumed by the resolution core.
// A schema declares one Attribute per key; the Config instance drives it
// through Load on first read and Validate during the validation pipeline.
type Attribute interface {
	// Load coerces a raw value to the attribute's declared type. A nil raw
	// value means the key was absent from the raw mapping; the attribute
	// decides what absence means (default, nil, error). Coercion failures are
	// hard errors and propagate unchanged out of Get/Set/Validate.
	Load(raw any, ctx Path) (any, error)

	// Validate inspects an already-loaded value and returns soft findings as
	// plain strings. An empty or nil slice means the value is acceptable.
	Validate(value any, ctx Path) []string
}

// SchemaTyped is implemented by attributes whose declared type is itself a
// configuration schema. The core resolves such keys recursively: the raw
// value under the key (an explicit sub-mapping, defaulting to empty) is
// loaded into a child Config, then prefix sub-selected flat entries from the
// parent are merged in on top.
type SchemaTyped interface {
	Attribute
	SchemaType() *Schema
}

// BoolValued reports that an attribute resolves to a boolean. Keys declared
// with a BoolValued attribute additionally get a predicate accessor
// (Config.Is) that collapses absence and load failures to false.
type BoolValued interface {
	IsBoolValued() bool
}

// Exampler is implemented by attributes that can produce a representative
// raw value. Example uses it to seed synthetic instances.
type Exampler interface {
	Example() any
}

// Requirement is a cross-field predicate evaluated against the full resolved
// value set during validation. It returns a finding string, or "" when the
// requirement is satisfied. Nested keys appear in the value set as *Config.
type Requirement func(values map[string]any) string
