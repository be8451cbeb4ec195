package flatconf

// Example builds a synthetic instance whose raw mapping is seeded from the
// example contents of the schema's attributes. Leaf attributes contribute
// through the Exampler interface (nil examples are skipped); nested schemas
// contribute explicit sub-mappings recursively.
func Example(schema *Schema) (*Config, error) {
	return New(schema, exampleRaw(schema))
}

func exampleRaw(schema *Schema) map[string]any {
	raw := make(map[string]any)
	for _, key := range schema.keys {
		attr := schema.attrs[key]
		if st, ok := attr.(SchemaTyped); ok && st.SchemaType() != nil {
			raw[key] = exampleRaw(st.SchemaType())
			continue
		}
		if ex, ok := attr.(Exampler); ok {
			if v := ex.Example(); v != nil {
				raw[key] = v
			}
		}
	}
	return raw
}
