// Package flatconf resolves deeply nested, typed configuration from a single
// flat mapping of string keys to raw values, in the style of environment
// variables (DATABASE_HOST=x becomes database.host).
//
// Features:
//   - Flat key to nested tree resolution with prefix sub-selection
//   - Case-insensitive raw key matching (DATABASE_HOST resolves database_host)
//   - Lazy per-key resolution with memoization
//   - Schema-driven typed attributes with coercion and soft validation
//   - Cross-field requirement predicates and unknown-key detection
//   - Raw-mapping sources: environment, TOML/JSON/YAML files, CLI arguments
//   - Struct decoding of the resolved tree via mapstructure
//   - TOML export of the fully resolved snapshot
//
// Quick Start:
//
//	schema := flatconf.NewBuilder().
//	    Key("debug", flatconf.BoolAttr{Default: flatconf.Ptr(false)}).
//	    Key("database", flatconf.NestedAttr{Schema: flatconf.NewBuilder().
//	        Key("host", flatconf.StringAttr{Required: true}).
//	        Key("port", flatconf.Int64Attr{Default: flatconf.Ptr(int64(5432))}).
//	        MustBuild()}).
//	    MustBuild()
//
//	cfg, err := flatconf.FromEnv(schema, "MYAPP_")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	db, _ := cfg.Nested("database")
//	host, _ := db.String("host")
//
// Nested values may come from an explicit sub-mapping stored under the key,
// from flattened key<separator>subkey entries at the parent level, or both;
// flattened entries take precedence.
//
// Concurrency:
// A Config is single-writer, unsynchronized mutable state. Callers needing
// concurrent access must serialize externally or treat instances as immutable
// after the first full Validate.
package flatconf
