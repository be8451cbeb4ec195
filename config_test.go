package flatconf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAttr records how many times Load runs, for memoization assertions.
type countingAttr struct {
	loads *int
}

func (a countingAttr) Load(raw any, ctx Path) (any, error) {
	*a.loads++
	return raw, nil
}

func (a countingAttr) Validate(value any, ctx Path) []string { return nil }

func TestNew(t *testing.T) {
	schema := NewBuilder().Key("host", StringAttr{}).MustBuild()

	t.Run("NilRawTreatedAsEmpty", func(t *testing.T) {
		cfg, err := New(schema, nil)
		require.NoError(t, err)
		v, err := cfg.Get("host")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("NilSchema", func(t *testing.T) {
		_, err := New(nil, nil)
		assert.Error(t, err)
	})

	t.Run("StringStringMap", func(t *testing.T) {
		cfg, err := New(schema, map[string]string{"host": "h"})
		require.NoError(t, err)
		v, err := cfg.String("host")
		require.NoError(t, err)
		assert.Equal(t, "h", v)
	})

	t.Run("AnyKeysStringified", func(t *testing.T) {
		cfg, err := New(schema, map[any]any{"host": "h"})
		require.NoError(t, err)
		v, err := cfg.String("host")
		require.NoError(t, err)
		assert.Equal(t, "h", v)
	})

	t.Run("InvalidKeyType", func(t *testing.T) {
		_, err := New(schema, map[any]any{42: "h"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidKeyType)
	})

	t.Run("NonMapRaw", func(t *testing.T) {
		_, err := New(schema, "not a map")
		assert.Error(t, err)
	})
}

func TestGet(t *testing.T) {
	t.Run("UndefinedKey", func(t *testing.T) {
		schema := NewBuilder().Key("host", StringAttr{}).MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		_, err = cfg.Get("not_declared")
		assert.ErrorIs(t, err, ErrUndefinedKey)
	})

	t.Run("Memoization", func(t *testing.T) {
		loads := 0
		schema := NewBuilder().Key("value", countingAttr{loads: &loads}).MustBuild()
		cfg, err := New(schema, map[string]any{"value": "v"})
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			v, err := cfg.Get("value")
			require.NoError(t, err)
			assert.Equal(t, "v", v)
		}
		assert.Equal(t, 1, loads)
	})

	t.Run("CaseInsensitiveRawKey", func(t *testing.T) {
		schema := NewBuilder().Key("foo_bar", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"Foo_Bar": "v"})
		require.NoError(t, err)

		v, err := cfg.Get("foo_bar")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("MissingLeafDefersToAttribute", func(t *testing.T) {
		schema := NewBuilder().
			Key("port", Int64Attr{Default: Ptr(int64(8080))}).
			Key("host", StringAttr{}).
			MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		port, err := cfg.Int64("port")
		require.NoError(t, err)
		assert.Equal(t, int64(8080), port)

		host, err := cfg.Get("host")
		require.NoError(t, err)
		assert.Nil(t, host)
	})

	t.Run("CoercionFailurePropagates", func(t *testing.T) {
		schema := NewBuilder().Key("port", Int64Attr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"port": "not-a-number"})
		require.NoError(t, err)

		_, err = cfg.Get("port")
		assert.ErrorIs(t, err, ErrCoercion)
	})
}

func TestSet(t *testing.T) {
	t.Run("UndefinedKey", func(t *testing.T) {
		schema := NewBuilder().Key("host", StringAttr{}).MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		err = cfg.Set("not_declared", 1)
		assert.ErrorIs(t, err, ErrUndefinedKey)
	})

	t.Run("WritesCacheAndRaw", func(t *testing.T) {
		loads := 0
		schema := NewBuilder().Key("value", countingAttr{loads: &loads}).MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("value", "v"))
		assert.Equal(t, 1, loads)

		// Reads return the coerced value without re-invoking the resolver.
		v, err := cfg.Get("value")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
		assert.Equal(t, 1, loads)

		// The exact-key raw write is preferred over insensitive scan.
		assert.Equal(t, "v", cfg.Fetch("value", nil))
	})

	t.Run("CoercesThroughAttribute", func(t *testing.T) {
		schema := NewBuilder().Key("port", Int64Attr{}).MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("port", "9090"))
		port, err := cfg.Int64("port")
		require.NoError(t, err)
		assert.Equal(t, int64(9090), port)
	})

	t.Run("CoercionFailureLeavesStateAlone", func(t *testing.T) {
		schema := NewBuilder().Key("port", Int64Attr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"port": 1})
		require.NoError(t, err)

		err = cfg.Set("port", "not-a-number")
		require.ErrorIs(t, err, ErrCoercion)

		port, err := cfg.Int64("port")
		require.NoError(t, err)
		assert.Equal(t, int64(1), port)
	})
}

func TestFetch(t *testing.T) {
	schema := NewBuilder().Key("host", StringAttr{}).MustBuild()
	cfg, err := New(schema, map[string]any{"Host": "insensitive", "port": 5})
	require.NoError(t, err)

	t.Run("ExactMatchWins", func(t *testing.T) {
		assert.Equal(t, 5, cfg.Fetch("port", nil))
	})

	t.Run("CaseInsensitiveFallback", func(t *testing.T) {
		assert.Equal(t, "insensitive", cfg.Fetch("host", nil))
		assert.Equal(t, "insensitive", cfg.Fetch("HOST", nil))
	})

	t.Run("FallbackEvaluated", func(t *testing.T) {
		assert.Equal(t, "absent", cfg.Fetch("missing", func() any { return "absent" }))
	})

	t.Run("NilWithoutFallback", func(t *testing.T) {
		assert.Nil(t, cfg.Fetch("missing", nil))
	})
}

func TestSubselect(t *testing.T) {
	t.Run("PrefixExtraction", func(t *testing.T) {
		schema := NewBuilder().Key("db", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"db_host": "h", "db_port": 5, "other": 1})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"host": "h", "port": 5}, cfg.Subselect("db"))
	})

	t.Run("CaseInsensitivePrefix", func(t *testing.T) {
		schema := NewBuilder().Key("db", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"DB_HOST": "h"})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"HOST": "h"}, cfg.Subselect("db"))
	})

	t.Run("CustomSeparator", func(t *testing.T) {
		schema := NewBuilder().Separator("__").Key("db", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"db__host": "h", "db_port": 5})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"host": "h"}, cfg.Subselect("db"))
	})

	t.Run("NoMatches", func(t *testing.T) {
		schema := NewBuilder().Key("db", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"other": 1})
		require.NoError(t, err)

		assert.Empty(t, cfg.Subselect("db"))
	})
}

func TestNestedResolution(t *testing.T) {
	database := NewBuilder().
		Key("host", StringAttr{}).
		Key("port", Int64Attr{Default: Ptr(int64(5432))}).
		MustBuild()
	schema := NewBuilder().
		Key("database", NestedAttr{Schema: database}).
		MustBuild()

	t.Run("FromExplicitSubMapping", func(t *testing.T) {
		cfg, err := New(schema, map[string]any{
			"database": map[string]any{"host": "explicit"},
		})
		require.NoError(t, err)

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		assert.Equal(t, "explicit", host)
	})

	t.Run("FromFlattenedKeys", func(t *testing.T) {
		cfg, err := New(schema, map[string]any{"database_host": "flat"})
		require.NoError(t, err)

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		assert.Equal(t, "flat", host)
	})

	t.Run("FlattenedOverridesExplicit", func(t *testing.T) {
		cfg, err := New(schema, map[string]any{
			"database":      map[string]any{"host": "explicit"},
			"database_host": "flat",
		})
		require.NoError(t, err)

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		assert.Equal(t, "flat", host)
	})

	t.Run("AbsentKeyYieldsEmptyChild", func(t *testing.T) {
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		port, err := db.Int64("port")
		require.NoError(t, err)
		assert.Equal(t, int64(5432), port)
	})

	t.Run("ChildIsMemoized", func(t *testing.T) {
		cfg, err := New(schema, map[string]any{"database_host": "h"})
		require.NoError(t, err)

		first, err := cfg.Nested("database")
		require.NoError(t, err)
		second, err := cfg.Nested("database")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("SetThenMergeRebuildsChild", func(t *testing.T) {
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("database", map[string]any{"host": "h"}))

		// Merge discards the cache; the child stored in raw by Set must
		// survive re-resolution.
		cfg.Merge(map[string]any{})

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		assert.Equal(t, "h", host)
	})

	t.Run("MergeAfterSetPicksUpFlattenedKeys", func(t *testing.T) {
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		require.NoError(t, cfg.Set("database", map[string]any{"host": "set"}))
		cfg.Merge(map[string]any{"database_host": "merged"})

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		assert.Equal(t, "merged", host)
	})

	t.Run("ChildOwnsItsRawMapping", func(t *testing.T) {
		sub := map[string]any{"host": "explicit"}
		cfg, err := New(schema, map[string]any{
			"database":      sub,
			"database_host": "flat",
		})
		require.NoError(t, err)

		db, err := cfg.Nested("database")
		require.NoError(t, err)
		host, err := db.String("host")
		require.NoError(t, err)
		require.Equal(t, "flat", host)

		// Resolution merged the flattened entry into the child only; the
		// parent's explicit sub-mapping is untouched.
		assert.Equal(t, map[string]any{"host": "explicit"}, sub)

		require.NoError(t, db.Set("host", "child-write"))
		assert.Equal(t, map[string]any{"host": "explicit"}, sub)
	})

	t.Run("ScalarRawValueFails", func(t *testing.T) {
		cfg, err := New(schema, map[string]any{"database": "oops"})
		require.NoError(t, err)

		_, err = cfg.Get("database")
		assert.ErrorIs(t, err, ErrCoercion)
	})

	t.Run("NonNestedKeyViaNested", func(t *testing.T) {
		flat := NewBuilder().Key("host", StringAttr{}).MustBuild()
		cfg, err := New(flat, map[string]any{"host": "h"})
		require.NoError(t, err)

		_, err = cfg.Nested("host")
		assert.Error(t, err)
	})
}

func TestMerge(t *testing.T) {
	t.Run("InvalidatesCache", func(t *testing.T) {
		schema := NewBuilder().Key("host", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"host": "old"})
		require.NoError(t, err)

		v, err := cfg.String("host")
		require.NoError(t, err)
		require.Equal(t, "old", v)

		cfg.Merge(map[string]any{"host": "new"})

		v, err = cfg.String("host")
		require.NoError(t, err)
		assert.Equal(t, "new", v)
	})

	t.Run("ExactKeyOverwrite", func(t *testing.T) {
		schema := NewBuilder().Key("host", StringAttr{}).MustBuild()
		cfg, err := New(schema, map[string]any{"Host": "cased"})
		require.NoError(t, err)

		cfg.Merge(map[string]any{"host": "exact"})

		// Both raw entries survive; exact match wins in fetch.
		assert.Equal(t, "exact", cfg.Fetch("host", nil))
	})

	t.Run("ReturnsInstanceForChaining", func(t *testing.T) {
		schema := NewBuilder().Key("a", StringAttr{}).Key("b", StringAttr{}).MustBuild()
		cfg, err := New(schema, nil)
		require.NoError(t, err)

		got := cfg.Merge(map[string]any{"a": "1"}).Merge(map[string]any{"b": "2"})
		assert.Same(t, cfg, got)

		a, _ := cfg.String("a")
		b, _ := cfg.String("b")
		assert.Equal(t, "1", a)
		assert.Equal(t, "2", b)
	})
}

func TestPredicate(t *testing.T) {
	schema := NewBuilder().
		Key("debug", BoolAttr{}).
		Key("verbose", BoolAttr{Default: Ptr(true)}).
		Key("name", StringAttr{}).
		MustBuild()

	tests := []struct {
		name string
		raw  map[string]any
		key  string
		want bool
	}{
		{"TrueValue", map[string]any{"debug": true}, "debug", true},
		{"TrueString", map[string]any{"debug": "true"}, "debug", true},
		{"FalseValue", map[string]any{"debug": false}, "debug", false},
		{"Missing", nil, "debug", false},
		{"MissingWithDefault", nil, "verbose", true},
		{"LoadFailureIsFalse", map[string]any{"debug": "not-a-bool"}, "debug", false},
		{"NonBoolKey", map[string]any{"name": "x"}, "name", false},
		{"UndeclaredKey", nil, "nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := New(schema, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Is(tt.key))
		})
	}
}

func TestTypedGetters(t *testing.T) {
	schema := NewBuilder().
		Key("host", StringAttr{}).
		Key("port", Int64Attr{}).
		Key("ratio", Float64Attr{}).
		Key("debug", BoolAttr{}).
		MustBuild()
	cfg, err := New(schema, map[string]any{
		"host":  "localhost",
		"port":  "9090",
		"ratio": "0.5",
		"debug": "true",
	})
	require.NoError(t, err)

	host, err := cfg.String("host")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)

	port, err := cfg.Int64("port")
	require.NoError(t, err)
	assert.Equal(t, int64(9090), port)

	ratio, err := cfg.Float64("ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio)

	debug, err := cfg.Bool("debug")
	require.NoError(t, err)
	assert.True(t, debug)
}
