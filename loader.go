package flatconf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FromEnv builds a Config whose raw mapping is taken from the process
// environment. Only variables starting with prefix are included, with the
// prefix stripped; the remaining (typically SCREAMING_SNAKE_CASE) names
// resolve against lowercase declared keys through the core's
// case-insensitive fetch and sub-selection.
//
// An empty prefix includes the entire environment.
func FromEnv(schema *Schema, prefix string) (*Config, error) {
	raw := make(map[string]any)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.TrimPrefix(name, prefix)
		if key == "" {
			continue
		}
		if len(value) > MaxValueSize {
			return nil, fmt.Errorf("%w: environment variable %s", ErrValueSize, name)
		}
		raw[key] = value
	}
	return New(schema, raw)
}

// FromFile builds a Config from a TOML, JSON, or YAML file. The format is
// detected from the extension, then by probing the content. Nested tables are
// flattened into separator-joined flat keys, so file structure and flattened
// environment keys resolve identically.
//
// A missing file returns ErrConfigNotFound.
func FromFile(schema *Schema, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
		if format == "" {
			return nil, fmt.Errorf("unable to determine config format for file '%s'", path)
		}
	}

	nested := make(map[string]any)
	switch format {
	case "toml":
		if err := toml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config file '%s': %w", path, err)
		}
	case "json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber() // preserve number precision
		if err := decoder.Decode(&nested); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config file '%s': %w", path, err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &nested); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
		}
	}

	return New(schema, flattenMap(nested, "", schema.Separator()))
}

// FromArgs builds a Config from command-line arguments. Accepted forms are
// "--key=value", "--key value", and bare "--flag" (stored as "true"). Keys
// are flat keys as declared, e.g. "--database_host localhost".
func FromArgs(schema *Schema, args []string) (*Config, error) {
	raw, err := parseArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}
	return New(schema, raw)
}

// parseArgs processes command-line arguments into a flat raw mapping.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" used as a separator
			i++
			continue
		}

		var key string
		var valueStr string

		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			key = parts[0]
			valueStr = parts[1]
			i++
		} else {
			key = argContent
			// A flag followed by another flag or end of args is boolean
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if !isValidKey(key) {
			return nil, fmt.Errorf("invalid command-line key %q", key)
		}
		if len(valueStr) > MaxValueSize {
			return nil, fmt.Errorf("%w: argument --%s", ErrValueSize, key)
		}

		result[key] = parseValue(valueStr)
	}

	return result, nil
}

// parseValue strips surrounding quotes; everything else stays a string for
// the attributes to coerce.
func parseValue(s string) any {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// detectFileFormat determines format from the file extension.
func detectFileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return ""
	}
}

// detectFormatFromContent attempts to detect format by parsing.
func detectFormatFromContent(data []byte) string {
	// JSON first (strict format)
	var jsonTest any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// YAML is a superset of JSON, so check after JSON
	var yamlTest any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil {
		return "yaml"
	}

	var tomlTest any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return ""
}
