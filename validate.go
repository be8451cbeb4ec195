package flatconf

import (
	"fmt"
	"sort"
)

// Validate runs the full validation pipeline and returns the collected
// findings as plain strings. An empty list with a nil error means valid.
//
// Three phases always run, in order, with no short-circuiting between them:
//
//  1. attribute validation: every declared key is resolved (forcing the lazy
//     load, so a coercion failure aborts the call with that error) and its
//     attribute's Validate findings are collected, tagged with the sub-context
//     path; nested configurations recurse.
//  2. requirement validation: every schema-level requirement runs against the
//     resolved value set.
//  3. key-set validation: unless the schema allows extra keys, every raw key
//     not declared in the schema produces one unknown-key finding.
//
// Validate is idempotent on an unmutated instance.
func (c *Config) Validate() ([]string, error) {
	return c.validateAt(c.ctx)
}

func (c *Config) validateAt(ctx Path) ([]string, error) {
	findings := []string{}

	// Phase 1: per-attribute resolution and validation, declaration order.
	for _, key := range c.schema.keys {
		child := ctx.Child(key)
		value, err := c.resolve(key, child, nil)
		if err != nil {
			return nil, err
		}

		if nested, ok := value.(*Config); ok {
			sub, err := nested.validateAt(child)
			if err != nil {
				return nil, err
			}
			findings = append(findings, sub...)
			continue
		}

		attr := c.schema.attrs[key]
		for _, msg := range attr.Validate(value, child) {
			findings = append(findings, fmt.Sprintf("%s: %s", child, msg))
		}
	}

	// Phase 2: cross-field requirements over the resolved value set.
	if len(c.schema.requirements) > 0 {
		values := make(map[string]any, len(c.resolved))
		for k, v := range c.resolved {
			values[k] = v
		}
		for _, req := range c.schema.requirements {
			if msg := req(values); msg != "" {
				findings = append(findings, fmt.Sprintf("%s: %s", ctx, msg))
			}
		}
	}

	// Phase 3: unknown-key detection. Exact stringified set difference; a
	// raw key matching a declared key only case-insensitively still counts
	// as extra here.
	if !c.schema.allowExtra {
		var extras []string
		for k := range c.raw {
			if _, declared := c.schema.attrs[k]; !declared {
				extras = append(extras, k)
			}
		}
		sort.Strings(extras)
		for _, k := range extras {
			findings = append(findings, fmt.Sprintf("%s: unknown key %q received", ctx, k))
		}
	}

	return findings, nil
}
