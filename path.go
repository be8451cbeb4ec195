package flatconf

import "strings"

// Path is an error-context token: the ordered key segments leading to the
// value being resolved or validated. The zero value is the root context.
type Path []string

// NewPath builds a path from the given segments.
func NewPath(segments ...string) Path {
	return Path(segments)
}

// Child returns a new path extended by key. The receiver is not modified.
func (p Path) Child(key string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, key)
}

// String renders the path with dot separators. The root context renders as
// "config" so error messages always name something.
func (p Path) String() string {
	if len(p) == 0 {
		return "config"
	}
	return strings.Join(p, ".")
}
