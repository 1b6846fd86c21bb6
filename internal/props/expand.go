package props

import (
	"fmt"
	"strings"

	rigerrors "github.com/rigbuild/rig/internal/errors"
)

// Expand substitutes {name} references in s with property values.
// {name:-fallback} uses the fallback when the property is unset; a plain
// {name} reference to an unset property fails with ErrMissingProperty.
// Substitution is a single pass: substituted values are inserted literally,
// never re-expanded.
func (s *Store) Expand(input string) (string, error) {
	var out strings.Builder
	rest := input
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			// Unterminated brace: treat as literal text.
			out.WriteString(rest)
			return out.String(), nil
		}
		closing += open

		out.WriteString(rest[:open])
		ref := rest[open+1 : closing]
		rest = rest[closing+1:]

		name, fallback, hasFallback := strings.Cut(ref, ":-")
		value, ok := s.Get(name)
		switch {
		case ok:
			out.WriteString(value)
		case hasFallback:
			out.WriteString(fallback)
		default:
			return "", fmt.Errorf("property %q referenced in %q: %w", name, input, rigerrors.ErrMissingProperty)
		}
	}
}

// ExpandAll expands every string in values, failing on the first missing
// property.
func (s *Store) ExpandAll(values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	expanded := make([]string, len(values))
	for i, v := range values {
		result, err := s.Expand(v)
		if err != nil {
			return nil, err
		}
		expanded[i] = result
	}
	return expanded, nil
}

// ExpandMap expands every value in a string map, returning a new map.
// Keys are not expanded.
func (s *Store) ExpandMap(values map[string]string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	expanded := make(map[string]string, len(values))
	for k, v := range values {
		result, err := s.Expand(v)
		if err != nil {
			return nil, err
		}
		expanded[k] = result
	}
	return expanded, nil
}
