// Package schema describes agent input and output shapes as plain values
// (field name -> kind + description) and validates decoded JSON against them.
package schema

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindList
	KindMap
)

var ErrUnknownKind = errors.New("unknown field type")

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// ParseKind accepts the usual type spellings users send in field lists.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "str", "string":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "number":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	case "list", "array":
		return KindList, nil
	case "dict", "map", "object":
		return KindMap, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

type Field struct {
	Kind        Kind
	Description string
}

type Schema map[string]Field

// FieldSpec is the wire form of a field: {"type": "str", "description": "..."}.
type FieldSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// FromSpecs builds a schema from wire field specs. An empty spec map is rejected.
func FromSpecs(specs map[string]FieldSpec) (Schema, error) {
	if len(specs) == 0 {
		return nil, errors.New("schema has no fields")
	}
	s := make(Schema, len(specs))
	for name, spec := range specs {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("field name is empty")
		}
		kind, err := ParseKind(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		s[name] = Field{Kind: kind, Description: spec.Description}
	}
	return s, nil
}

// Names returns the field names in sorted order.
func (s Schema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError lists every problem found in one document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "schema validation failed: " + strings.Join(e.Problems, "; ")
}

// Validate checks that doc has exactly the schema's fields with matching kinds.
func (s Schema) Validate(doc map[string]any) error {
	var problems []string

	for _, name := range s.Names() {
		v, ok := doc[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing", name))
			continue
		}
		if !matches(s[name].Kind, v) {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", name, s[name].Kind, typeName(v)))
		}
	}

	var extra []string
	for name := range doc {
		if _, ok := s[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		problems = append(problems, fmt.Sprintf("%s: unknown field", name))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Describe renders the schema as one line per field, sorted by name.
func (s Schema) Describe() string {
	var b strings.Builder
	for _, name := range s.Names() {
		f := s[name]
		fmt.Fprintf(&b, "- %s (%s)", name, f.Kind)
		if f.Description != "" {
			b.WriteString(": ")
			b.WriteString(f.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func matches(kind Kind, v any) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt:
		switch n := v.(type) {
		case int, int32, int64:
			return true
		case float64:
			return n == math.Trunc(n) && !math.IsInf(n, 0)
		}
		return false
	case KindFloat:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindList:
		_, ok := v.([]any)
		return ok
	case KindMap:
		_, ok := v.(map[string]any)
		return ok
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, float32, int, int32, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
