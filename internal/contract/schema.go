// Package contract validates JSON payloads returned by the API under test
// against the shapes the site depends on, and decodes them into typed records.
package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Field is a required value at a dot-separated Path relative to its parent.
// Kind ldvalue.RawType accepts any non-null value.
type Field struct {
	Path     string
	Kind     ldvalue.ValueType
	MinItems int
	// Items applies to every element when Kind is ldvalue.ArrayType.
	Items []Field
}

// Schema is the set of fields a payload object must carry.
type Schema []Field

// Problem is one missing or mismatched field.
type Problem struct {
	Path string `json:"path"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: want %s, got %s", p.Path, p.Want, p.Got)
}

// ValidationError lists every problem found in a payload.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// AsValue renders the problems for attaching to a result.
func (e *ValidationError) AsValue() ldvalue.Value {
	arr := ldvalue.ArrayBuild()
	for _, p := range e.Problems {
		arr.Add(ldvalue.ObjectBuild().
			Set("path", ldvalue.String(p.Path)).
			Set("want", ldvalue.String(p.Want)).
			Set("got", ldvalue.String(p.Got)).
			Build())
	}
	return arr.Build()
}

// Validate checks v against the schema. It returns nil or a *ValidationError.
func (s Schema) Validate(v ldvalue.Value) error {
	if v.Type() != ldvalue.ObjectType {
		return &ValidationError{Problems: []Problem{{Path: "$", Want: "object", Got: kindName(v)}}}
	}
	var problems []Problem
	validateFields(v, "", s, &problems)
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateFields(parent ldvalue.Value, prefix string, fields []Field, problems *[]Problem) {
	for _, f := range fields {
		path := prefix + f.Path
		v := lookup(parent, f.Path)
		if v.IsNull() {
			*problems = append(*problems, Problem{Path: path, Want: wantName(f.Kind), Got: "missing"})
			continue
		}
		if f.Kind != ldvalue.RawType && v.Type() != f.Kind {
			*problems = append(*problems, Problem{Path: path, Want: wantName(f.Kind), Got: kindName(v)})
			continue
		}
		if f.Kind != ldvalue.ArrayType {
			continue
		}
		if v.Count() < f.MinItems {
			*problems = append(*problems, Problem{
				Path: path,
				Want: fmt.Sprintf("at least %d items", f.MinItems),
				Got:  fmt.Sprintf("%d items", v.Count()),
			})
			continue
		}
		for i := 0; i < v.Count(); i++ {
			item := v.GetByIndex(i)
			itemPath := fmt.Sprintf("%s[%d].", path, i)
			if len(f.Items) > 0 && item.Type() != ldvalue.ObjectType {
				*problems = append(*problems, Problem{Path: strings.TrimSuffix(itemPath, "."), Want: "object", Got: kindName(item)})
				continue
			}
			validateFields(item, itemPath, f.Items, problems)
		}
	}
}

func lookup(v ldvalue.Value, path string) ldvalue.Value {
	for _, key := range strings.Split(path, ".") {
		if v.Type() != ldvalue.ObjectType {
			return ldvalue.Null()
		}
		v = v.GetByKey(key)
	}
	return v
}

func wantName(k ldvalue.ValueType) string {
	if k == ldvalue.RawType {
		return "any value"
	}
	return k.String()
}

func kindName(v ldvalue.Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.Type().String()
}

// Parse decodes body as JSON.
func Parse(body []byte) (ldvalue.Value, error) {
	var v ldvalue.Value
	if err := json.Unmarshal(body, &v); err != nil {
		return ldvalue.Null(), fmt.Errorf("parsing JSON: %w", err)
	}
	return v, nil
}

// Decode parses body, validates it against schema and decodes it into T.
// The parsed value is returned alongside so callers can attach it to a
// failed result.
func Decode[T any](body []byte, schema Schema) (T, ldvalue.Value, error) {
	var out T
	v, err := Parse(body)
	if err != nil {
		return out, ldvalue.Null(), err
	}
	if err := schema.Validate(v); err != nil {
		return out, v, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, v, fmt.Errorf("decoding payload: %w", err)
	}
	return out, v, nil
}
