package model

import (
	"strings"

	"github.com/cosmotype/cosmotype/field"
)

// Format flattens nested values into dotted-path keys. When strict is
// true, top-level keys that are not declared
// fields are rejected with an InvalidField error. Expression terms
// (values implementing field.Typed) pass through unchanged rather than
// being flattened further.
func (m *Model) Format(obj map[string]any, strict bool) (map[string]any, error) {
	return m.format(obj, strict, "")
}

func (m *Model) format(obj map[string]any, strict bool, prefix string) (map[string]any, error) {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if strict && prefix == "" {
			if _, ok := m.Fields[k]; !ok {
				return nil, field.NewInvalidFieldError("unknown field: " + k)
			}
		}
		if _, ok := v.(field.Typed); ok {
			out[path] = v
			continue
		}
		if sub, ok := v.(map[string]any); ok && len(sub) > 0 {
			flat, err := m.format(sub, strict, path)
			if err != nil {
				return nil, err
			}
			for sk, sv := range flat {
				out[sk] = sv
			}
			continue
		}
		out[path] = v
	}
	return out, nil
}

// Parse reverses dotted-path flattening into a nested object.
func Parse(flat map[string]any) map[string]any {
	out := make(map[string]any, len(flat))
	for path, v := range flat {
		segs := strings.Split(path, ".")
		cur := out
		for i, seg := range segs {
			if i == len(segs)-1 {
				cur[seg] = v
				break
			}
			next, ok := cur[seg].(map[string]any)
			if !ok {
				next = make(map[string]any)
				cur[seg] = next
			}
			cur = next
		}
	}
	return out
}
