package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadFixture parses a YAML document of table-keyed row lists into
// map[string]any records ready for Create/Format/Parse, e.g.:
//
//	user:
//	  - name: ada
//	    email: ada@example.com
//	  - name: grace
//	    email: grace@example.com
//
// into {"user": [{"name": "ada", ...}, {"name": "grace", ...}]}. It exists
// so table-driven tests can describe fixture rows as data instead of Go
// literals.
func LoadFixture(data []byte) (map[string][]map[string]any, error) {
	var raw map[string][]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("model: parsing fixture: %w", err)
	}
	return raw, nil
}
