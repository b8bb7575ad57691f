package story

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a hand-authored story written in YAML. The shape is the
// same as the JSON document; it is normalized through JSON so both formats
// share one decoder.
func ParseYAML(data []byte) (Document, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse story yaml: %w", err)
	}

	normalized, err := json.Marshal(stringKeys(raw))
	if err != nil {
		return nil, fmt.Errorf("story yaml is not representable as json: %w", err)
	}
	return ParseDocument(normalized)
}

// stringKeys rewrites YAML maps so every key is a string. yaml.v3 decodes
// maps with keys such as 1 or true as map[interface{}]interface{}.
func stringKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			t[k] = stringKeys(child)
		}
		return t
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = stringKeys(child)
		}
		return out
	case []interface{}:
		for i, child := range t {
			t[i] = stringKeys(child)
		}
		return t
	default:
		return v
	}
}
