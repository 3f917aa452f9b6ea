package support

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// lookupJSONField resolves a dotted path such as "fields.decision_number" in
// data and renders the value as a string. JSON null renders as "null".
func lookupJSONField(data []byte, path string) (string, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("invalid JSON: %w\n%s", err, data)
	}
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return "", fmt.Errorf("field %q not found in path %q", part, path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return "", fmt.Errorf("invalid index %q in path %q", part, path)
			}
			cur = node[i]
		default:
			return "", fmt.Errorf("cannot descend into %q in path %q", part, path)
		}
	}
	switch v := cur.(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	case map[string]any, []any:
		out, err := json.Marshal(v)
		return string(out), err
	default:
		return fmt.Sprint(v), nil
	}
}

func jsonFieldShouldBe(data []byte, path, expected string) error {
	got, err := lookupJSONField(data, path)
	if err != nil {
		return err
	}
	if got != expected {
		return fmt.Errorf("field %s = %q, expected %q", path, got, expected)
	}
	return nil
}
