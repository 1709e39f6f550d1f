package helper

import (
	"encoding/json"
	"strings"
)

// ParseDelimitedList normalizes a list form field. Several values are taken
// as they are; a single value is read as a JSON array when it is one and
// otherwise split on commas and newlines. Blank items are dropped.
func ParseDelimitedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		var arr []string
		if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &arr) == nil {
			values = arr
		} else {
			values = strings.FieldsFunc(raw, func(r rune) bool {
				return r == ',' || r == '\n' || r == '\r'
			})
		}
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
