package encoder

import (
	"fmt"
	"strings"
)

// ParseAttributes parses "family=value" pairs separated by commas,
// e.g. "sex=male,age=age_30_40".
func ParseAttributes(s string) (Attributes, error) {
	attrs := make(Attributes)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed attribute %q, want family=value", part)
		}
		if _, dup := attrs[key]; dup {
			return nil, fmt.Errorf("attribute %q given twice", key)
		}
		attrs[key] = value
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("no attributes in %q", s)
	}
	return attrs, nil
}
