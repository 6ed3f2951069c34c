package dtos

import (
	"fmt"
	"strings"
	"time"
)

// FlexTime accepts either a plain date ("2024-01-31") or an RFC 3339 timestamp.
type FlexTime struct {
	time.Time
}

var flexLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range flexLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid time %q: expected YYYY-MM-DD or RFC 3339", s)
}

// NewFlexTime wraps a time value.
func NewFlexTime(t time.Time) *FlexTime {
	return &FlexTime{Time: t.UTC()}
}
