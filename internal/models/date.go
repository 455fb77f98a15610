package models

import "time"

// DueDateLayout is the canonical wire format of Task.DueDate.
const DueDateLayout = "2006-01-02"

var dueDateLayouts = []string{
	DueDateLayout,
	"2 Jan 2006",
	"02 Jan 2006",
	time.RFC3339,
}

// ParseDueDate accepts the date formats a form or API client may send.
func ParseDueDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeDueDate rewrites a parseable date into DueDateLayout.
func NormalizeDueDate(value string) (string, bool) {
	t, ok := ParseDueDate(value)
	if !ok {
		return "", false
	}
	return t.Format(DueDateLayout), true
}
