package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tables that can be watched.
const (
	TableTasks    = "tasks"
	TableSubTasks = "sub_tasks"
	TableProfiles = "users_detail"
)

// EventType is the kind of row change carried by a ChangeEvent.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"

	// EventSystem acknowledges a subscription; it carries no row.
	EventSystem EventType = "SYSTEM"
)

// ChangeEvent describes one row insert, update or delete on a watched table.
// New is empty for deletes; Old is empty for inserts.
type ChangeEvent struct {
	Table           string          `json:"table"`
	Type            EventType       `json:"type"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`

	// Owner is the user the row belongs to. It routes the event and is not
	// sent over the wire.
	Owner string `json:"-"`
}

// NewChangeEvent marshals the row images of a change.
func NewChangeEvent(table string, typ EventType, owner string, newRow, oldRow any) (ChangeEvent, error) {
	evt := ChangeEvent{
		Table:           table,
		Type:            typ,
		Owner:           owner,
		CommitTimestamp: time.Now().UTC(),
	}
	var err error
	if newRow != nil {
		if evt.New, err = json.Marshal(newRow); err != nil {
			return ChangeEvent{}, err
		}
	}
	if oldRow != nil {
		if evt.Old, err = json.Marshal(oldRow); err != nil {
			return ChangeEvent{}, err
		}
	}
	return evt, nil
}

// Record returns the row image that identifies the changed row: Old for
// deletes and New otherwise.
func (e ChangeEvent) Record() json.RawMessage {
	if e.Type == EventDelete {
		return e.Old
	}
	return e.New
}

// Stream is an open change-event subscription. Events is closed once the
// stream ends; Close releases it.
type Stream interface {
	Events() <-chan ChangeEvent
	Close() error
}

var ErrInvalidFilter = errors.New("invalid filter")

// Filter restricts a subscription to rows whose column equals a value. The
// textual form is "column=eq.value".
type Filter struct {
	Column string
	Value  string
}

// ParseFilter parses "column=eq.value". An empty string yields the zero
// Filter, which matches every row.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return Filter{}, nil
	}
	column, rest, ok := strings.Cut(s, "=")
	if !ok || column == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	value, ok := strings.CutPrefix(rest, "eq.")
	if !ok || value == "" {
		return Filter{}, fmt.Errorf("%w: only eq is supported in %q", ErrInvalidFilter, s)
	}
	return Filter{Column: column, Value: value}, nil
}

// EqFilter builds the textual form of an equality filter.
func EqFilter(column, value string) string {
	return column + "=eq." + value
}

func (f Filter) IsZero() bool {
	return f.Column == ""
}

func (f Filter) String() string {
	if f.IsZero() {
		return ""
	}
	return EqFilter(f.Column, f.Value)
}

// Matches reports whether the event's row satisfies the filter. The user_id
// column also matches on the event owner, so rows that reference their user
// only through a parent (sub-tasks) can be filtered per user.
func (f Filter) Matches(e ChangeEvent) bool {
	if f.IsZero() {
		return true
	}
	if f.Column == "user_id" && e.Owner != "" {
		return e.Owner == f.Value
	}
	var row map[string]any
	if err := json.Unmarshal(e.Record(), &row); err != nil {
		return false
	}
	v, ok := row[f.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == f.Value
}
