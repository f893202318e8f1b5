package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

const (
	TableAlerts string = "alerts"
	TableRooms  string = "rooms"
)

// ChangeEvent is one row-level mutation as delivered by the change feed.
// New is set for insert and update, Old for delete (and for update when the
// publisher knows the previous row). Both hold the JSON of the row.
type ChangeEvent struct {
	Table  string          `json:"table"`
	Type   EventType       `json:"type"`
	UserID string          `json:"user_id"`
	New    json.RawMessage `json:"new,omitempty"`
	Old    json.RawMessage `json:"old,omitempty"`
	At     time.Time       `json:"at"`
}

func NewChangeEvent(table string, eventType EventType, userID string, newRow, oldRow any) (ChangeEvent, error) {
	ev := ChangeEvent{Table: table, Type: eventType, UserID: userID, At: time.Now().UTC()}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return ev, err
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return ev, err
		}
		ev.Old = b
	}
	return ev, nil
}

// AlertChange is a ChangeEvent on the alerts table with typed rows.
type AlertChange struct {
	Type EventType
	New  *Alert
	Old  *Alert
}

// ID is the id of the row the change applies to.
func (c AlertChange) ID() uint {
	if c.New != nil {
		return c.New.ID
	}
	if c.Old != nil {
		return c.Old.ID
	}
	return 0
}

// DecodeAlertChange validates a raw event at the feed boundary. Rows that do
// not carry what their event type needs are rejected with ErrMalformedRow.
func DecodeAlertChange(ev ChangeEvent) (AlertChange, error) {
	change := AlertChange{Type: ev.Type}
	if ev.Table != TableAlerts {
		return change, fmt.Errorf("%w: event for table %q is not an alert change", ErrMalformedRow, ev.Table)
	}

	if len(ev.New) > 0 {
		var a Alert
		if err := json.Unmarshal(ev.New, &a); err != nil {
			return change, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		change.New = &a
	}
	if len(ev.Old) > 0 {
		var a Alert
		if err := json.Unmarshal(ev.Old, &a); err != nil {
			return change, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		change.Old = &a
	}

	switch ev.Type {
	case EventInsert, EventUpdate:
		if change.New == nil {
			return change, fmt.Errorf("%w: %s event without new row", ErrMalformedRow, ev.Type)
		}
		if err := change.New.Validate(); err != nil {
			return change, err
		}
	case EventDelete:
		if change.ID() == 0 {
			return change, fmt.Errorf("%w: delete event without row id", ErrMalformedRow)
		}
	default:
		return change, fmt.Errorf("%w: unknown event type %q", ErrMalformedRow, ev.Type)
	}
	return change, nil
}
