package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layouts read as local wall-clock time when a timestamp carries no offset.
// A fractional second is accepted after the seconds field.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an RFC 3339 timestamp, or a naive one in local time.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// decodeTimestamp decodes an optional JSON timestamp; absent and null are nil.
func decodeTimestamp(raw json.RawMessage) (*time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("timestamp must be a string: %w", err)
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *TelemetryCreate) UnmarshalJSON(data []byte) error {
	type Alias TelemetryCreate
	aux := struct {
		*Alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{Alias: (*Alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	c.Timestamp = ts
	return nil
}

func (c *FuelLogCreate) UnmarshalJSON(data []byte) error {
	type Alias FuelLogCreate
	aux := struct {
		*Alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{Alias: (*Alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	c.Timestamp = ts
	return nil
}

func (c *AlertCreate) UnmarshalJSON(data []byte) error {
	type Alias AlertCreate
	aux := struct {
		*Alias
		Timestamp json.RawMessage `json:"timestamp"`
	}{Alias: (*Alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := decodeTimestamp(aux.Timestamp)
	if err != nil {
		return err
	}
	c.Timestamp = ts
	return nil
}
