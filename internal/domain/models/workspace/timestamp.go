package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a point in time that travels as epoch milliseconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: time.UnixMilli(t.UnixMilli())}
}

// TimestampFromMillis builds a Timestamp from epoch milliseconds.
func TimestampFromMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms)}
}

// Millis returns the epoch milliseconds.
func (t Timestamp) Millis() int64 {
	return t.UnixMilli()
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", t.UnixMilli())), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}

	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("timestamp must be epoch milliseconds: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}

// MarshalYAML writes the timestamp as an RFC 3339 string.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.UTC().Format(time.RFC3339), nil
}
