package workspace

import (
	"bytes"
	"encoding/json"
)

// Status is the writing stage of a file
type Status string

const (
	StatusBrainstorming Status = "brainstorming"
	StatusWriting       Status = "writing"
	StatusCompleted     Status = "completed"
)

// Statuses lists every status in workflow order
var Statuses = []Status{StatusBrainstorming, StatusWriting, StatusCompleted}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Metadata is writing-progress data attached to files only.
type Metadata struct {
	WordCount       int        `json:"wordCount" yaml:"wordCount"`
	Status          Status     `json:"status" yaml:"status"`
	TargetWordCount *int       `json:"targetWordCount,omitempty" yaml:"targetWordCount,omitempty"`
	Deadline        *Timestamp `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// DefaultMetadata is what every new file starts with
func DefaultMetadata() Metadata {
	return Metadata{WordCount: 0, Status: StatusBrainstorming}
}

// Clone returns a deep copy
func (m Metadata) Clone() Metadata {
	c := m
	if m.TargetWordCount != nil {
		v := *m.TargetWordCount
		c.TargetWordCount = &v
	}
	if m.Deadline != nil {
		v := *m.Deadline
		c.Deadline = &v
	}
	return c
}

// Optional tracks presence and value for JSON PATCH semantics (RFC 7396):
//   - Present=false: field absent (don't change)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value!=nil: set
type Optional[T any] struct {
	Present bool
	Value   *T
}

// Set returns a present Optional holding v
func Set[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: &v}
}

// Clear returns a present Optional holding null
func Clear[T any]() Optional[T] {
	return Optional[T]{Present: true}
}

// UnmarshalJSON is only called when the field is present in the JSON.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MetadataPatch is a partial metadata update. WordCount and Status cannot be
// cleared; a present-but-null value for them is ignored.
type MetadataPatch struct {
	WordCount       Optional[int]       `json:"wordCount"`
	Status          Optional[Status]    `json:"status"`
	TargetWordCount Optional[int]       `json:"targetWordCount"`
	Deadline        Optional[Timestamp] `json:"deadline"`
}

// IsEmpty reports whether the patch changes nothing
func (p MetadataPatch) IsEmpty() bool {
	return !p.WordCount.Present && !p.Status.Present && !p.TargetWordCount.Present && !p.Deadline.Present
}

// Apply returns m with the patch merged in.
func (p MetadataPatch) Apply(m Metadata) Metadata {
	out := m.Clone()
	if p.WordCount.Present && p.WordCount.Value != nil {
		out.WordCount = *p.WordCount.Value
	}
	if p.Status.Present && p.Status.Value != nil {
		out.Status = *p.Status.Value
	}
	if p.TargetWordCount.Present {
		if p.TargetWordCount.Value == nil {
			out.TargetWordCount = nil
		} else {
			v := *p.TargetWordCount.Value
			out.TargetWordCount = &v
		}
	}
	if p.Deadline.Present {
		if p.Deadline.Value == nil {
			out.Deadline = nil
		} else {
			v := *p.Deadline.Value
			out.Deadline = &v
		}
	}
	return out
}
