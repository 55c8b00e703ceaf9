// Package audit implements an append-only trail for security-relevant
// operations. A buffered Recorder dispatches entries off the request path, so
// a persistence failure degrades to a logged warning rather than a failed
// request. Silent loss under pressure is the accepted trade-off; the dropped
// counter exists so monitoring can surface it.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Action is the closed set of operations the trail records.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionSearch Action = "search"
	ActionExport Action = "export"
)

// Valid reports whether the action is one of the closed enumeration values.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete,
		ActionLogin, ActionLogout, ActionSearch, ActionExport:
		return true
	}
	return false
}

// Entry is a single immutable trail record. Entries are append-only; no
// update or delete operation exists anywhere in the package.
type Entry struct {
	Timestamp     time.Time         `json:"timestamp"`
	ActorID       string            `json:"actor_id,omitempty"`
	Action        Action            `json:"action"`
	EntityType    string            `json:"entity_type,omitempty"`
	EntityID      string            `json:"entity_id,omitempty"`
	Changes       map[string]string `json:"changes,omitempty"`
	SourceIP      string            `json:"source_ip,omitempty"`
	UserAgent     string            `json:"user_agent,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	StatusCode    int               `json:"status_code,omitempty"`
	Duration      time.Duration     `json:"duration_ns,omitempty"`
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
}

// Sink persists trail entries. Implementations must tolerate concurrent
// Write calls; the Recorder serializes them, but sinks are also usable
// directly.
type Sink interface {
	Write(ctx context.Context, entry Entry) error
}

// NoOpSink discards entries.
type NoOpSink struct{}

func (NoOpSink) Write(context.Context, Entry) error { return nil }

// ChannelSink forwards entries into a buffered channel, mainly for tests and
// in-process consumers.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan Entry, buffer)}
}

func (s *ChannelSink) Write(ctx context.Context, entry Entry) error {
	select {
	case s.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Entries exposes the receiving side of the sink.
func (s *ChannelSink) Entries() <-chan Entry { return s.entries }

// JSONWriterSink appends one JSON object per line to a writer.
type JSONWriterSink struct {
	mu     sync.Mutex
	writer io.Writer
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Write(_ context.Context, entry Entry) error {
	if s == nil || s.writer == nil {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	_, err = s.writer.Write([]byte("\n"))
	return err
}
