package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (s *failingSink) Write(context.Context, Entry) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return errors.New("backend down")
}

type blockingSink struct {
	release chan struct{}
	sink    *ChannelSink
}

func (s *blockingSink) Write(ctx context.Context, entry Entry) error {
	<-s.release
	return s.sink.Write(ctx, entry)
}

func TestRecorderDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	rec := NewRecorder(Config{BufferSize: 8}, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer rec.Close()

	rec.Record(context.Background(), Entry{
		ActorID:    "u-1",
		Action:     ActionLogin,
		EntityType: "session",
		SourceIP:   "10.0.0.9",
		Success:    true,
	})

	select {
	case got := <-sink.Entries():
		if got.Action != ActionLogin || got.ActorID != "u-1" {
			t.Fatalf("unexpected entry: %+v", got)
		}
		if got.Timestamp.IsZero() {
			t.Fatal("recorder must stamp a zero timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("entry never reached sink")
	}
}

func TestRecorderCloseDrains(t *testing.T) {
	sink := NewChannelSink(64)
	rec := NewRecorder(Config{BufferSize: 64}, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 20; i++ {
		rec.Record(context.Background(), Entry{Action: ActionRead, EntityType: "patient"})
	}
	rec.Close()

	got := 0
	for {
		select {
		case <-sink.Entries():
			got++
		default:
			if got != 20 {
				t.Fatalf("drained %d entries, want 20", got)
			}
			return
		}
	}
}

func TestRecorderDropIfFull(t *testing.T) {
	inner := NewChannelSink(1)
	blocking := &blockingSink{release: make(chan struct{}), sink: inner}
	rec := NewRecorder(Config{BufferSize: 1, DropIfFull: true}, blocking, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// First entry occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		rec.Record(context.Background(), Entry{Action: ActionCreate})
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected dropped entries with a full buffer")
		}
		time.Sleep(time.Millisecond)
	}

	close(blocking.release)
	rec.Close()
}

func TestSinkFailureIsLoggedNotFatal(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	handler := slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, nil)

	sink := &failingSink{}
	rec := NewRecorder(Config{BufferSize: 4}, sink, slog.New(handler))
	rec.Record(context.Background(), Entry{Action: ActionDelete, ActorID: "u-2"})
	rec.Close()

	sink.mu.Lock()
	calls := sink.calls
	sink.mu.Unlock()
	if calls != 1 {
		t.Fatalf("sink called %d times, want 1", calls)
	}

	mu.Lock()
	logged := buf.String()
	mu.Unlock()
	if !strings.Contains(logged, "audit sink write failed") {
		t.Fatalf("expected warning log, got %q", logged)
	}
}

type lockedWriter struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func TestRecorderNilSafety(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), Entry{Action: ActionRead})
	rec.Close()
	if rec.Dropped() != 0 {
		t.Fatal("nil recorder should report zero drops")
	}
}

func TestRecordAfterCloseIsNoOp(t *testing.T) {
	sink := NewChannelSink(4)
	rec := NewRecorder(Config{BufferSize: 4}, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec.Close()

	rec.Record(context.Background(), Entry{Action: ActionRead})
	select {
	case <-sink.Entries():
		t.Fatal("closed recorder must not deliver")
	default:
	}
}

func TestJSONWriterSinkOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	entries := []Entry{
		{Action: ActionLogin, ActorID: "u-1", Success: true, Timestamp: time.Now().UTC()},
		{Action: ActionExport, ActorID: "u-2", EntityType: "patients", Timestamp: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := sink.Write(context.Background(), e); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	var decoded Entry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if decoded.Action != ActionExport {
		t.Fatalf("decoded action = %q, want export", decoded.Action)
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionLogin, ActionLogout, ActionSearch, ActionExport} {
		if !a.Valid() {
			t.Fatalf("action %q should be valid", a)
		}
	}
	if Action("truncate").Valid() {
		t.Fatal("unknown action must be invalid")
	}
}
