package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls Recorder buffering.
type Config struct {
	// BufferSize is the channel depth between Record and the sink goroutine.
	BufferSize int
	// DropIfFull makes Record drop the entry instead of blocking when the
	// buffer is full. Dropped entries increment the Dropped counter.
	DropIfFull bool
}

// Recorder asynchronously appends entries to a sink. Record never blocks the
// request path beyond a channel send; sink failures are logged, not returned.
type Recorder struct {
	cfg       Config
	sink      Sink
	log       *slog.Logger
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewRecorder starts the sink goroutine. A nil sink records into a NoOpSink;
// a nil logger falls back to slog.Default.
func NewRecorder(cfg Config, sink Sink, log *slog.Logger) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Recorder{
		cfg:  cfg,
		sink: sink,
		log:  log,
		ch:   make(chan Entry, cfg.BufferSize),
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.ch:
			r.deliver(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.ch:
					r.deliver(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) deliver(entry Entry) {
	if err := r.sink.Write(context.Background(), entry); err != nil {
		r.log.Warn("audit sink write failed",
			"action", string(entry.Action),
			"actor_id", entry.ActorID,
			"error", err)
	}
}

// Record enqueues an entry. A zero Timestamp is stamped here so callers can
// build entries without touching the clock. Safe to call on a nil or closed
// Recorder; such calls are no-ops.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if r.cfg.DropIfFull {
		select {
		case r.ch <- entry:
		case <-r.done:
		default:
			r.dropped.Add(1)
		}
		return
	}

	select {
	case r.ch <- entry:
	case <-ctx.Done():
	case <-r.done:
	}
}

// Close drains buffered entries into the sink and stops the goroutine.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
		r.wg.Wait()
	})
}

// Dropped returns the number of entries discarded because the buffer was
// full. Exposed for monitoring so silent loss stays visible.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}
