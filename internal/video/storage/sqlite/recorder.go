package sqlite

import (
	"sync"

	"github.com/banshee-data/stabilizer/internal/monitoring"
	"github.com/banshee-data/stabilizer/internal/video/l6stabilize"
)

// DefaultBatchSize is the number of samples a Recorder buffers before
// writing them.
const DefaultBatchSize = 64

// Recorder writes the frame samples of one run to a RunStore. It
// implements l6stabilize.Observer. Write failures are logged and kept in
// Err; they never stop the stream.
type Recorder struct {
	store *RunStore
	runID string
	batch int

	mu      sync.Mutex
	pending []l6stabilize.FrameSample
	written int
	err     error
}

// NewRecorder returns a recorder for runID. batch <= 0 uses
// DefaultBatchSize.
func NewRecorder(store *RunStore, runID string, batch int) *Recorder {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Recorder{store: store, runID: runID, batch: batch}
}

// ObserveFrame buffers s and writes the buffer once it is full.
func (r *Recorder) ObserveFrame(s l6stabilize.FrameSample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = append(r.pending, s)
	if len(r.pending) >= r.batch {
		r.flushLocked()
	}
}

// Flush writes any buffered samples and returns the first error seen.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
	return r.err
}

// Written returns the number of samples stored so far.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) flushLocked() {
	if len(r.pending) == 0 {
		return
	}
	n := len(r.pending)
	if err := r.store.InsertSamples(r.runID, r.pending); err != nil {
		monitoring.Logf("[recorder] run %s: dropping %d samples: %v", r.runID, n, err)
		if r.err == nil {
			r.err = err
		}
	} else {
		r.written += n
	}
	r.pending = r.pending[:0]
}
