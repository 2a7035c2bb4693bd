// Package worker runs the background snapshot writer that persists the
// marker collection to the configured storage backend.
package worker

import (
	"sync"
	"time"

	"github.com/memomap/memomap/internal/channel"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/model"
	"github.com/memomap/memomap/internal/queue"
	"github.com/memomap/memomap/internal/storage"
)

// Dependencies holds all dependencies for the snapshot writer.
type Dependencies struct {
	LogManager *logging.SlogManager
}

// Writer drains queued snapshots to the storage backend on its own
// goroutine. Queued snapshots coalesce: a burst of mutations produces one
// write with the newest collection, older entries are dropped unwritten.
// Write failures are logged and never surface to the mutation path.
type Writer struct {
	deps    Dependencies
	backend storage.Backend

	snapshots *queue.Queue[[]model.Marker]
	wake      channel.Channel[struct{}]
	stopChan  chan struct{}
	doneChan  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	mu            sync.RWMutex
	lastWriteTook time.Duration
}

// NewWriter creates a snapshot writer for the given backend.
func NewWriter(deps Dependencies, backend storage.Backend) *Writer {
	return &Writer{
		deps:      deps,
		backend:   backend,
		snapshots: queue.New[[]model.Marker](),
		wake:      channel.New[struct{}](1),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Enqueue queues a snapshot for writing and wakes the writer. Never blocks;
// if a wake signal is already pending the new snapshot rides along with it.
func (w *Writer) Enqueue(markers []model.Marker) {
	w.snapshots.Push(markers)
	w.wake.TrySend(struct{}{})
}

// QueueLen returns the number of unwritten snapshots.
func (w *Writer) QueueLen() int {
	return w.snapshots.Len()
}

// GetLastWriteDuration returns the duration of the last backend write.
func (w *Writer) GetLastWriteDuration() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastWriteTook
}

// Start launches the writer goroutine.
func (w *Writer) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Stop shuts the writer down, flushing any pending snapshot first.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	<-w.doneChan
}

func (w *Writer) run() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			w.flush()
			return
		case <-w.wake.Receive():
			w.flush()
		}
	}
}

// flush writes the newest queued snapshot, discarding superseded ones.
func (w *Writer) flush() {
	snapshot, ok := w.snapshots.TakeLatest()
	if !ok {
		return
	}

	start := time.Now()
	err := w.backend.Save(snapshot)
	took := time.Since(start)

	w.mu.Lock()
	w.lastWriteTook = took
	w.mu.Unlock()

	logger := w.deps.LogManager.Logger()
	if err != nil {
		logger.Error("Snapshot write failed", "markers", len(snapshot), "duration", took, "error", err)
		return
	}
	logger.Debug("Snapshot written", "markers", len(snapshot), "duration", took)
}
