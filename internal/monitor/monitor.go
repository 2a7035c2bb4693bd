// Package monitor periodically reports runtime status: live marker count,
// persistence queue depth, and the duration of the last snapshot write.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/memomap/memomap/internal/influx"
	"github.com/memomap/memomap/internal/logging"
	"github.com/memomap/memomap/internal/store"
	"github.com/memomap/memomap/internal/worker"
)

// Status is one snapshot of the program's runtime state.
type Status struct {
	Time                time.Time `json:"time"`
	Markers             int       `json:"markers"`
	WriteQueueLength    int       `json:"writeQueueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Store      *store.Store
	Writer     *worker.Writer
	Influx     *influx.Manager // optional
	LogManager *logging.SlogManager

	// StatusDir is where status.txt is written. Empty disables the file.
	StatusDir string
	Interval  time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Minute
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current program status.
func (s *Service) GetStatus() Status {
	return Status{
		Time:                time.Now(),
		Markers:             s.deps.Store.MarkerCount(),
		WriteQueueLength:    s.deps.Writer.QueueLen(),
		LastWriteDurationMs: float32(s.deps.Writer.GetLastWriteDuration().Milliseconds()),
	}
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.report(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(statusFile *os.File) {
	logger := s.deps.LogManager.Logger()
	status := s.GetStatus()

	logger.Info("Status",
		"markers", status.Markers,
		"writeQueue", status.WriteQueueLength,
		"lastWriteMs", status.LastWriteDurationMs,
	)

	if statusFile != nil {
		statusStr, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		statusFile.Truncate(0)
		statusFile.Seek(0, 0)
		statusFile.Write(append(statusStr, '\n'))
	}

	if s.deps.Influx != nil {
		point := influxdb2_write.NewPointWithMeasurement("status").
			AddField("markers", status.Markers).
			AddField("write_queue", status.WriteQueueLength).
			AddField("last_write_ms", status.LastWriteDurationMs).
			SetTime(status.Time)
		if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketMutations, point); err != nil {
			logger.Error("Error writing status point", "error", err)
		}
	}
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
