// Package file implements the storage.Backend interface as a single JSON
// snapshot file, optionally gzip-compressed. It is the default backend and
// mirrors the single-slot semantics of the original web client's storage key.
package file

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/memomap/memomap/internal/config"
	"github.com/memomap/memomap/internal/model"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Backend stores the marker snapshot in one JSON file.
type Backend struct {
	cfg config.FileConfig
}

// New creates a new file backend.
func New(cfg config.FileConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init ensures the parent directory exists.
func (b *Backend) Init() error {
	dir := filepath.Dir(b.cfg.Path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// Save writes the snapshot, replacing the previous one. The write goes to a
// temp file first and is renamed into place so a crash never leaves a
// half-written slot.
func (b *Backend) Save(markers []model.Marker) error {
	if markers == nil {
		markers = []model.Marker{}
	}

	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if b.cfg.CompressOutput {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to compress snapshot: %w", err)
		}
		data = buf.Bytes()
	}

	tmp := b.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.cfg.Path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. A missing file yields an empty collection;
// anything unreadable or undecodable is an error and the caller discards the
// slot. Compressed snapshots are detected by the gzip magic bytes, so
// toggling compressOutput between runs is safe.
func (b *Backend) Load() ([]model.Marker, error) {
	data, err := os.ReadFile(b.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Marker{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
	}

	var markers []model.Marker
	if err := json.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if markers == nil {
		markers = []model.Marker{}
	}
	return markers, nil
}
