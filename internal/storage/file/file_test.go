package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/memomap/memomap/internal/config"
	"github.com/memomap/memomap/internal/model"
)

func testMarkers() []model.Marker {
	memo := "first trip"
	return []model.Marker{
		{
			ID:         "37.5665,126.978-1700000000000",
			Position:   model.Position{Lat: 37.5665, Lng: 126.978},
			Title:      "Seoul",
			Memo:       &memo,
			Categories: []model.Category{model.CategoryMemory, model.CategorySpring},
		},
		{
			ID:         "35.1796,129.0756-1700000000001",
			Position:   model.Position{Lat: 35.1796, Lng: 129.0756},
			Title:      "Busan",
			Categories: []model.Category{model.CategoryWishlist},
		},
	}
}

func newTestBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	b := New(config.FileConfig{
		Path:           filepath.Join(t.TempDir(), "memomap-markers.json"),
		CompressOutput: compress,
	})
	if err := b.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	return b
}

func TestFileBackend_RoundTrip(t *testing.T) {
	b := newTestBackend(t, false)

	if err := b.Save(testMarkers()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := b.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(loaded))
	}
	if loaded[0].ID != "37.5665,126.978-1700000000000" {
		t.Errorf("order not preserved: first id %s", loaded[0].ID)
	}
	if loaded[0].Memo == nil || *loaded[0].Memo != "first trip" {
		t.Error("memo not preserved")
	}
	if loaded[1].Memo != nil {
		t.Error("absent memo should stay nil")
	}
	if len(loaded[0].Categories) != 2 || loaded[0].Categories[0] != model.CategoryMemory {
		t.Errorf("categories not preserved: %v", loaded[0].Categories)
	}
}

func TestFileBackend_LoadMissingFile(t *testing.T) {
	b := newTestBackend(t, false)

	loaded, err := b.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty collection, got %d markers", len(loaded))
	}
}

func TestFileBackend_LoadCorruptSnapshot(t *testing.T) {
	b := newTestBackend(t, false)

	if err := os.WriteFile(b.cfg.Path, []byte(`{"not":"an array"`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Load(); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}

func TestFileBackend_SaveReplacesSlot(t *testing.T) {
	b := newTestBackend(t, false)

	if err := b.Save(testMarkers()); err != nil {
		t.Fatal(err)
	}
	if err := b.Save(testMarkers()[:1]); err != nil {
		t.Fatal(err)
	}

	loaded, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 {
		t.Errorf("expected 1 marker after overwrite, got %d", len(loaded))
	}
}

func TestFileBackend_SaveEmpty(t *testing.T) {
	b := newTestBackend(t, false)

	if err := b.Save(nil); err != nil {
		t.Fatal(err)
	}

	loaded, err := b.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty collection, got %d markers", len(loaded))
	}
}

func TestFileBackend_CompressedRoundTrip(t *testing.T) {
	b := newTestBackend(t, true)

	if err := b.Save(testMarkers()); err != nil {
		t.Fatal(err)
	}

	// On-disk bytes should be gzip, not JSON.
	raw, err := os.ReadFile(b.cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) < 2 || raw[0] != 0x1f || raw[1] != 0x8b {
		t.Error("expected gzip magic bytes in compressed snapshot")
	}

	loaded, err := b.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected 2 markers, got %d", len(loaded))
	}
}

func TestFileBackend_CompressionToggle(t *testing.T) {
	// Save compressed, then load with compression off.
	compressed := newTestBackend(t, true)
	if err := compressed.Save(testMarkers()); err != nil {
		t.Fatal(err)
	}

	plain := New(config.FileConfig{Path: compressed.cfg.Path})
	loaded, err := plain.Load()
	if err != nil {
		t.Fatalf("load failed after toggling compression: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected 2 markers, got %d", len(loaded))
	}
}

func TestFileBackend_InitCreatesParentDir(t *testing.T) {
	dir := t.TempDir()
	b := New(config.FileConfig{Path: filepath.Join(dir, "nested", "deep", "markers.json")})

	if err := b.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if err := b.Save(testMarkers()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
}
