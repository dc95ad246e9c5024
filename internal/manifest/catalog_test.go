package manifest

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(filepath.Join(t.TempDir(), "uploads.db"))
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestCatalog_RecordAndLookup(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()
	key := "streams/raw/year=2025/month=01/day=16/2025-01-16T00_30_00.json"

	uploaded, err := catalog.IsUploaded(ctx, key)
	if err != nil {
		t.Fatalf("IsUploaded failed: %v", err)
	}
	if uploaded {
		t.Error("fresh catalog should not know the key")
	}

	if err := catalog.RecordUpload(ctx, key, "/data/streams/2025-01-15T23_30_00_123Z.json"); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}

	uploaded, err = catalog.IsUploaded(ctx, key)
	if err != nil {
		t.Fatalf("IsUploaded failed: %v", err)
	}
	if !uploaded {
		t.Error("recorded key should be reported as uploaded")
	}
}

func TestCatalog_RecordUploadIsIdempotent(t *testing.T) {
	catalog := newTestCatalog(t)
	ctx := context.Background()
	key := "streams/raw/year=2025/month=01/day=16/a.json"

	if err := catalog.RecordUpload(ctx, key, "a.json"); err != nil {
		t.Fatalf("first RecordUpload failed: %v", err)
	}
	if err := catalog.RecordUpload(ctx, key, "a.json"); err != nil {
		t.Fatalf("second RecordUpload failed: %v", err)
	}

	n, err := catalog.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d rows after double record, want 1", n)
	}
}

func TestCatalog_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "uploads.db")
	ctx := context.Background()
	key := "streams/raw/year=2025/month=01/day=16/b.json"

	catalog, err := NewCatalog(dbPath)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	if err := catalog.RecordUpload(ctx, key, "b.json"); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}
	if err := catalog.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewCatalog(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen catalog: %v", err)
	}
	defer reopened.Close()

	uploaded, err := reopened.IsUploaded(ctx, key)
	if err != nil {
		t.Fatalf("IsUploaded failed: %v", err)
	}
	if !uploaded {
		t.Error("catalog should persist across reopen")
	}
}
