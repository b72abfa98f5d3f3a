package mapdb

import (
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "maps", "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestRecordAndGet(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordSave("factory", "/maps/factory.zst", 120, 7)
	idx.Sync()

	m, ok, err := idx.Get("factory")
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if m.Path != "/maps/factory.zst" || m.Tick != 120 || m.Tiles != 7 {
		t.Fatalf("row: %+v", m)
	}
	if m.SavedAt.IsZero() {
		t.Fatalf("saved_at not recorded")
	}

	if _, ok, err := idx.Get("ghost"); err != nil || ok {
		t.Fatalf("unknown name: %v %v", ok, err)
	}
}

func TestRecordReplacesByName(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordSave("factory", "/maps/factory.zst", 10, 3)
	idx.RecordSave("factory", "/maps/factory.zst", 20, 5)
	idx.Sync()

	rows, err := idx.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want one row, got %d", len(rows))
	}
	if rows[0].Tick != 20 || rows[0].Tiles != 5 {
		t.Fatalf("older row won: %+v", rows[0])
	}
}

func TestListMostRecentFirst(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordSave("alpha", "/maps/alpha.zst", 1, 1)
	idx.Sync()
	idx.RecordSave("beta", "/maps/beta.zst", 2, 1)
	idx.Sync()

	rows, err := idx.List()
	if err != nil || len(rows) != 2 {
		t.Fatalf("list: %v %v", rows, err)
	}
	if rows[0].SavedAt.Before(rows[1].SavedAt) {
		t.Fatalf("not most recent first: %+v", rows)
	}
	// Equal timestamps fall back to name order.
	if rows[0].SavedAt.Equal(rows[1].SavedAt) && rows[0].Name != "alpha" {
		t.Fatalf("tie break wrong: %+v", rows)
	}
}

func TestDelete(t *testing.T) {
	idx := openTestIndex(t)

	idx.RecordSave("factory", "/maps/factory.zst", 1, 1)
	idx.Sync()
	if err := idx.Delete("factory"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := idx.Get("factory"); ok {
		t.Fatalf("row survived delete")
	}
}

func TestNilAndClosedAreSafe(t *testing.T) {
	var nilIdx *SQLiteIndex
	nilIdx.RecordSave("x", "p", 1, 1)
	nilIdx.Sync()

	idx := openTestIndex(t)
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	idx.RecordSave("x", "p", 1, 1)
	idx.Sync()
	if err := idx.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	idx.RecordSave("factory", "/maps/factory.zst", 5, 2)
	idx.Sync()
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	if _, ok, err := idx.Get("factory"); err != nil || !ok {
		t.Fatalf("row lost across reopen: %v %v", ok, err)
	}
}
