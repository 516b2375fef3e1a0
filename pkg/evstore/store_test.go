package evstore

import (
	"os"
	"path/filepath"
	"testing"

	osiris "github.com/osiris-exp/reco_go/pkg"
	"github.com/osiris-exp/reco_go/pkg/osiristest"
)

// openTestStore creates a DuckDB store with the schema initialized.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.duckdb"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := st.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertEvents_WhenCalledTwice_ShouldKeepInsertionOrder(t *testing.T) {
	st := openTestStore(t)
	events := osiristest.Events()

	if err := st.InsertEvents(events[2:]); err != nil {
		t.Fatal(err)
	}
	if err := st.InsertEvents(events[:2]); err != nil {
		t.Fatal(err)
	}

	got, err := st.Events()
	if err != nil {
		t.Fatal(err)
	}
	want := []osiris.Event{events[2], events[0], events[1]}
	osiristest.CompareEvents(t, got, want)
}

func TestEvents_WhenQueriedWithSQL_ShouldExposeColumns(t *testing.T) {
	st := openTestStore(t)
	if err := st.InsertEvents(osiristest.Events()); err != nil {
		t.Fatal(err)
	}

	var valid int
	if err := st.db.Get(&valid, `SELECT COUNT(*) FROM events WHERE position_valid`); err != nil {
		t.Fatal(err)
	}
	if valid != 2 {
		t.Errorf("valid positions = %d, want 2", valid)
	}
	var hits int
	if err := st.db.Get(&hits, `SELECT COUNT(*) FROM hit_timing`); err != nil {
		t.Fatal(err)
	}
	if hits != 3 {
		t.Errorf("hit rows = %d, want 3", hits)
	}
}

func TestWriter_WhenCommitted_ShouldRoundTripAllTables(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "reco.duckdb")
	writer, err := NewWriter(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	if err := writer.WriteRunInfo(osiristest.Run()); err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEvents(osiristest.Events()); err != nil {
		t.Fatal(err)
	}
	if err := writer.WritePairs(osiristest.Pairs()); err != nil {
		t.Fatal(err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatal(err)
	}

	runs, events, pairs, err := ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0] != osiristest.Run() {
		t.Errorf("runs = %+v, want %+v", runs, osiristest.Run())
	}
	osiristest.CompareEvents(t, events, osiristest.Events())
	osiristest.ComparePairs(t, pairs, osiristest.Pairs())
}

func TestWriter_WhenClosedWithoutCommit_ShouldLeaveNoFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(filepath.Join(dir, "reco.duckdb"))
	if err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEvents(osiristest.Events()); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory, found %d entries", len(entries))
	}
}
