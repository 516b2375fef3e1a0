package h5table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/osiris-exp/reco_go/pkg/osiristest"
)

func writeTestFile(t *testing.T, filename string) {
	t.Helper()
	writer, err := NewWriter(filename, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	if err := writer.WriteRunInfo(osiristest.Run()); err != nil {
		t.Fatal(err)
	}
	events := osiristest.Events()
	if err := writer.WriteEvents(events[:1]); err != nil {
		t.Fatal(err)
	}
	if err := writer.WriteEvents(events[1:]); err != nil {
		t.Fatal(err)
	}
	if err := writer.WritePairs(osiristest.Pairs()); err != nil {
		t.Fatal(err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestWriter_WhenCommitted_ShouldRoundTripAllTables(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "reco.h5")
	writeTestFile(t, filename)

	tables, err := ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.Runs) != 1 || tables.Runs[0] != osiristest.Run() {
		t.Errorf("runs = %+v, want %+v", tables.Runs, osiristest.Run())
	}
	osiristest.CompareEvents(t, tables.Events, osiristest.Events())
	osiristest.ComparePairs(t, tables.Pairs, osiristest.Pairs())
}

func TestWriter_WhenClosedWithoutCommit_ShouldLeaveNoFile(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewWriter(filepath.Join(dir, "reco.h5"), 0)
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
