package main

import (
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"testing"

	osiris "github.com/osiris-exp/reco_go/pkg"
	"github.com/osiris-exp/reco_go/pkg/rootio"
	"gonum.org/v1/gonum/spatial/r3"
)

const testRunTag = "20220905_101530"

func hit(index int64, t, charge float64, channel int, od bool, position r3.Vec) osiris.Hit {
	return osiris.Hit{
		RunTag:        testRunTag,
		Date:          "2022-09-05",
		EventIndex:    index,
		Charge:        charge,
		RiseIndex:     10,
		TriggerTime:   t,
		ChannelID:     channel,
		UnitID:        1,
		Position:      position,
		LiveChannels:  1,
		Gain:          1,
		OuterDetector: od,
		TotalChannels: 2,
	}
}

// writeHitTables writes a Bi-Po pair (events 1 and 2) to one table and a
// muon followed by a low energy event (3 and 4) to another.
func writeHitTables(t *testing.T, dir string) string {
	t.Helper()
	left := r3.Vec{X: -100}
	right := r3.Vec{X: 100}
	tables := map[string][]osiris.Hit{
		"a_hits.tsv": {
			hit(1, 0, -1825, 1, false, left),
			hit(1, 0, -1825, 3, false, right),
			hit(2, 100e3, -1460, 1, false, left),
			hit(2, 100e3, -1460, 3, false, right),
		},
		"b_hits.tsv": {
			hit(3, 5e6, -10, 5, true, r3.Vec{Z: 1000}),
			hit(3, 5e6, -10, 7, true, r3.Vec{Z: 1000}),
			hit(3, 5e6, -10, 9, true, r3.Vec{Z: 1000}),
			hit(3, 5e6, -10, 11, true, r3.Vec{Z: 1000}),
			hit(3, 5e6, -10, 13, true, r3.Vec{Z: 1000}),
			hit(4, 5e6+10e3, -10, 1, false, r3.Vec{Z: 500}),
		},
	}
	for name, hits := range tables {
		writer, err := osiris.NewHitWriter(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		for _, h := range hits {
			if err := writer.WriteHit(h); err != nil {
				t.Fatal(err)
			}
		}
		if err := writer.Commit(); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "*.tsv")
}

func TestProcess_WhenVetoDisabled_ShouldWriteAllEventsAndOnePair(t *testing.T) {
	dir := t.TempDir()
	config := osiris.DefaultConfiguration()
	config.FileIn = writeHitTables(t, dir)
	config.FileOut = filepath.Join(dir, "reco.root")

	result, err := process(config, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Files != 2 || len(result.Events) != 4 || len(result.Pairs) != 1 {
		t.Fatalf("summary = %+v, events = %d, pairs = %d", result.Summary, len(result.Events), len(result.Pairs))
	}

	tables, err := rootio.ReadFile(config.FileOut)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables.Events) != 4 || len(tables.Runs) != 1 {
		t.Fatalf("read %d events and %d runs", len(tables.Events), len(tables.Runs))
	}
	run := tables.Runs[0]
	if run.RunTag != testRunTag || run.ProcessingID == "" || run.MuonVeto {
		t.Errorf("run = %+v", run)
	}
	if len(tables.Pairs) != 1 {
		t.Fatalf("read %d pairs", len(tables.Pairs))
	}
	pair := tables.Pairs[0]
	if pair.ParentIndex != 1 || pair.DaughterIndex != 2 || math.Abs(pair.Delay-100e3) > 1e-6 {
		t.Errorf("pair = %+v", pair)
	}
	if math.Abs(pair.ParentEnergy-1) > 1e-9 || math.Abs(pair.DaughterEnergy-0.8) > 1e-9 {
		t.Errorf("pair energies = %v, %v", pair.ParentEnergy, pair.DaughterEnergy)
	}
	if tables.Bi.Entries() != 1 || tables.Po.Entries() != 1 {
		t.Errorf("spectra entries = %d, %d", tables.Bi.Entries(), tables.Po.Entries())
	}
}

func TestProcess_WhenVetoFlagGiven_ShouldDropMuonAndFollower(t *testing.T) {
	dir := t.TempDir()
	pattern := writeHitTables(t, dir)
	out := filepath.Join(dir, "reco.root")

	opts, set, err := parseFlags(flag.NewFlagSet("evreco", flag.ContinueOnError),
		[]string{"-in", pattern, "-out", out, "-veto", "-od-threshold", "5"})
	if err != nil {
		t.Fatal(err)
	}
	config := osiris.DefaultConfiguration()
	applyFlags(&config, opts, set)

	result, err := process(config, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Events) != 2 || len(result.Pairs) != 1 {
		t.Fatalf("events = %d, pairs = %d", len(result.Events), len(result.Pairs))
	}
	if result.Summary.Veto.Muons != 1 || result.Summary.Veto.Vetoed != 1 {
		t.Errorf("veto stats = %+v", result.Summary.Veto)
	}
	if !result.Meta.MuonVeto || result.Meta.ODThreshold != 5 {
		t.Errorf("meta = %+v", result.Meta)
	}
	if !math.IsNaN(result.Events[1].TriggerTimeDiff) {
		t.Errorf("last event diff = %v, want NaN", result.Events[1].TriggerTimeDiff)
	}
	if result.Events[0].TriggerTimeDiff != 100e3 {
		t.Errorf("first event diff = %v", result.Events[0].TriggerTimeDiff)
	}
}

func TestApplyFlags_WhenFlagNotGiven_ShouldKeepFileValue(t *testing.T) {
	opts, set, err := parseFlags(flag.NewFlagSet("evreco", flag.ContinueOnError), []string{"-out", "x.h5"})
	if err != nil {
		t.Fatal(err)
	}
	config := osiris.DefaultConfiguration()
	config.ApplyMuonVeto = true
	config.ODThreshold = 7
	applyFlags(&config, opts, set)
	if !config.ApplyMuonVeto || config.ODThreshold != 7 || config.FileOut != "x.h5" {
		t.Errorf("config = %+v", config.RunConfig())
	}
}

func TestProcess_WhenOutputExtensionUnknown_ShouldFailBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	config := osiris.DefaultConfiguration()
	config.FileIn = writeHitTables(t, dir)
	config.FileOut = filepath.Join(dir, "reco.csv")

	_, err := process(config, nil)
	var invalid *osiris.ErrInvalidConfiguration
	if !errors.As(err, &invalid) || invalid.Field != "file_out" {
		t.Fatalf("expected file_out configuration error, got %v", err)
	}
	if _, err := os.Stat(config.FileOut); !os.IsNotExist(err) {
		t.Errorf("output exists: %v", err)
	}
}

func TestExpandInputs_WhenDirectory_ShouldListVisibleFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.tsv", "a.tsv", ".hidden"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := expandInputs(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.tsv"), filepath.Join(dir, "b.tsv")}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("files = %v, want %v", files, want)
	}
}

func TestExpandInputs_WhenNothingMatches_ShouldFail(t *testing.T) {
	dir := t.TempDir()
	if _, err := expandInputs(filepath.Join(dir, "*.tsv")); err == nil {
		t.Error("expected an error for an empty glob")
	}
	if _, err := expandInputs(filepath.Join(dir, "missing.tsv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
