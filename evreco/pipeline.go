package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	osiris "github.com/osiris-exp/reco_go/pkg"
	"github.com/osiris-exp/reco_go/pkg/evstore"
	"github.com/osiris-exp/reco_go/pkg/h5table"
	"github.com/osiris-exp/reco_go/pkg/rootio"
)

// Summary counts what each stage kept and dropped.
type Summary struct {
	Files       int
	Aggregation osiris.AggregationStats
	Veto        osiris.VetoStats
	Pairs       int
}

// Result is everything a run produces before it is written out.
type Result struct {
	Meta    osiris.RunMeta
	Events  []osiris.Event
	Pairs   []osiris.Pair
	Summary Summary
}

// expandInputs resolves the input source to a sorted list of hit tables. A
// directory yields every regular file in it, anything with glob
// metacharacters is matched as a pattern.
func expandInputs(source string) ([]string, error) {
	if source == "" {
		return nil, &osiris.ErrInvalidConfiguration{Field: "file_in", Value: source}
	}

	var files []string
	info, err := os.Stat(source)
	switch {
	case err == nil && info.IsDir():
		entries, err := os.ReadDir(source)
		if err != nil {
			return nil, &osiris.ErrOpenFile{Filename: source, Err: err}
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
				files = append(files, filepath.Join(source, entry.Name()))
			}
		}
	case err == nil:
		files = []string{source}
	case strings.ContainsAny(source, "*?["):
		files, err = filepath.Glob(source)
		if err != nil {
			return nil, fmt.Errorf("bad input pattern %q: %w", source, err)
		}
	default:
		return nil, &osiris.ErrOpenFile{Filename: source, Err: err}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no input files match %q", source)
	}
	slices.Sort(files)
	return files, nil
}

func readInputs(files []string) ([]osiris.Hit, error) {
	hits := make([]osiris.Hit, 0)
	for _, file := range files {
		fileHits, err := osiris.ReadHitFile(file)
		if err != nil {
			return nil, err
		}
		if VerbosityLevel > 1 {
			message := fmt.Sprintf("Read %d hits from %s", len(fileHits), file)
			logger.Info(message, "pipeline")
		}
		hits = append(hits, fileHits...)
	}
	return hits, nil
}

// runInfo takes the run tag from the hit rows and falls back to the name of
// the first input file.
func runInfo(hits []osiris.Hit, files []string) osiris.RunInfo {
	for _, hit := range hits {
		if hit.RunTag != "" {
			return osiris.RunInfo{RunTag: hit.RunTag, Date: hit.Date}
		}
	}
	if len(files) > 0 {
		if info, ok := osiris.ParseRunInfo(files[0]); ok {
			return info
		}
	}
	return osiris.RunInfo{}
}

// reconstruct runs the event chain over every input hit table:
// aggregation, time ordering, muon veto and coincidence search.
func reconstruct(configuration osiris.Configuration, geometry *osiris.GeometryMap) (Result, error) {
	files, err := expandInputs(configuration.FileIn)
	if err != nil {
		return Result{}, err
	}
	hits, err := readInputs(files)
	if err != nil {
		return Result{}, err
	}

	aggregator, err := osiris.NewAggregator(configuration.AggregatorConfig(), geometry)
	if err != nil {
		return Result{}, err
	}
	events := aggregator.Aggregate(hits)
	osiris.SortByTriggerTime(events)

	run := runInfo(hits, files)
	result := Result{
		Meta: osiris.RunMeta{
			RunTag:             run.RunTag,
			Date:               run.Date,
			ProcessingID:       uuid.NewString(),
			PromptCalibration:  configuration.PromptCalibration,
			DelayedCalibration: configuration.DelayedCalibration,
			MuonVeto:           configuration.ApplyMuonVeto,
			ODThreshold:        configuration.ODThreshold,
		},
		Summary: Summary{Files: len(files), Aggregation: aggregator.Stats()},
	}

	if configuration.ApplyMuonVeto {
		events, result.Summary.Veto = osiris.ApplyMuonVeto(events, configuration.VetoConfig())
	}
	result.Events = events

	if configuration.SearchCoincidences {
		result.Pairs, err = osiris.SearchCoincidences(events, configuration.CoincidenceConfig())
		if err != nil {
			return Result{}, err
		}
	}
	result.Summary.Pairs = len(result.Pairs)
	return result, nil
}

type outputFormat int

const (
	unknownFormat outputFormat = iota
	hdf5Format
	rootFormat
	duckdbFormat
)

func formatOf(path string) outputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h5", ".hdf5":
		return hdf5Format
	case ".root":
		return rootFormat
	case ".duckdb", ".db":
		return duckdbFormat
	}
	return unknownFormat
}

// newSink picks the output format from the file extension.
func newSink(path string, compression int) (osiris.EventSink, error) {
	switch formatOf(path) {
	case hdf5Format:
		return h5table.NewWriter(path, compression)
	case rootFormat:
		return rootio.NewWriter(path)
	case duckdbFormat:
		return evstore.NewWriter(path)
	}
	return nil, &osiris.ErrInvalidConfiguration{Field: "file_out", Value: path}
}

func writeResult(sink osiris.EventSink, result Result) error {
	if err := sink.WriteRunInfo(result.Meta); err != nil {
		return err
	}
	if err := sink.WriteEvents(result.Events); err != nil {
		return err
	}
	if err := sink.WritePairs(result.Pairs); err != nil {
		return err
	}
	return sink.Commit()
}

// process reconstructs the run and stores it at configuration.FileOut.
func process(configuration osiris.Configuration, geometry *osiris.GeometryMap) (Result, error) {
	if formatOf(configuration.FileOut) == unknownFormat {
		return Result{}, &osiris.ErrInvalidConfiguration{Field: "file_out", Value: configuration.FileOut}
	}
	result, err := reconstruct(configuration, geometry)
	if err != nil {
		return Result{}, err
	}

	sink, err := newSink(configuration.FileOut, configuration.CompressionLevel)
	if err != nil {
		return Result{}, err
	}
	defer sink.Close()
	if err := writeResult(sink, result); err != nil {
		return Result{}, fmt.Errorf("error writing %s: %w", configuration.FileOut, err)
	}
	return result, nil
}

func summaryLines(result Result) []string {
	s := result.Summary
	return []string{
		fmt.Sprintf("Input files: %d", s.Files),
		fmt.Sprintf("Hits read: %d (non-finite charge: %d, missing geometry: %d)",
			s.Aggregation.InputHits, s.Aggregation.NonFiniteCharge, s.Aggregation.MissingGeometry),
		fmt.Sprintf("Events: %d (undefined position: %d)", s.Aggregation.Events, s.Aggregation.UndefinedPosition),
		fmt.Sprintf("Muons: %d, vetoed: %d, remaining: %d", s.Veto.Muons, s.Veto.Vetoed, len(result.Events)),
		fmt.Sprintf("Coincidence pairs: %d", s.Pairs),
	}
}
