// Package evstore keeps reconstructed runs in a DuckDB database so they can
// be queried with SQL.
package evstore

import (
	"fmt"
	"math"

	_ "github.com/duckdb/duckdb-go/v2"
	sqlx "github.com/jmoiron/sqlx"
	"gonum.org/v1/gonum/spatial/r3"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

// Store wraps a DuckDB connection holding the event tables.
type Store struct {
	db      *sqlx.DB
	nextRow int64
}

// Open creates a new Store connected to the given DuckDB file.
func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InitSchema creates the tables if they don't exist.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	var rows int64
	if err := s.db.Get(&rows, `SELECT COALESCE(MAX(row_id) + 1, 0) FROM events`); err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	s.nextRow = rows
	return nil
}

func (s *Store) InsertRun(meta osiris.RunMeta) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_tag, date, processing_id, prompt_calibration, delayed_calibration, muon_veto, od_threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, meta.RunTag, meta.Date, meta.ProcessingID, meta.PromptCalibration, meta.DelayedCalibration,
		meta.MuonVeto, meta.ODThreshold)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", meta.ProcessingID, err)
	}
	return nil
}

// InsertEvents stores events and their per-hit timing in one transaction.
func (s *Store) InsertEvents(events []osiris.Event) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	eventStmt, err := tx.Preparex(`
		INSERT INTO events (
			row_id, evt_index, x, y, z, r, position_valid, fired, od_multiplicity, od_fired,
			charge, charge_norm, charge_norm_od, charge_norm_id,
			trigger_time, trigger_time_diff, prompt_energy, delayed_energy
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare events: %w", err)
	}
	defer eventStmt.Close()

	hitStmt, err := tx.Preparex(`
		INSERT INTO hit_timing (event_row, position, tof, rise_time, rise_time_diff, rise_time_aligned)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare hit timing: %w", err)
	}
	defer hitStmt.Close()

	row := s.nextRow
	for _, e := range events {
		if _, err := eventStmt.Exec(
			row, e.Index, e.Centroid.X, e.Centroid.Y, e.Centroid.Z, e.Radius(),
			e.PositionValid, e.FiredChannels, e.ODMultiplicity, e.ODFired(),
			e.Charge, e.ChargeNorm, e.ChargeNormOD, e.ChargeNormID,
			e.TriggerTime, e.TriggerTimeDiff, e.PromptEnergy, e.DelayedEnergy,
		); err != nil {
			return fmt.Errorf("insert event %d: %w", e.Index, err)
		}
		for j := range e.TOF {
			if _, err := hitStmt.Exec(row, j, e.TOF[j], valueAt(e.RiseTime, j),
				valueAt(e.RiseTimeDiff, j), valueAt(e.RiseTimeAligned, j)); err != nil {
				return fmt.Errorf("insert hit timing of event %d: %w", e.Index, err)
			}
		}
		row++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	s.nextRow = row
	return nil
}

func (s *Store) InsertPairs(pairs []osiris.Pair) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`
		INSERT INTO coincidences (parent, daughter, parent_energy, daughter_energy, delay, distance)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairs {
		if _, err := stmt.Exec(p.ParentIndex, p.DaughterIndex, p.ParentEnergy, p.DaughterEnergy,
			p.Delay, p.Distance); err != nil {
			return fmt.Errorf("insert pair %d-%d: %w", p.ParentIndex, p.DaughterIndex, err)
		}
	}
	return tx.Commit()
}

type runRow struct {
	RunTag             string  `db:"run_tag"`
	Date               string  `db:"date"`
	ProcessingID       string  `db:"processing_id"`
	PromptCalibration  float64 `db:"prompt_calibration"`
	DelayedCalibration float64 `db:"delayed_calibration"`
	MuonVeto           bool    `db:"muon_veto"`
	ODThreshold        int     `db:"od_threshold"`
}

func (s *Store) Runs() ([]osiris.RunMeta, error) {
	rows := []runRow{}
	if err := s.db.Select(&rows, `SELECT * FROM runs ORDER BY run_tag, processing_id`); err != nil {
		return nil, err
	}
	runs := make([]osiris.RunMeta, len(rows))
	for i, r := range rows {
		runs[i] = osiris.RunMeta(r)
	}
	return runs, nil
}

type eventRow struct {
	RowID           int64   `db:"row_id"`
	Index           int64   `db:"evt_index"`
	X               float64 `db:"x"`
	Y               float64 `db:"y"`
	Z               float64 `db:"z"`
	R               float64 `db:"r"`
	PositionValid   bool    `db:"position_valid"`
	Fired           int     `db:"fired"`
	ODMultiplicity  int     `db:"od_multiplicity"`
	ODFired         bool    `db:"od_fired"`
	Charge          float64 `db:"charge"`
	ChargeNorm      float64 `db:"charge_norm"`
	ChargeNormOD    float64 `db:"charge_norm_od"`
	ChargeNormID    float64 `db:"charge_norm_id"`
	TriggerTime     float64 `db:"trigger_time"`
	TriggerTimeDiff float64 `db:"trigger_time_diff"`
	PromptEnergy    float64 `db:"prompt_energy"`
	DelayedEnergy   float64 `db:"delayed_energy"`
}

type hitRow struct {
	EventRow        int64   `db:"event_row"`
	Position        int     `db:"position"`
	TOF             float64 `db:"tof"`
	RiseTime        float64 `db:"rise_time"`
	RiseTimeDiff    float64 `db:"rise_time_diff"`
	RiseTimeAligned float64 `db:"rise_time_aligned"`
}

// Events returns the stored events in insertion order.
func (s *Store) Events() ([]osiris.Event, error) {
	rows := []eventRow{}
	if err := s.db.Select(&rows, `SELECT * FROM events ORDER BY row_id`); err != nil {
		return nil, err
	}
	hits := []hitRow{}
	if err := s.db.Select(&hits, `SELECT * FROM hit_timing ORDER BY event_row, position`); err != nil {
		return nil, err
	}

	events := make([]osiris.Event, len(rows))
	byRow := make(map[int64]int, len(rows))
	for i, r := range rows {
		byRow[r.RowID] = i
		events[i] = osiris.Event{
			Index:           r.Index,
			Centroid:        r3.Vec{X: r.X, Y: r.Y, Z: r.Z},
			PositionValid:   r.PositionValid,
			FiredChannels:   r.Fired,
			ODMultiplicity:  r.ODMultiplicity,
			Charge:          r.Charge,
			ChargeNorm:      r.ChargeNorm,
			ChargeNormOD:    r.ChargeNormOD,
			ChargeNormID:    r.ChargeNormID,
			TriggerTime:     r.TriggerTime,
			TriggerTimeDiff: r.TriggerTimeDiff,
			PromptEnergy:    r.PromptEnergy,
			DelayedEnergy:   r.DelayedEnergy,
			TOF:             []float64{},
			RiseTime:        []float64{},
			RiseTimeDiff:    []float64{},
			RiseTimeAligned: []float64{},
		}
	}
	for _, h := range hits {
		i, ok := byRow[h.EventRow]
		if !ok {
			return nil, fmt.Errorf("hit timing refers to missing event row %d", h.EventRow)
		}
		e := &events[i]
		e.TOF = append(e.TOF, h.TOF)
		e.RiseTime = append(e.RiseTime, h.RiseTime)
		e.RiseTimeDiff = append(e.RiseTimeDiff, h.RiseTimeDiff)
		e.RiseTimeAligned = append(e.RiseTimeAligned, h.RiseTimeAligned)
	}
	return events, nil
}

type pairRow struct {
	ParentIndex    int64   `db:"parent"`
	DaughterIndex  int64   `db:"daughter"`
	ParentEnergy   float64 `db:"parent_energy"`
	DaughterEnergy float64 `db:"daughter_energy"`
	Delay          float64 `db:"delay"`
	Distance       float64 `db:"distance"`
}

func (s *Store) Pairs() ([]osiris.Pair, error) {
	rows := []pairRow{}
	if err := s.db.Select(&rows, `SELECT * FROM coincidences ORDER BY parent, daughter`); err != nil {
		return nil, err
	}
	pairs := make([]osiris.Pair, len(rows))
	for i, r := range rows {
		pairs[i] = osiris.Pair(r)
	}
	return pairs, nil
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return math.NaN()
}
