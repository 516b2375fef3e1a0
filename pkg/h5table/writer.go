package h5table

import (
	"errors"
	"fmt"
	"math"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	osiris "github.com/osiris-exp/reco_go/pkg"
)

// Writer stores the result tables of one run in an HDF5 file:
//
//	/Run/runInfo
//	/Reco/events
//	/Reco/hits
//	/Coincidences/pairs
type Writer struct {
	pending      *osiris.PendingFile
	File         *hdf5.File
	Filename     string
	RunGroup     *hdf5.Group
	RecoGroup    *hdf5.Group
	PairGroup    *hdf5.Group
	RunInfoTable *hdf5.Dataset
	EventTable   *hdf5.Dataset
	HitTable     *hdf5.Dataset
	PairTable    *hdf5.Dataset
	EvtCounter   int
	HitCounter   int
	PairCounter  int
	RunCounter   int
}

func NewWriter(filename string, compression int) (*Writer, error) {
	pending, err := osiris.NewPendingFile(filename)
	if err != nil {
		return nil, err
	}

	writer := &Writer{pending: pending, Filename: filename}
	if err := writer.create(compression); err != nil {
		writer.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) create(compression int) error {
	var err error
	if w.File, err = openFile(w.pending.Path); err != nil {
		return err
	}
	if w.RunGroup, err = createGroup(w.File, "Run"); err != nil {
		return err
	}
	if w.RecoGroup, err = createGroup(w.File, "Reco"); err != nil {
		return err
	}
	if w.PairGroup, err = createGroup(w.File, "Coincidences"); err != nil {
		return err
	}
	if w.RunInfoTable, err = createTable(w.RunGroup, "runInfo", RunInfoHDF5{}, compression); err != nil {
		return err
	}
	if w.EventTable, err = createTable(w.RecoGroup, "events", EventHDF5{}, compression); err != nil {
		return err
	}
	if w.HitTable, err = createTable(w.RecoGroup, "hits", HitTimingHDF5{}, compression); err != nil {
		return err
	}
	if w.PairTable, err = createTable(w.PairGroup, "pairs", PairHDF5{}, compression); err != nil {
		return err
	}
	return nil
}

func (w *Writer) WriteRunInfo(meta osiris.RunMeta) error {
	entry := []RunInfoHDF5{{
		run_tag:             convertToHdf5String(meta.RunTag),
		date:                convertToHdf5String(meta.Date),
		processing_id:       convertToHdf5String(meta.ProcessingID),
		prompt_calibration:  meta.PromptCalibration,
		delayed_calibration: meta.DelayedCalibration,
		muon_veto:           boolToInt8(meta.MuonVeto),
		od_threshold:        int32(meta.ODThreshold),
	}}
	if err := writeArrayToTable(w.RunInfoTable, &entry, w.RunCounter); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}
	w.RunCounter++
	return nil
}

func (w *Writer) WriteEvents(events []osiris.Event) error {
	rows := make([]EventHDF5, len(events))
	hits := make([]HitTimingHDF5, 0)
	for i, event := range events {
		rows[i] = EventHDF5{
			evt_number:        event.Index,
			x:                 event.Centroid.X,
			y:                 event.Centroid.Y,
			z:                 event.Centroid.Z,
			r:                 event.Radius(),
			position_valid:    boolToInt8(event.PositionValid),
			od_fired:          boolToInt8(event.ODFired()),
			fired:             int32(event.FiredChannels),
			od_multiplicity:   int32(event.ODMultiplicity),
			charge:            event.Charge,
			charge_norm:       event.ChargeNorm,
			charge_norm_od:    event.ChargeNormOD,
			charge_norm_id:    event.ChargeNormID,
			trigger_time:      event.TriggerTime,
			trigger_time_diff: event.TriggerTimeDiff,
			prompt_energy:     event.PromptEnergy,
			delayed_energy:    event.DelayedEnergy,
		}
		row := int64(w.EvtCounter + i)
		for j := range event.TOF {
			hits = append(hits, HitTimingHDF5{
				event:             row,
				tof:               event.TOF[j],
				rise_time:         valueAt(event.RiseTime, j),
				rise_time_diff:    valueAt(event.RiseTimeDiff, j),
				rise_time_aligned: valueAt(event.RiseTimeAligned, j),
			})
		}
	}

	if err := writeArrayToTable(w.EventTable, &rows, w.EvtCounter); err != nil {
		return fmt.Errorf("error writing events: %w", err)
	}
	w.EvtCounter += len(rows)
	if err := writeArrayToTable(w.HitTable, &hits, w.HitCounter); err != nil {
		return fmt.Errorf("error writing hit timing: %w", err)
	}
	w.HitCounter += len(hits)
	return nil
}

func (w *Writer) WritePairs(pairs []osiris.Pair) error {
	rows := make([]PairHDF5, len(pairs))
	for i, pair := range pairs {
		rows[i] = PairHDF5{
			parent:          pair.ParentIndex,
			daughter:        pair.DaughterIndex,
			parent_energy:   pair.ParentEnergy,
			daughter_energy: pair.DaughterEnergy,
			delay:           pair.Delay,
			distance:        pair.Distance,
		}
	}
	if err := writeArrayToTable(w.PairTable, &rows, w.PairCounter); err != nil {
		return fmt.Errorf("error writing pairs: %w", err)
	}
	w.PairCounter += len(rows)
	return nil
}

// Commit closes the file and moves it to its final name.
func (w *Writer) Commit() error {
	if err := w.closeHandles(); err != nil {
		return err
	}
	return w.pending.Commit()
}

// Close releases every handle and removes the file unless it was committed.
func (w *Writer) Close() error {
	err := w.closeHandles()
	return errors.Join(err, w.pending.Discard())
}

type closer interface {
	Close() error
}

func (w *Writer) closeHandles() error {
	var errs []error
	handles := []struct {
		name   string
		handle closer
	}{
		{"run info table", w.RunInfoTable},
		{"event table", w.EventTable},
		{"hit table", w.HitTable},
		{"pair table", w.PairTable},
		{"run group", w.RunGroup},
		{"reco group", w.RecoGroup},
		{"coincidences group", w.PairGroup},
		{"file", w.File},
	}
	for _, h := range handles {
		if isNil(h.handle) {
			continue
		}
		if err := h.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing %s: %w", h.name, err))
		}
	}
	w.RunInfoTable, w.EventTable, w.HitTable, w.PairTable = nil, nil, nil, nil
	w.RunGroup, w.RecoGroup, w.PairGroup = nil, nil, nil
	w.File = nil

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func isNil(c closer) bool {
	switch h := c.(type) {
	case *hdf5.Dataset:
		return h == nil
	case *hdf5.Group:
		return h == nil
	case *hdf5.File:
		return h == nil
	}
	return c == nil
}

func boolToInt8(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return math.NaN()
}
