package h5table

import (
	"errors"
	"fmt"

	hdf5 "github.com/jmbenlloch/go-hdf5"
	osiris "github.com/osiris-exp/reco_go/pkg"
	"gonum.org/v1/gonum/spatial/r3"
)

// Tables is the content of a file written by Writer.
type Tables struct {
	Runs   []osiris.RunMeta
	Events []osiris.Event
	Pairs  []osiris.Pair
}

func ReadFile(filename string) (Tables, error) {
	file, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		return Tables{}, &osiris.ErrOpenFile{Filename: filename, Err: err}
	}
	defer file.Close()

	var tables Tables
	var errs []error
	if tables.Runs, err = readRuns(file); err != nil {
		errs = append(errs, err)
	}
	if tables.Events, err = readEvents(file); err != nil {
		errs = append(errs, err)
	}
	if tables.Pairs, err = readPairs(file); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Tables{}, fmt.Errorf("error reading %s: %w", filename, errors.Join(errs...))
	}
	return tables, nil
}

func readRuns(file *hdf5.File) ([]osiris.RunMeta, error) {
	group, err := file.OpenGroup("Run")
	if err != nil {
		return nil, err
	}
	defer group.Close()

	rows, err := readTable[RunInfoHDF5](group, "runInfo")
	if err != nil {
		return nil, err
	}
	runs := make([]osiris.RunMeta, len(rows))
	for i, row := range rows {
		runs[i] = osiris.RunMeta{
			RunTag:             convertFromHdf5String(row.run_tag),
			Date:               convertFromHdf5String(row.date),
			ProcessingID:       convertFromHdf5String(row.processing_id),
			PromptCalibration:  row.prompt_calibration,
			DelayedCalibration: row.delayed_calibration,
			MuonVeto:           row.muon_veto != 0,
			ODThreshold:        int(row.od_threshold),
		}
	}
	return runs, nil
}

func readEvents(file *hdf5.File) ([]osiris.Event, error) {
	group, err := file.OpenGroup("Reco")
	if err != nil {
		return nil, err
	}
	defer group.Close()

	rows, err := readTable[EventHDF5](group, "events")
	if err != nil {
		return nil, err
	}
	hits, err := readTable[HitTimingHDF5](group, "hits")
	if err != nil {
		return nil, err
	}

	events := make([]osiris.Event, len(rows))
	for i, row := range rows {
		events[i] = osiris.Event{
			Index:           row.evt_number,
			Centroid:        r3.Vec{X: row.x, Y: row.y, Z: row.z},
			PositionValid:   row.position_valid != 0,
			FiredChannels:   int(row.fired),
			ODMultiplicity:  int(row.od_multiplicity),
			Charge:          row.charge,
			ChargeNorm:      row.charge_norm,
			ChargeNormOD:    row.charge_norm_od,
			ChargeNormID:    row.charge_norm_id,
			TriggerTime:     row.trigger_time,
			TriggerTimeDiff: row.trigger_time_diff,
			PromptEnergy:    row.prompt_energy,
			DelayedEnergy:   row.delayed_energy,
			TOF:             []float64{},
			RiseTime:        []float64{},
			RiseTimeDiff:    []float64{},
			RiseTimeAligned: []float64{},
		}
	}
	for _, hit := range hits {
		if hit.event < 0 || int(hit.event) >= len(events) {
			return nil, fmt.Errorf("hit timing row refers to missing event %d", hit.event)
		}
		event := &events[hit.event]
		event.TOF = append(event.TOF, hit.tof)
		event.RiseTime = append(event.RiseTime, hit.rise_time)
		event.RiseTimeDiff = append(event.RiseTimeDiff, hit.rise_time_diff)
		event.RiseTimeAligned = append(event.RiseTimeAligned, hit.rise_time_aligned)
	}
	return events, nil
}

func readPairs(file *hdf5.File) ([]osiris.Pair, error) {
	group, err := file.OpenGroup("Coincidences")
	if err != nil {
		return nil, err
	}
	defer group.Close()

	rows, err := readTable[PairHDF5](group, "pairs")
	if err != nil {
		return nil, err
	}
	pairs := make([]osiris.Pair, len(rows))
	for i, row := range rows {
		pairs[i] = osiris.Pair{
			ParentIndex:    row.parent,
			DaughterIndex:  row.daughter,
			ParentEnergy:   row.parent_energy,
			DaughterEnergy: row.daughter_energy,
			Delay:          row.delay,
			Distance:       row.distance,
		}
	}
	return pairs, nil
}
