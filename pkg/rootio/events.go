package rootio

import (
	"errors"
	"fmt"
	"math"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rhist"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"
	"go-hep.org/x/hep/hbook"
	"go-hep.org/x/hep/hbook/rootcnv"
	"gonum.org/v1/gonum/spatial/r3"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

const (
	EventTreeName = "RecEvents"
	PairTreeName  = "Coincidences"
	RunTreeName   = "RunInfo"

	BiSpectrumName = "hBi"
	PoSpectrumName = "hPo"
)

type eventVars struct {
	index           int64
	x, y, z, r      float64
	positionValid   bool
	fired           int32
	odMultiplicity  int32
	odFired         bool
	charge          float64
	chargeNorm      float64
	chargeNormOD    float64
	chargeNormID    float64
	triggerTime     float64
	triggerTimeDiff float64
	promptEnergy    float64
	delayedEnergy   float64
	nHits           int32
	tof             []float64
	riseTime        []float64
	riseTimeDiff    []float64
	riseTimeAligned []float64
}

func (v *eventVars) branches() ([]string, []any) {
	names := []string{
		"index", "x", "y", "z", "r", "position_valid", "fired", "od_multiplicity", "od_fired",
		"charge", "charge_norm", "charge_norm_od", "charge_norm_id", "trigger_time",
		"trigger_time_diff", "prompt_energy", "delayed_energy", "nHits",
		"tof", "rise_time", "rise_time_diff", "rise_time_aligned",
	}
	values := []any{
		&v.index, &v.x, &v.y, &v.z, &v.r, &v.positionValid, &v.fired, &v.odMultiplicity, &v.odFired,
		&v.charge, &v.chargeNorm, &v.chargeNormOD, &v.chargeNormID, &v.triggerTime,
		&v.triggerTimeDiff, &v.promptEnergy, &v.delayedEnergy, &v.nHits,
		&v.tof, &v.riseTime, &v.riseTimeDiff, &v.riseTimeAligned,
	}
	return names, values
}

func (v *eventVars) writeVars() []rtree.WriteVar {
	names, values := v.branches()
	vars := make([]rtree.WriteVar, len(names))
	for i := range names {
		vars[i] = rtree.WriteVar{Name: names[i], Value: values[i]}
		if _, ok := values[i].(*[]float64); ok {
			vars[i].Count = "nHits"
		}
	}
	return vars
}

func (v *eventVars) readVars() []rtree.ReadVar {
	names, values := v.branches()
	vars := make([]rtree.ReadVar, len(names))
	for i := range names {
		vars[i] = rtree.ReadVar{Name: names[i], Value: values[i]}
	}
	return vars
}

func (v *eventVars) set(event osiris.Event) {
	v.index = event.Index
	v.x, v.y, v.z = event.Centroid.X, event.Centroid.Y, event.Centroid.Z
	v.r = event.Radius()
	v.positionValid = event.PositionValid
	v.fired = int32(event.FiredChannels)
	v.odMultiplicity = int32(event.ODMultiplicity)
	v.odFired = event.ODFired()
	v.charge = event.Charge
	v.chargeNorm = event.ChargeNorm
	v.chargeNormOD = event.ChargeNormOD
	v.chargeNormID = event.ChargeNormID
	v.triggerTime = event.TriggerTime
	v.triggerTimeDiff = event.TriggerTimeDiff
	v.promptEnergy = event.PromptEnergy
	v.delayedEnergy = event.DelayedEnergy
	n := len(event.TOF)
	v.nHits = int32(n)
	v.tof = fitList(v.tof, event.TOF, n)
	v.riseTime = fitList(v.riseTime, event.RiseTime, n)
	v.riseTimeDiff = fitList(v.riseTimeDiff, event.RiseTimeDiff, n)
	v.riseTimeAligned = fitList(v.riseTimeAligned, event.RiseTimeAligned, n)
}

func (v *eventVars) event() osiris.Event {
	return osiris.Event{
		Index:           v.index,
		Centroid:        r3.Vec{X: v.x, Y: v.y, Z: v.z},
		PositionValid:   v.positionValid,
		FiredChannels:   int(v.fired),
		ODMultiplicity:  int(v.odMultiplicity),
		Charge:          v.charge,
		ChargeNorm:      v.chargeNorm,
		ChargeNormOD:    v.chargeNormOD,
		ChargeNormID:    v.chargeNormID,
		TriggerTime:     v.triggerTime,
		TriggerTimeDiff: v.triggerTimeDiff,
		PromptEnergy:    v.promptEnergy,
		DelayedEnergy:   v.delayedEnergy,
		TOF:             append([]float64{}, v.tof...),
		RiseTime:        append([]float64{}, v.riseTime...),
		RiseTimeDiff:    append([]float64{}, v.riseTimeDiff...),
		RiseTimeAligned: append([]float64{}, v.riseTimeAligned...),
	}
}

// fitList copies src into dst with exactly n entries, padding with NaN.
func fitList(dst, src []float64, n int) []float64 {
	dst = dst[:0]
	for i := 0; i < n; i++ {
		if i < len(src) {
			dst = append(dst, src[i])
		} else {
			dst = append(dst, math.NaN())
		}
	}
	return dst
}

type pairVars struct {
	parent         int64
	daughter       int64
	parentEnergy   float64
	daughterEnergy float64
	delay          float64
	distance       float64
}

func (v *pairVars) branches() ([]string, []any) {
	return []string{"parent", "daughter", "parent_energy", "daughter_energy", "delay", "distance"},
		[]any{&v.parent, &v.daughter, &v.parentEnergy, &v.daughterEnergy, &v.delay, &v.distance}
}

type runVars struct {
	runTag             string
	date               string
	processingID       string
	promptCalibration  float64
	delayedCalibration float64
	muonVeto           bool
	odThreshold        int32
}

func (v *runVars) branches() ([]string, []any) {
	return []string{"run_tag", "date", "processing_id", "prompt_calibration", "delayed_calibration", "muon_veto", "od_threshold"},
		[]any{&v.runTag, &v.date, &v.processingID, &v.promptCalibration, &v.delayedCalibration, &v.muonVeto, &v.odThreshold}
}

func writeVars(names []string, values []any) []rtree.WriteVar {
	vars := make([]rtree.WriteVar, len(names))
	for i := range names {
		vars[i] = rtree.WriteVar{Name: names[i], Value: values[i]}
	}
	return vars
}

func readVars(names []string, values []any) []rtree.ReadVar {
	vars := make([]rtree.ReadVar, len(names))
	for i := range names {
		vars[i] = rtree.ReadVar{Name: names[i], Value: values[i]}
	}
	return vars
}

// Writer stores the reconstructed events, the coincidence pairs, the run
// information and the Bi/Po energy spectra of one run. Trees are filled as
// tables arrive; the spectra are written on Commit.
type Writer struct {
	pending   *osiris.PendingFile
	file      *riofs.File
	events    rtree.Writer
	pairs     rtree.Writer
	runs      rtree.Writer
	eventVars *eventVars
	pairVars  *pairVars
	runVars   *runVars
	biEnergy  *hbook.H1D
	poEnergy  *hbook.H1D
}

func NewWriter(filename string) (*Writer, error) {
	pending, err := osiris.NewPendingFile(filename)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		pending:   pending,
		eventVars: &eventVars{},
		pairVars:  &pairVars{},
		runVars:   &runVars{},
		biEnergy:  hbook.NewH1D(100, 0, 4),
		poEnergy:  hbook.NewH1D(100, 0, 2),
	}
	w.biEnergy.Ann["name"] = BiSpectrumName
	w.biEnergy.Ann["title"] = "Bi energy;E [MeV];entries"
	w.poEnergy.Ann["name"] = PoSpectrumName
	w.poEnergy.Ann["title"] = "Po energy;E [MeV];entries"

	if err := w.create(); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) create() error {
	var err error
	w.file, err = groot.Create(w.pending.Path)
	if err != nil {
		return &osiris.ErrOpenFile{Filename: w.pending.Path, Err: err}
	}
	w.events, err = rtree.NewWriter(w.file, EventTreeName, w.eventVars.writeVars(), rtree.WithTitle("reconstructed events"))
	if err != nil {
		return fmt.Errorf("error creating %s: %w", EventTreeName, err)
	}
	w.pairs, err = rtree.NewWriter(w.file, PairTreeName, writeVars(w.pairVars.branches()), rtree.WithTitle("Bi-Po coincidences"))
	if err != nil {
		return fmt.Errorf("error creating %s: %w", PairTreeName, err)
	}
	w.runs, err = rtree.NewWriter(w.file, RunTreeName, writeVars(w.runVars.branches()), rtree.WithTitle("run information"))
	if err != nil {
		return fmt.Errorf("error creating %s: %w", RunTreeName, err)
	}
	return nil
}

func (w *Writer) WriteRunInfo(meta osiris.RunMeta) error {
	*w.runVars = runVars{
		runTag:             meta.RunTag,
		date:               meta.Date,
		processingID:       meta.ProcessingID,
		promptCalibration:  meta.PromptCalibration,
		delayedCalibration: meta.DelayedCalibration,
		muonVeto:           meta.MuonVeto,
		odThreshold:        int32(meta.ODThreshold),
	}
	if _, err := w.runs.Write(); err != nil {
		return fmt.Errorf("error writing run info: %w", err)
	}
	return nil
}

func (w *Writer) WriteEvents(events []osiris.Event) error {
	for _, event := range events {
		w.eventVars.set(event)
		if _, err := w.events.Write(); err != nil {
			return fmt.Errorf("error writing event %d: %w", event.Index, err)
		}
	}
	return nil
}

func (w *Writer) WritePairs(pairs []osiris.Pair) error {
	for _, pair := range pairs {
		*w.pairVars = pairVars{
			parent:         pair.ParentIndex,
			daughter:       pair.DaughterIndex,
			parentEnergy:   pair.ParentEnergy,
			daughterEnergy: pair.DaughterEnergy,
			delay:          pair.Delay,
			distance:       pair.Distance,
		}
		if _, err := w.pairs.Write(); err != nil {
			return fmt.Errorf("error writing pair %d-%d: %w", pair.ParentIndex, pair.DaughterIndex, err)
		}
		w.biEnergy.Fill(pair.ParentEnergy, 1)
		w.poEnergy.Fill(pair.DaughterEnergy, 1)
	}
	return nil
}

func (w *Writer) Commit() error {
	if err := w.file.Put(BiSpectrumName, rhist.NewH1DFrom(w.biEnergy)); err != nil {
		return fmt.Errorf("error writing %s: %w", BiSpectrumName, err)
	}
	if err := w.file.Put(PoSpectrumName, rhist.NewH1DFrom(w.poEnergy)); err != nil {
		return fmt.Errorf("error writing %s: %w", PoSpectrumName, err)
	}
	if err := w.closeHandles(); err != nil {
		return err
	}
	return w.pending.Commit()
}

func (w *Writer) Close() error {
	err := w.closeHandles()
	return errors.Join(err, w.pending.Discard())
}

func (w *Writer) closeHandles() error {
	var errs []error
	for _, tree := range []rtree.Writer{w.events, w.pairs, w.runs} {
		if tree == nil {
			continue
		}
		if err := tree.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing tree %s: %w", tree.Name(), err))
		}
	}
	w.events, w.pairs, w.runs = nil, nil, nil
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing file: %w", err))
		}
		w.file = nil
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Tables is the content of a file written by Writer.
type Tables struct {
	Runs   []osiris.RunMeta
	Events []osiris.Event
	Pairs  []osiris.Pair
	Bi     *hbook.H1D
	Po     *hbook.H1D
}

func ReadFile(filename string) (Tables, error) {
	f, err := groot.Open(filename)
	if err != nil {
		return Tables{}, &osiris.ErrOpenFile{Filename: filename, Err: err}
	}
	defer f.Close()

	var tables Tables
	events := &eventVars{}
	err = readTree(f, EventTreeName, events.readVars(), func() {
		tables.Events = append(tables.Events, events.event())
	})
	if err != nil {
		return Tables{}, err
	}

	pair := &pairVars{}
	err = readTree(f, PairTreeName, readVars(pair.branches()), func() {
		tables.Pairs = append(tables.Pairs, osiris.Pair{
			ParentIndex:    pair.parent,
			DaughterIndex:  pair.daughter,
			ParentEnergy:   pair.parentEnergy,
			DaughterEnergy: pair.daughterEnergy,
			Delay:          pair.delay,
			Distance:       pair.distance,
		})
	})
	if err != nil {
		return Tables{}, err
	}

	run := &runVars{}
	err = readTree(f, RunTreeName, readVars(run.branches()), func() {
		tables.Runs = append(tables.Runs, osiris.RunMeta{
			RunTag:             run.runTag,
			Date:               run.date,
			ProcessingID:       run.processingID,
			PromptCalibration:  run.promptCalibration,
			DelayedCalibration: run.delayedCalibration,
			MuonVeto:           run.muonVeto,
			ODThreshold:        int(run.odThreshold),
		})
	})
	if err != nil {
		return Tables{}, err
	}

	if tables.Bi, err = readH1D(f, BiSpectrumName); err != nil {
		return Tables{}, err
	}
	if tables.Po, err = readH1D(f, PoSpectrumName); err != nil {
		return Tables{}, err
	}
	return tables, nil
}

func readTree(f *riofs.File, name string, vars []rtree.ReadVar, fill func()) error {
	obj, err := f.Get(name)
	if err != nil {
		return fmt.Errorf("error getting %s: %w", name, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return fmt.Errorf("%s is a %s, not a tree", name, obj.Class())
	}
	if tree.Entries() == 0 {
		return nil
	}
	reader, err := rtree.NewReader(tree, vars)
	if err != nil {
		return fmt.Errorf("error creating reader for %s: %w", name, err)
	}
	defer reader.Close()
	return reader.Read(func(ctx rtree.RCtx) error {
		fill()
		return nil
	})
}

func readH1D(f *riofs.File, name string) (*hbook.H1D, error) {
	obj, err := f.Get(name)
	if err != nil {
		return nil, fmt.Errorf("error getting %s: %w", name, err)
	}
	h, ok := obj.(rhist.H1)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not a 1-D histogram", name, obj.Class())
	}
	return rootcnv.H1D(h), nil
}
