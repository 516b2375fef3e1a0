package osiris

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// RefractiveIndex of the liquid scintillator.
	RefractiveIndex = 1.55
	// SpeedOfLight in mm/ns.
	SpeedOfLight = 299.792458
)

type AlignMode string

const (
	AlignMin  AlignMode = "min"
	AlignMean AlignMode = "mean"
)

type AggregatorConfig struct {
	SamplePeriodNs float64
	AlignMode      AlignMode
	// Timing quantities are computed only for events with more hits than this.
	MultiplicityCut    int
	PromptCalibration  float64
	DelayedCalibration float64
}

func (c AggregatorConfig) Validate() error {
	switch c.AlignMode {
	case AlignMin, AlignMean:
	default:
		return &ErrInvalidConfiguration{Field: "align_mode", Value: string(c.AlignMode)}
	}
	if !(c.SamplePeriodNs > 0) {
		return &ErrInvalidConfiguration{Field: "sample_period_ns", Value: formatFloat(c.SamplePeriodNs)}
	}
	if !(c.PromptCalibration > 0) {
		return &ErrInvalidConfiguration{Field: "prompt_calibration", Value: formatFloat(c.PromptCalibration)}
	}
	if !(c.DelayedCalibration > 0) {
		return &ErrInvalidConfiguration{Field: "delayed_calibration", Value: formatFloat(c.DelayedCalibration)}
	}
	if c.MultiplicityCut < 0 {
		return &ErrInvalidConfiguration{Field: "multiplicity_cut", Value: strconv.Itoa(c.MultiplicityCut)}
	}
	return nil
}

type AggregationStats struct {
	InputHits         int
	NonFiniteCharge   int
	MissingGeometry   int
	Events            int
	UndefinedPosition int
}

type Aggregator struct {
	config   AggregatorConfig
	geometry *GeometryMap
	stats    AggregationStats
}

// NewAggregator builds an aggregator. geometry may be nil; when given, it
// resolves hits whose position is missing from the hit table.
func NewAggregator(config AggregatorConfig, geometry *GeometryMap) (*Aggregator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{config: config, geometry: geometry}, nil
}

func (a *Aggregator) Stats() AggregationStats {
	return a.stats
}

// Aggregate groups hits by event index and returns one event per group,
// ordered by index, with trigger-time differences linked in time order.
func (a *Aggregator) Aggregate(hits []Hit) []Event {
	a.stats.InputHits += len(hits)

	groups := make(map[int64][]Hit)
	for _, hit := range hits {
		if !isFinite(hit.Charge) {
			a.stats.NonFiniteCharge++
			continue
		}
		hit, ok := a.resolvePosition(hit)
		if !ok {
			a.stats.MissingGeometry++
			continue
		}
		groups[hit.EventIndex] = append(groups[hit.EventIndex], hit)
	}

	indices := maps.Keys(groups)
	slices.Sort(indices)

	events := make([]Event, 0, len(indices))
	for _, index := range indices {
		event := a.buildEvent(index, groups[index])
		if !event.PositionValid {
			a.stats.UndefinedPosition++
			if verbosity > 1 {
				message := fmt.Sprintf("Event %d has zero charge weight, position undefined", index)
				logger.Info(message, "aggregator")
			}
		}
		events = append(events, event)
	}
	LinkTriggerTimes(events)

	a.stats.Events += len(events)
	if verbosity > 0 {
		message := fmt.Sprintf("Aggregated %d hits into %d events (%d non-finite, %d without geometry)",
			len(hits), len(events), a.stats.NonFiniteCharge, a.stats.MissingGeometry)
		logger.Info(message, "aggregator")
	}
	return events
}

func (a *Aggregator) resolvePosition(hit Hit) (Hit, bool) {
	if isFinite(hit.Position.X) && isFinite(hit.Position.Y) && isFinite(hit.Position.Z) {
		return hit, true
	}
	if a.geometry == nil {
		return hit, false
	}
	position, err := a.geometry.Lookup(hit.UnitID, hit.ChannelID)
	if err != nil {
		if verbosity > 2 {
			logger.Info(err.Error(), "aggregator")
		}
		return hit, false
	}
	hit.Position = position.Position
	hit.Gain = position.Gain
	return hit, true
}

func (a *Aggregator) buildEvent(index int64, hits []Hit) Event {
	event := Event{
		Index:  index,
		RunTag: hits[0].RunTag,
		Date:   hits[0].Date,
	}

	live := make([]int, len(hits))
	triggers := make([]float64, len(hits))
	var sum, sumOD, sumID, weight float64
	var weighted r3.Vec
	for i, hit := range hits {
		live[i] = hit.LiveChannels
		triggers[i] = hit.TriggerTime

		sum += hit.Charge
		corrected := hit.Charge * gainFactor(hit.Gain)
		if hit.OuterDetector {
			sumOD += corrected
			event.ODMultiplicity++
		} else {
			sumID += corrected
		}

		if hit.HighGain() {
			event.FiredChannels++
			w := math.Abs(hit.Charge)
			weight += w
			weighted = r3.Add(weighted, r3.Scale(w, hit.Position))
		}
	}

	meanLive := mean(live)
	event.Charge = -sum
	event.ChargeNorm = -(sumOD + sumID) / meanLive
	event.ChargeNormOD = -sumOD / meanLive
	event.ChargeNormID = -sumID / meanLive
	event.PromptEnergy = event.ChargeNorm / a.config.PromptCalibration
	event.DelayedEnergy = event.ChargeNorm / a.config.DelayedCalibration
	event.TriggerTime = mean(triggers)

	if weight > 0 {
		event.Centroid = r3.Scale(1/weight, weighted)
		event.PositionValid = true
	} else {
		event.Centroid = r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	}

	a.fillTiming(&event, hits)
	return event
}

func (a *Aggregator) fillTiming(event *Event, hits []Hit) {
	n := len(hits)
	event.TOF = make([]float64, n)
	event.RiseTime = make([]float64, n)
	event.RiseTimeDiff = make([]float64, n)
	event.RiseTimeAligned = make([]float64, n)

	timed := event.PositionValid && n > a.config.MultiplicityCut
	finite := make([]float64, 0, n)
	for i, hit := range hits {
		event.RiseTime[i] = math.NaN()
		if hit.Fired() {
			event.RiseTime[i] = float64(hit.RiseIndex) * a.config.SamplePeriodNs
		}
		if !timed {
			event.TOF[i] = math.NaN()
			event.RiseTimeDiff[i] = math.NaN()
			continue
		}
		event.TOF[i] = TimeOfFlight(event.Centroid, hit.Position)
		event.RiseTimeDiff[i] = event.RiseTime[i] - event.TOF[i]
		if isFinite(event.RiseTimeDiff[i]) {
			finite = append(finite, event.RiseTimeDiff[i])
		}
	}

	reference := math.NaN()
	if len(finite) > 0 {
		switch a.config.AlignMode {
		case AlignMin:
			reference = floats.Min(finite)
		case AlignMean:
			reference = mean(finite)
		}
	}
	for i := range hits {
		event.RiseTimeAligned[i] = event.RiseTimeDiff[i] - reference
	}
}

// TimeOfFlight is the distance in mm divided by RefractiveIndex*SpeedOfLight,
// in ns.
func TimeOfFlight(from, to r3.Vec) float64 {
	return r3.Norm(r3.Sub(from, to)) / (RefractiveIndex * SpeedOfLight)
}

func gainFactor(gain float64) float64 {
	if !isFinite(gain) || gain <= 0 {
		return 1
	}
	return gain
}
