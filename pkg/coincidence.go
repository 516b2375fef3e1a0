package osiris

import (
	"fmt"
	"math"
)

// EnergyWindow bounds an energy cut in MeV.
type EnergyWindow struct {
	Min float64
	Max float64
}

// ContainsHalfOpen tests Min <= e < Max.
func (w EnergyWindow) ContainsHalfOpen(e float64) bool {
	return e >= w.Min && e < w.Max
}

// ContainsClosed tests Min <= e <= Max.
func (w EnergyWindow) ContainsClosed(e float64) bool {
	return e >= w.Min && e <= w.Max
}

type CoincidenceConfig struct {
	ParentWindow    EnergyWindow
	DaughterWindow  EnergyWindow
	DecayConstantNs float64
	HowManyTau      float64
	// RadiusCut in mm; zero or negative disables the spatial cut.
	RadiusCut float64
	// OffsetNs shifts the delay window, used to estimate accidentals.
	OffsetNs   float64
	AllowReuse bool
}

func (c CoincidenceConfig) MaxDelayNs() float64 {
	return c.HowManyTau * c.DecayConstantNs
}

func (c CoincidenceConfig) Validate() error {
	if !(c.ParentWindow.Min < c.ParentWindow.Max) {
		return &ErrInvalidConfiguration{Field: "eb_max", Value: formatFloat(c.ParentWindow.Max)}
	}
	if !(c.DaughterWindow.Min <= c.DaughterWindow.Max) {
		return &ErrInvalidConfiguration{Field: "ep_max", Value: formatFloat(c.DaughterWindow.Max)}
	}
	if !(c.DecayConstantNs > 0) || math.IsInf(c.DecayConstantNs, 0) {
		return &ErrInvalidConfiguration{Field: "decay_constant_us", Value: formatFloat(c.DecayConstantNs / 1e3)}
	}
	if !(c.HowManyTau > 0) || math.IsInf(c.HowManyTau, 0) {
		return &ErrInvalidConfiguration{Field: "how_many_tau", Value: formatFloat(c.HowManyTau)}
	}
	if !(c.OffsetNs >= 0) || math.IsInf(c.OffsetNs, 0) {
		return &ErrInvalidConfiguration{Field: "offset_us", Value: formatFloat(c.OffsetNs / 1e3)}
	}
	if math.IsNaN(c.RadiusCut) {
		return &ErrInvalidConfiguration{Field: "radius_cut", Value: formatFloat(c.RadiusCut)}
	}
	return nil
}

// Pair is a parent (Bi candidate) followed by a daughter (Po candidate).
type Pair struct {
	ParentIndex    int64
	DaughterIndex  int64
	ParentEnergy   float64
	DaughterEnergy float64
	Delay          float64
	Distance       float64
}

// SearchCoincidences pairs parents with later daughters whose delay lies in
// [OffsetNs, OffsetNs+MaxDelayNs). Events must be sorted by trigger time.
// Both window edges only move forward, so each event is visited a bounded
// number of times per parent in the window.
func SearchCoincidences(events []Event, config CoincidenceConfig) ([]Pair, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	for i := 1; i < len(events); i++ {
		if !(events[i].TriggerTime >= events[i-1].TriggerTime) {
			return nil, &ErrNotTimeOrdered{Position: i}
		}
	}

	var used []bool
	if !config.AllowReuse {
		used = make([]bool, len(events))
	}

	pairs := make([]Pair, 0)
	low, high := 0, 0
	windowStart := config.OffsetNs
	windowEnd := config.OffsetNs + config.MaxDelayNs()
	for j, parent := range events {
		for low < len(events) && events[low].TriggerTime-parent.TriggerTime < windowStart {
			low++
		}
		for high < len(events) && events[high].TriggerTime-parent.TriggerTime < windowEnd {
			high++
		}
		if !config.ParentWindow.ContainsHalfOpen(parent.PromptEnergy) {
			continue
		}
		if used != nil && used[j] {
			continue
		}

		for i := max(low, j+1); i < high; i++ {
			if used != nil && used[i] {
				continue
			}
			daughter := events[i]
			if !config.DaughterWindow.ContainsClosed(daughter.DelayedEnergy) {
				continue
			}
			distance := Distance(parent, daughter)
			if config.RadiusCut > 0 && !(distance < config.RadiusCut) {
				continue
			}

			pairs = append(pairs, Pair{
				ParentIndex:    parent.Index,
				DaughterIndex:  daughter.Index,
				ParentEnergy:   parent.PromptEnergy,
				DaughterEnergy: daughter.DelayedEnergy,
				Delay:          daughter.TriggerTime - parent.TriggerTime,
				Distance:       distance,
			})
			if verbosity > 1 {
				message := fmt.Sprintf("Pair %d -> %d, delay %.0f ns", parent.Index, daughter.Index,
					daughter.TriggerTime-parent.TriggerTime)
				logger.Info(message, "coincidence")
			}
			if used != nil {
				used[j] = true
				used[i] = true
				break
			}
		}
	}

	if verbosity > 0 {
		message := fmt.Sprintf("Found %d coincidences in %d events", len(pairs), len(events))
		logger.Info(message, "coincidence")
	}
	return pairs, nil
}
