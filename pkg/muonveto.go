package osiris

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/exp/slices"
)

type VetoConfig struct {
	ODThreshold  int
	HalfWindowNs float64
}

func (c VetoConfig) Validate() error {
	if c.ODThreshold < 1 {
		return &ErrInvalidConfiguration{Field: "od_threshold", Value: strconv.Itoa(c.ODThreshold)}
	}
	if !isFinite(c.HalfWindowNs) || c.HalfWindowNs < 0 {
		return &ErrInvalidConfiguration{Field: "veto_half_window_us", Value: formatFloat(c.HalfWindowNs / 1e3)}
	}
	return nil
}

type VetoStats struct {
	Input   int
	Muons   int
	Vetoed  int
	Remains int
}

// IsMuon reports whether the outer detector multiplicity reaches the threshold.
func (c VetoConfig) IsMuon(event Event) bool {
	return event.ODMultiplicity >= c.ODThreshold
}

// ApplyMuonVeto drops every muon event and every event whose trigger time lies
// strictly within HalfWindowNs of any muon. The input slice is not modified and
// the surviving events keep their relative order.
func ApplyMuonVeto(events []Event, config VetoConfig) ([]Event, VetoStats) {
	stats := VetoStats{Input: len(events)}

	muonTimes := make([]float64, 0)
	for _, event := range events {
		if config.IsMuon(event) {
			muonTimes = append(muonTimes, event.TriggerTime)
		}
	}
	stats.Muons = len(muonTimes)
	slices.Sort(muonTimes)

	filtered := make([]Event, 0, len(events))
	for _, event := range events {
		if config.IsMuon(event) || nearMuon(event.TriggerTime, muonTimes, config.HalfWindowNs) {
			continue
		}
		filtered = append(filtered, event)
	}
	stats.Remains = len(filtered)
	stats.Vetoed = stats.Input - stats.Remains - stats.Muons
	LinkTriggerTimes(filtered)

	if verbosity > 0 {
		message := fmt.Sprintf("Muon veto: %d muons, %d events vetoed, %d remain",
			stats.Muons, stats.Vetoed, stats.Remains)
		logger.Info(message, "muonveto")
	}
	return filtered, stats
}

// nearMuon checks the two muon times bracketing t in the sorted slice.
func nearMuon(t float64, muonTimes []float64, halfWindow float64) bool {
	if len(muonTimes) == 0 || math.IsNaN(t) {
		return false
	}
	i, _ := slices.BinarySearch(muonTimes, t)
	if i < len(muonTimes) && math.Abs(muonTimes[i]-t) < halfWindow {
		return true
	}
	return i > 0 && math.Abs(t-muonTimes[i-1]) < halfWindow
}
