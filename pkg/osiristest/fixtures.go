// Package osiristest provides reconstructed tables and comparisons shared by
// the output format tests.
package osiristest

import (
	"math"
	"testing"

	osiris "github.com/osiris-exp/reco_go/pkg"
	"gonum.org/v1/gonum/spatial/r3"
)

const tolerance = 1e-9

func Run() osiris.RunMeta {
	return osiris.RunMeta{
		RunTag:             "20220905_101530",
		Date:               "2022-09-05",
		ProcessingID:       "5f0c1f5e-3b8a-4d0e-9a55-0d8f6b1c2a77",
		PromptCalibration:  3650,
		DelayedCalibration: 3800,
		MuonVeto:           true,
		ODThreshold:        5,
	}
}

// Events covers a regular event, one with an undefined position and one
// without timing lists.
func Events() []osiris.Event {
	nan := math.NaN()
	return []osiris.Event{
		{
			Index: 3, Charge: 7300, ChargeNorm: 3650, ChargeNormOD: 100, ChargeNormID: 3550,
			FiredChannels: 2, ODMultiplicity: 1,
			Centroid: r3.Vec{X: 100, Y: -250.5, Z: 30}, PositionValid: true,
			TriggerTime: 1.0e6, TriggerTimeDiff: 1.0e5,
			PromptEnergy: 1.0, DelayedEnergy: 0.96,
			TOF:             []float64{1.5, 2.5},
			RiseTime:        []float64{101, 99},
			RiseTimeDiff:    []float64{99.5, 96.5},
			RiseTimeAligned: []float64{3, 0},
		},
		{
			Index: 4, Charge: 0, ChargeNorm: 0, FiredChannels: 1,
			Centroid:    r3.Vec{X: nan, Y: nan, Z: nan},
			TriggerTime: 1.1e6, TriggerTimeDiff: 2.0e5,
			TOF:             []float64{nan},
			RiseTime:        []float64{nan},
			RiseTimeDiff:    []float64{nan},
			RiseTimeAligned: []float64{nan},
		},
		{
			Index: 9, Charge: 2920, ChargeNorm: 2920, FiredChannels: 0,
			Centroid: r3.Vec{X: 1, Y: 2, Z: 3}, PositionValid: true,
			TriggerTime: 1.3e6, TriggerTimeDiff: nan,
			PromptEnergy: 0.8, DelayedEnergy: 0.77,
			TOF:             []float64{},
			RiseTime:        []float64{},
			RiseTimeDiff:    []float64{},
			RiseTimeAligned: []float64{},
		},
	}
}

func Pairs() []osiris.Pair {
	return []osiris.Pair{
		{ParentIndex: 3, DaughterIndex: 9, ParentEnergy: 1.0, DaughterEnergy: 0.77, Delay: 3.0e5, Distance: 263.3},
	}
}

// Close compares two floats, treating NaN as equal to NaN.
func Close(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func CompareEvents(t *testing.T, got, want []osiris.Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("read %d events, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Index != w.Index || g.FiredChannels != w.FiredChannels ||
			g.ODMultiplicity != w.ODMultiplicity || g.PositionValid != w.PositionValid {
			t.Errorf("event %d: got %+v, want %+v", i, g, w)
			continue
		}
		scalars := []struct {
			name      string
			got, want float64
		}{
			{"x", g.Centroid.X, w.Centroid.X},
			{"y", g.Centroid.Y, w.Centroid.Y},
			{"z", g.Centroid.Z, w.Centroid.Z},
			{"charge", g.Charge, w.Charge},
			{"charge_norm", g.ChargeNorm, w.ChargeNorm},
			{"charge_norm_od", g.ChargeNormOD, w.ChargeNormOD},
			{"charge_norm_id", g.ChargeNormID, w.ChargeNormID},
			{"trigger_time", g.TriggerTime, w.TriggerTime},
			{"trigger_time_diff", g.TriggerTimeDiff, w.TriggerTimeDiff},
			{"prompt_energy", g.PromptEnergy, w.PromptEnergy},
			{"delayed_energy", g.DelayedEnergy, w.DelayedEnergy},
		}
		for _, s := range scalars {
			if !Close(s.got, s.want) {
				t.Errorf("event %d %s = %v, want %v", i, s.name, s.got, s.want)
			}
		}
		compareList(t, i, "tof", g.TOF, w.TOF)
		compareList(t, i, "rise_time", g.RiseTime, w.RiseTime)
		compareList(t, i, "rise_time_diff", g.RiseTimeDiff, w.RiseTimeDiff)
		compareList(t, i, "rise_time_aligned", g.RiseTimeAligned, w.RiseTimeAligned)
	}
}

func compareList(t *testing.T, event int, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("event %d %s has %d entries, want %d", event, name, len(got), len(want))
		return
	}
	for j := range want {
		if !Close(got[j], want[j]) {
			t.Errorf("event %d %s[%d] = %v, want %v", event, name, j, got[j], want[j])
		}
	}
}

func ComparePairs(t *testing.T, got, want []osiris.Pair) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("read %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.ParentIndex != w.ParentIndex || g.DaughterIndex != w.DaughterIndex ||
			!Close(g.ParentEnergy, w.ParentEnergy) || !Close(g.DaughterEnergy, w.DaughterEnergy) ||
			!Close(g.Delay, w.Delay) || !Close(g.Distance, w.Distance) {
			t.Errorf("pair %d = %+v, want %+v", i, g, w)
		}
	}
}
