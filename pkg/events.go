package osiris

import (
	"cmp"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r3"
)

// Event aggregates every hit sharing an event index. Centroid is meaningful
// only when PositionValid is set; otherwise its components are NaN.
type Event struct {
	Index           int64
	RunTag          string
	Date            string
	Charge          float64
	ChargeNorm      float64
	ChargeNormOD    float64
	ChargeNormID    float64
	FiredChannels   int
	ODMultiplicity  int
	Centroid        r3.Vec
	PositionValid   bool
	TriggerTime     float64
	TriggerTimeDiff float64
	PromptEnergy    float64
	DelayedEnergy   float64
	TOF             []float64
	RiseTime        []float64
	RiseTimeDiff    []float64
	RiseTimeAligned []float64
}

// Radius is the distance of the centroid from the detector centre, NaN when
// the position is unavailable.
func (e Event) Radius() float64 {
	if !e.PositionValid {
		return math.NaN()
	}
	return r3.Norm(e.Centroid)
}

func (e Event) ODFired() bool {
	return e.ODMultiplicity > 0
}

// Distance between two centroids, NaN if either position is unavailable.
func Distance(a, b Event) float64 {
	if !a.PositionValid || !b.PositionValid {
		return math.NaN()
	}
	return r3.Norm(r3.Sub(a.Centroid, b.Centroid))
}

// LinkTriggerTimes sets TriggerTimeDiff to the trigger time of the
// chronologically next event minus this one's, without reordering the slice.
// The latest event, and any event with a NaN trigger time, gets NaN.
func LinkTriggerTimes(events []Event) {
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(events[a].TriggerTime, events[b].TriggerTime)
	})
	for k, i := range order {
		events[i].TriggerTimeDiff = math.NaN()
		if k+1 < len(order) {
			events[i].TriggerTimeDiff = events[order[k+1]].TriggerTime - events[i].TriggerTime
		}
	}
}

// SortByTriggerTime orders events chronologically, keeping index order for
// equal times, and relinks the trigger-time differences.
func SortByTriggerTime(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.TriggerTime, b.TriggerTime)
	})
	LinkTriggerTimes(events)
}
