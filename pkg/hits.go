package osiris

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Hit is one fired channel in one event. Hits are created once by the
// extraction stage and never mutated.
type Hit struct {
	RunTag        string
	Date          string
	EventIndex    int64
	Charge        float64
	Slot          int
	RiseIndex     int
	TriggerTime   float64
	ChannelID     int
	UnitID        int
	Position      r3.Vec
	LiveChannels  int
	Gain          float64
	OuterDetector bool
	TotalChannels int
}

// HighGain reports whether the hit comes from the high-gain member (odd
// channel id) of a readout pair.
func (h Hit) HighGain() bool {
	return h.ChannelID%2 != 0
}

func (h Hit) Fired() bool {
	return h.RiseIndex != NoRiseIndex
}
