package osiris

import (
	"errors"
	"fmt"
)

// ChannelWaveform is the digitised trace of one channel in one trigger window.
type ChannelWaveform struct {
	UnitID        int
	ChannelID     int
	OuterDetector bool
	Samples       []uint16
}

// WaveformEvent is everything recorded for one trigger.
type WaveformEvent struct {
	EventID     int64
	TriggerTime float64
	Channels    []ChannelWaveform
}

type AnalysisStats struct {
	Events          int
	Channels        int
	Hits            int
	NotFired        int
	SkippedLowGain  int
	MissingGeometry int
}

func (s *AnalysisStats) Add(other AnalysisStats) {
	s.Events += other.Events
	s.Channels += other.Channels
	s.Hits += other.Hits
	s.NotFired += other.NotFired
	s.SkippedLowGain += other.SkippedLowGain
	s.MissingGeometry += other.MissingGeometry
}

// Analyzer turns waveform events into hits. It holds no mutable state, so a
// single instance can serve several workers.
type Analyzer struct {
	extractor    *Extractor
	geometry     *GeometryMap
	run          RunInfo
	highGainOnly bool
}

func NewAnalyzer(extractor *Extractor, geometry *GeometryMap, run RunInfo, highGainOnly bool) *Analyzer {
	return &Analyzer{
		extractor:    extractor,
		geometry:     geometry,
		run:          run,
		highGainOnly: highGainOnly,
	}
}

// Analyze extracts one hit per fired channel. Channels without a geometry
// entry are counted and left out.
func (a *Analyzer) Analyze(event WaveformEvent) ([]Hit, AnalysisStats) {
	stats := AnalysisStats{Events: 1}
	total := len(event.Channels)
	live := total / 2

	hits := make([]Hit, 0)
	for slot, channel := range event.Channels {
		stats.Channels++
		if a.highGainOnly && channel.ChannelID%2 == 0 {
			stats.SkippedLowGain++
			continue
		}

		feature := a.extractor.Extract(toFloat64(channel.Samples))
		if !feature.Fired {
			stats.NotFired++
			continue
		}

		position, err := a.geometry.Lookup(channel.UnitID, channel.ChannelID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				logger.Error(err.Error())
			}
			stats.MissingGeometry++
			if verbosity > 2 {
				message := fmt.Sprintf("Event %d: %v", event.EventID, err)
				logger.Info(message, "analyzer")
			}
			continue
		}

		hits = append(hits, Hit{
			RunTag:        a.run.RunTag,
			Date:          a.run.Date,
			EventIndex:    event.EventID,
			Charge:        feature.Charge,
			Slot:          slot,
			RiseIndex:     feature.RiseIndex,
			TriggerTime:   event.TriggerTime,
			ChannelID:     channel.ChannelID,
			UnitID:        channel.UnitID,
			Position:      position.Position,
			LiveChannels:  live,
			Gain:          position.Gain,
			OuterDetector: channel.OuterDetector,
			TotalChannels: total,
		})
		stats.Hits++
	}

	if verbosity > 1 {
		message := fmt.Sprintf("Event %d: %d hits out of %d channels", event.EventID, len(hits), total)
		logger.Info(message, "analyzer")
	}
	return hits, stats
}
