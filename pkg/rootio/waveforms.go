// Package rootio reads raw OSIRIS waveforms and writes reconstructed tables
// in ROOT format.
package rootio

import (
	"fmt"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/riofs"
	"go-hep.org/x/hep/groot/rtree"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

const WaveformTreeName = "EventTree"

// waveformVars are the branches of one EventTree entry. samples is stored
// channel-major, nSamples = nChannels * samples per channel.
type waveformVars struct {
	eventID   int64
	trgNsec   float64
	nChannels int32
	unitID    []int32
	channelID []int32
	isOD      []uint8
	nSamples  int32
	samples   []uint16
}

func (v *waveformVars) readVars() []rtree.ReadVar {
	return []rtree.ReadVar{
		{Name: "eventId", Value: &v.eventID},
		{Name: "trgNsec", Value: &v.trgNsec},
		{Name: "nChannels", Value: &v.nChannels},
		{Name: "GCUID", Value: &v.unitID},
		{Name: "channelID", Value: &v.channelID},
		{Name: "isOD", Value: &v.isOD},
		{Name: "nSamples", Value: &v.nSamples},
		{Name: "samples", Value: &v.samples},
	}
}

func (v *waveformVars) writeVars() []rtree.WriteVar {
	return []rtree.WriteVar{
		{Name: "eventId", Value: &v.eventID},
		{Name: "trgNsec", Value: &v.trgNsec},
		{Name: "nChannels", Value: &v.nChannels},
		{Name: "GCUID", Value: &v.unitID, Count: "nChannels"},
		{Name: "channelID", Value: &v.channelID, Count: "nChannels"},
		{Name: "isOD", Value: &v.isOD, Count: "nChannels"},
		{Name: "nSamples", Value: &v.nSamples},
		{Name: "samples", Value: &v.samples, Count: "nSamples"},
	}
}

// event copies the branch buffers, which the reader reuses between entries.
func (v *waveformVars) event() (osiris.WaveformEvent, error) {
	n := int(v.nChannels)
	if len(v.unitID) != n || len(v.channelID) != n || len(v.isOD) != n {
		return osiris.WaveformEvent{}, fmt.Errorf("event %d: channel branches disagree with nChannels=%d", v.eventID, n)
	}
	event := osiris.WaveformEvent{
		EventID:     v.eventID,
		TriggerTime: v.trgNsec,
		Channels:    make([]osiris.ChannelWaveform, n),
	}
	if n == 0 {
		return event, nil
	}
	if len(v.samples)%n != 0 {
		return osiris.WaveformEvent{}, fmt.Errorf("event %d: %d samples do not split over %d channels", v.eventID, len(v.samples), n)
	}
	perChannel := len(v.samples) / n
	for i := 0; i < n; i++ {
		samples := make([]uint16, perChannel)
		copy(samples, v.samples[i*perChannel:(i+1)*perChannel])
		event.Channels[i] = osiris.ChannelWaveform{
			UnitID:        int(v.unitID[i]),
			ChannelID:     int(v.channelID[i]),
			OuterDetector: v.isOD[i] != 0,
			Samples:       samples,
		}
	}
	return event, nil
}

func (v *waveformVars) set(event osiris.WaveformEvent) error {
	n := len(event.Channels)
	perChannel := 0
	if n > 0 {
		perChannel = len(event.Channels[0].Samples)
	}
	v.eventID = event.EventID
	v.trgNsec = event.TriggerTime
	v.nChannels = int32(n)
	v.unitID = v.unitID[:0]
	v.channelID = v.channelID[:0]
	v.isOD = v.isOD[:0]
	v.samples = v.samples[:0]
	for _, channel := range event.Channels {
		if len(channel.Samples) != perChannel {
			return fmt.Errorf("event %d: channels have different sample counts", event.EventID)
		}
		v.unitID = append(v.unitID, int32(channel.UnitID))
		v.channelID = append(v.channelID, int32(channel.ChannelID))
		var od uint8
		if channel.OuterDetector {
			od = 1
		}
		v.isOD = append(v.isOD, od)
		v.samples = append(v.samples, channel.Samples...)
	}
	v.nSamples = int32(len(v.samples))
	return nil
}

// WaveformReader iterates the EventTree of a raw data file.
type WaveformReader struct {
	file *riofs.File
	tree rtree.Tree
}

func OpenWaveforms(filename string) (*WaveformReader, error) {
	f, err := groot.Open(filename)
	if err != nil {
		return nil, &osiris.ErrOpenFile{Filename: filename, Err: err}
	}
	obj, err := f.Get(WaveformTreeName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error getting %s from %s: %w", WaveformTreeName, filename, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("%s in %s is a %s, not a tree", WaveformTreeName, filename, obj.Class())
	}
	return &WaveformReader{file: f, tree: tree}, nil
}

func (r *WaveformReader) Entries() int64 {
	return r.tree.Entries()
}

// Read calls fn for entries [skip, skip+max) in file order.
func (r *WaveformReader) Read(skip, max int64, fn func(osiris.WaveformEvent) error) error {
	entries := r.tree.Entries()
	if skip >= entries || max <= 0 {
		return nil
	}
	end := entries
	if skip+max < end {
		end = skip + max
	}

	vars := &waveformVars{}
	reader, err := rtree.NewReader(r.tree, vars.readVars(), rtree.WithRange(skip, end))
	if err != nil {
		return fmt.Errorf("error creating tree reader: %w", err)
	}
	defer reader.Close()

	return reader.Read(func(ctx rtree.RCtx) error {
		event, err := vars.event()
		if err != nil {
			return fmt.Errorf("entry %d: %w", ctx.Entry, err)
		}
		return fn(event)
	})
}

func (r *WaveformReader) Close() error {
	return r.file.Close()
}

// WaveformWriter produces files in the raw EventTree layout.
type WaveformWriter struct {
	file *riofs.File
	tree rtree.Writer
	vars *waveformVars
}

func CreateWaveforms(filename string) (*WaveformWriter, error) {
	f, err := groot.Create(filename)
	if err != nil {
		return nil, &osiris.ErrOpenFile{Filename: filename, Err: err}
	}
	vars := &waveformVars{}
	tree, err := rtree.NewWriter(f, WaveformTreeName, vars.writeVars(), rtree.WithTitle("OSIRIS raw waveforms"))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating %s: %w", WaveformTreeName, err)
	}
	return &WaveformWriter{file: f, tree: tree, vars: vars}, nil
}

func (w *WaveformWriter) Write(event osiris.WaveformEvent) error {
	if err := w.vars.set(event); err != nil {
		return err
	}
	if _, err := w.tree.Write(); err != nil {
		return fmt.Errorf("error writing event %d: %w", event.EventID, err)
	}
	return nil
}

func (w *WaveformWriter) Close() error {
	if err := w.tree.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("error closing %s: %w", WaveformTreeName, err)
	}
	return w.file.Close()
}
