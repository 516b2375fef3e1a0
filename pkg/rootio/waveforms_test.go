package rootio

import (
	"path/filepath"
	"reflect"
	"testing"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

func testWaveformEvents() []osiris.WaveformEvent {
	events := make([]osiris.WaveformEvent, 4)
	for i := range events {
		events[i] = osiris.WaveformEvent{
			EventID:     int64(100 + i),
			TriggerTime: float64(i) * 1.5e4,
			Channels: []osiris.ChannelWaveform{
				{UnitID: 3, ChannelID: 0, Samples: []uint16{100, 101, 99, uint16(60 + i)}},
				{UnitID: 3, ChannelID: 1, Samples: []uint16{200, 201, 199, uint16(120 + i)}, OuterDetector: true},
			},
		}
	}
	return events
}

func TestWaveformWriter_WhenReadBack_ShouldPreserveChannels(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "20220905_101530.root")
	writer, err := CreateWaveforms(filename)
	if err != nil {
		t.Fatal(err)
	}
	want := testWaveformEvents()
	for _, event := range want {
		if err := writer.Write(event); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	reader, err := OpenWaveforms(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	if reader.Entries() != int64(len(want)) {
		t.Fatalf("entries = %d, want %d", reader.Entries(), len(want))
	}

	var got []osiris.WaveformEvent
	err = reader.Read(1, 2, func(event osiris.WaveformEvent) error {
		got = append(got, event)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want[1:3]) {
		t.Errorf("read %+v, want %+v", got, want[1:3])
	}
}

func TestOpenWaveforms_WhenFileMissing_ShouldReturnOpenError(t *testing.T) {
	_, err := OpenWaveforms(filepath.Join(t.TempDir(), "missing.root"))
	if _, ok := err.(*osiris.ErrOpenFile); !ok {
		t.Fatalf("expected *ErrOpenFile, got %v", err)
	}
}
