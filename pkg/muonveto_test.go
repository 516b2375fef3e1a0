package osiris

import (
	"testing"
)

func vetoEvent(index int64, timeUs float64, od int) Event {
	return Event{Index: index, TriggerTime: timeUs * 1e3, ODMultiplicity: od}
}

func eventIndices(events []Event) []int64 {
	indices := make([]int64, len(events))
	for i, event := range events {
		indices[i] = event.Index
	}
	return indices
}

func TestApplyMuonVeto_WhenNeighboursInsideWindow_ShouldRemoveAll(t *testing.T) {
	config := VetoConfig{ODThreshold: 5, HalfWindowNs: 20e3}
	events := []Event{
		vetoEvent(0, 0, 5),
		vetoEvent(1, 10, 0),
		vetoEvent(2, 19.99, 0),
	}

	filtered, stats := ApplyMuonVeto(events, config)
	if len(filtered) != 0 {
		t.Fatalf("expected no events, got %v", eventIndices(filtered))
	}
	if stats.Muons != 1 || stats.Vetoed != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestApplyMuonVeto_WhenEventOnWindowEdge_ShouldKeepIt(t *testing.T) {
	config := VetoConfig{ODThreshold: 5, HalfWindowNs: 20e3}
	events := []Event{
		vetoEvent(0, 0, 0),
		vetoEvent(1, 20, 7),
		vetoEvent(2, 40, 0),
		vetoEvent(3, 41, 0),
	}

	filtered, _ := ApplyMuonVeto(events, config)
	got := eventIndices(filtered)
	if len(got) != 3 || got[0] != 0 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("remaining = %v, want [0 2 3]", got)
	}
	if filtered[1].TriggerTimeDiff != 1e3 {
		t.Errorf("trigger diff = %v, want 1000", filtered[1].TriggerTimeDiff)
	}
}

func TestApplyMuonVeto_WhenMuonOrderReversed_ShouldGiveSameResult(t *testing.T) {
	config := VetoConfig{ODThreshold: 3, HalfWindowNs: 5e3}
	events := []Event{
		vetoEvent(0, 0, 0),
		vetoEvent(1, 4, 3),
		vetoEvent(2, 12, 0),
		vetoEvent(3, 15, 4),
		vetoEvent(4, 30, 0),
	}
	reversed := make([]Event, len(events))
	for i := range events {
		reversed[len(events)-1-i] = events[i]
	}

	forward, _ := ApplyMuonVeto(events, config)
	backward, _ := ApplyMuonVeto(reversed, config)
	if len(forward) != 1 || len(backward) != 1 {
		t.Fatalf("remaining %v and %v, want one event each", eventIndices(forward), eventIndices(backward))
	}
	if forward[0].Index != 4 || backward[0].Index != 4 {
		t.Errorf("remaining %d and %d, want 4", forward[0].Index, backward[0].Index)
	}
}

func TestVetoConfig_WhenThresholdZero_ShouldBeInvalid(t *testing.T) {
	config := VetoConfig{ODThreshold: 0, HalfWindowNs: 20e3}
	if err := config.Validate(); err == nil {
		t.Fatal("expected configuration error")
	}
}
