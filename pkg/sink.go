package osiris

// RunMeta describes a processed run. Every output format stores it once.
type RunMeta struct {
	RunTag             string
	Date               string
	ProcessingID       string
	PromptCalibration  float64
	DelayedCalibration float64
	MuonVeto           bool
	ODThreshold        int
}

// EventSink receives the result tables of one run. Nothing is visible at the
// output path until Commit; Close without Commit discards the output and is
// safe to defer.
type EventSink interface {
	WriteRunInfo(meta RunMeta) error
	WriteEvents(events []Event) error
	WritePairs(pairs []Pair) error
	Commit() error
	Close() error
}
