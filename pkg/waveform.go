package osiris

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type ThresholdMethod string

const (
	// StdDev fires when the drop below baseline exceeds k times the baseline noise.
	StdDev ThresholdMethod = "std_dev"
	// Baseline fires when the drop below baseline exceeds an absolute ADC threshold.
	Baseline ThresholdMethod = "baseline"
)

// NoRiseIndex marks a waveform that did not fire.
const NoRiseIndex = -1

// Constant fraction of the full amplitude drop used to locate the rise point.
const riseFraction = 5.0

type ExtractorConfig struct {
	Method            ThresholdMethod
	BaselineEntries   int
	StdDevThreshold   float64
	AbsoluteThreshold float64
	// IntegrationWindow is the number of samples integrated from the rise
	// point; zero integrates up to the end of the buffer.
	IntegrationWindow int
	Clean             bool
	CutoffFraction    float64
}

func (c ExtractorConfig) Validate() error {
	switch c.Method {
	case StdDev, Baseline:
	default:
		return &ErrInvalidConfiguration{Field: "threshold_method", Value: string(c.Method)}
	}
	if c.BaselineEntries < 1 {
		return &ErrInvalidConfiguration{Field: "baseline_entries", Value: strconv.Itoa(c.BaselineEntries)}
	}
	if c.IntegrationWindow < 0 {
		return &ErrInvalidConfiguration{Field: "integration_window", Value: strconv.Itoa(c.IntegrationWindow)}
	}
	if c.Clean && (c.CutoffFraction <= 0 || c.CutoffFraction > 1) {
		return &ErrInvalidConfiguration{Field: "cutoff_fraction", Value: formatFloat(c.CutoffFraction)}
	}
	return nil
}

// Feature is the outcome of analysing one waveform.
type Feature struct {
	Fired     bool
	Charge    float64
	RiseIndex int
	Baseline  float64
	Noise     float64
	Minimum   float64
}

// Extractor is a pure function of its configuration and safe for concurrent use.
type Extractor struct {
	config ExtractorConfig
}

func NewExtractor(config ExtractorConfig) (*Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{config: config}, nil
}

func (e *Extractor) Config() ExtractorConfig {
	return e.config
}

// Extract decides whether samples crossed threshold and, if so, locates the
// rise point and integrates the charge. Charge keeps the raw sign, negative
// for negative-going pulses.
func (e *Extractor) Extract(samples []float64) Feature {
	feature := Feature{RiseIndex: NoRiseIndex}
	if len(samples) == 0 {
		return feature
	}

	if e.config.Clean {
		samples = LowPass(samples, e.config.CutoffFraction)
	}

	window := e.config.BaselineEntries
	if window > len(samples) {
		window = len(samples)
	}
	feature.Baseline, feature.Noise = stat.PopMeanStdDev(samples[:window], nil)
	feature.Minimum = floats.Min(samples)

	if !e.crossesThreshold(feature) {
		return feature
	}

	drop := math.Abs(feature.Baseline - feature.Minimum)
	for idx, sample := range samples {
		if math.Abs(feature.Baseline-sample) > drop/riseFraction {
			feature.Fired = true
			feature.RiseIndex = idx
			break
		}
	}
	if !feature.Fired {
		return feature
	}

	end := len(samples)
	if e.config.IntegrationWindow > 0 && feature.RiseIndex+e.config.IntegrationWindow < end {
		end = feature.RiseIndex + e.config.IntegrationWindow
	}
	for _, sample := range samples[feature.RiseIndex:end] {
		feature.Charge += sample - feature.Baseline
	}
	return feature
}

func (e *Extractor) crossesThreshold(f Feature) bool {
	drop := f.Baseline - f.Minimum
	switch e.config.Method {
	case StdDev:
		// A flat baseline carries no noise estimate; never fire on it.
		if f.Noise == 0 {
			return false
		}
		return drop > e.config.StdDevThreshold*f.Noise
	case Baseline:
		return drop > e.config.AbsoluteThreshold
	default:
		panic(fmt.Sprintf("unknown threshold method %q", e.config.Method))
	}
}

// Extract validates config and analyses a single waveform.
func Extract(samples []float64, config ExtractorConfig) (Feature, error) {
	e, err := NewExtractor(config)
	if err != nil {
		return Feature{RiseIndex: NoRiseIndex}, err
	}
	return e.Extract(samples), nil
}
