package osiris

import (
	"errors"
	"math"
	"testing"
)

// syntheticPulse is a 100 ADC baseline with +-1 noise in the first 50 samples
// and a dip reaching zero at index 102.
func syntheticPulse() []float64 {
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = 100
	}
	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			samples[i] = 101
		} else {
			samples[i] = 99
		}
	}
	copy(samples[100:], []float64{80, 40, 0, 40, 80})
	return samples
}

func defaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Method:            StdDev,
		BaselineEntries:   50,
		StdDevThreshold:   5,
		AbsoluteThreshold: 20,
	}
}

func TestExtract_WhenPulseAboveNoise_ShouldFireAndIntegrate(t *testing.T) {
	f, err := Extract(syntheticPulse(), defaultExtractorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Fired {
		t.Fatal("expected waveform to fire")
	}
	if f.RiseIndex < 100 || f.RiseIndex > 102 {
		t.Errorf("expected rise index on the descent towards 102, got %d", f.RiseIndex)
	}
	if f.RiseIndex != 101 {
		t.Errorf("expected rise index 101, got %d", f.RiseIndex)
	}
	if math.Abs(f.Baseline-100) > 1e-9 || math.Abs(f.Noise-1) > 1e-9 {
		t.Errorf("expected baseline 100 and noise 1, got %v and %v", f.Baseline, f.Noise)
	}
	// sum of (baseline - sample) from the rise point: 60 + 100 + 60 + 20
	if math.Abs(-f.Charge-240) > 1e-9 {
		t.Errorf("expected charge magnitude 240, got %v", f.Charge)
	}
	if f.Charge >= 0 {
		t.Errorf("expected negative raw charge, got %v", f.Charge)
	}
}

func TestExtract_WhenIntegrationWindowSet_ShouldStopAfterWindow(t *testing.T) {
	cfg := defaultExtractorConfig()
	cfg.IntegrationWindow = 2

	f, err := Extract(syntheticPulse(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(f.Charge+160) > 1e-9 {
		t.Errorf("expected charge -160, got %v", f.Charge)
	}
}

func TestExtract_WhenBufferConstant_ShouldNeverFire(t *testing.T) {
	samples := make([]float64, 600)
	for i := range samples {
		samples[i] = 8000
	}

	for _, method := range []ThresholdMethod{StdDev, Baseline} {
		cfg := defaultExtractorConfig()
		cfg.Method = method
		f, err := Extract(samples, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Fired || f.Charge != 0 || f.RiseIndex != NoRiseIndex {
			t.Errorf("%s: expected (false, 0, none), got %+v", method, f)
		}
	}
}

func TestExtract_WhenBaselineWindowFlat_ShouldNotFireWithStdDev(t *testing.T) {
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = 100
	}
	samples[120] = 0

	f, err := Extract(samples, defaultExtractorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Fired {
		t.Error("expected zero-noise baseline never to fire with std_dev")
	}
}

func TestExtract_WhenBaselineMethod_ShouldUseAbsoluteThreshold(t *testing.T) {
	samples := make([]float64, 100)
	for i := range samples {
		samples[i] = 100
	}
	samples[60] = 85

	cfg := defaultExtractorConfig()
	cfg.Method = Baseline

	f, _ := Extract(samples, cfg)
	if f.Fired {
		t.Error("expected a 15 ADC drop to stay below a 20 ADC threshold")
	}

	samples[60] = 70
	f, _ = Extract(samples, cfg)
	if !f.Fired || f.RiseIndex != 60 {
		t.Errorf("expected fire at index 60, got %+v", f)
	}
}

func TestExtract_WhenMethodUnknown_ShouldReturnInvalidConfiguration(t *testing.T) {
	cfg := defaultExtractorConfig()
	cfg.Method = "median"

	_, err := Extract(syntheticPulse(), cfg)
	var cfgErr *ErrInvalidConfiguration
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
	if cfgErr.Field != "threshold_method" {
		t.Errorf("expected threshold_method field, got %q", cfgErr.Field)
	}
}

func TestExtract_WhenBaselineWindowLongerThanBuffer_ShouldClamp(t *testing.T) {
	cfg := defaultExtractorConfig()
	cfg.BaselineEntries = 10000

	f, err := Extract([]float64{10, 12, 10, 12}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(f.Baseline-11) > 1e-9 {
		t.Errorf("expected baseline 11, got %v", f.Baseline)
	}
}

func TestExtract_WhenBufferEmpty_ShouldNotFire(t *testing.T) {
	f, err := Extract(nil, defaultExtractorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Fired {
		t.Error("expected empty buffer not to fire")
	}
}
