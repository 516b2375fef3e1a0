package osiris

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfiguration_WhenFieldsOmitted_ShouldKeepDefaults(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	content := `{"file_in": "run.root", "od_threshold": 8, "allow_reuse": false, "align_mode": "mean"}`
	if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfiguration(filename)
	if err != nil {
		t.Fatal(err)
	}
	if config.FileIn != "run.root" || config.ODThreshold != 8 || config.AllowReuse || config.AlignMode != AlignMean {
		t.Errorf("file values not applied: %+v", config)
	}
	if config.PromptCalibration != 3650 || config.DecayConstantUs != 237 || config.BaselineEntries != 50 {
		t.Errorf("defaults lost: %+v", config)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadConfiguration_WhenFileMissing_ShouldReturnOpenError(t *testing.T) {
	_, err := LoadConfiguration(filepath.Join(t.TempDir(), "nope.json"))
	var openErr *ErrOpenFile
	if !errors.As(err, &openErr) {
		t.Fatalf("expected ErrOpenFile, got %v", err)
	}
}

func TestValidate_WhenValuesInvalid_ShouldNameField(t *testing.T) {
	cases := []struct {
		field  string
		modify func(*Configuration)
	}{
		{"threshold_method", func(c *Configuration) { c.ThresholdMethod = "peak" }},
		{"align_mode", func(c *Configuration) { c.AlignMode = "median" }},
		{"prompt_calibration", func(c *Configuration) { c.PromptCalibration = 0 }},
		{"num_workers", func(c *Configuration) { c.NumWorkers = 0 }},
		{"eb_max", func(c *Configuration) { c.EBMax = c.EBMin }},
		{"od_threshold", func(c *Configuration) { c.ApplyMuonVeto = true; c.ODThreshold = 0 }},
		{"compression_level", func(c *Configuration) { c.CompressionLevel = 12 }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			config := DefaultConfiguration()
			tc.modify(&config)
			err := config.Validate()
			var invalid *ErrInvalidConfiguration
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			if invalid.Field != tc.field {
				t.Errorf("field = %s, want %s", invalid.Field, tc.field)
			}
		})
	}
}

func TestRunConfig_WhenBuilt_ShouldCopyRunFields(t *testing.T) {
	config := DefaultConfiguration()
	config.FileIn = "in"
	config.FileOut = "out.h5"
	config.ApplyMuonVeto = true
	config.ODThreshold = 3

	run := config.RunConfig()
	want := RunConfig{InputSource: "in", OutputPath: "out.h5", ApplyMuonVeto: true, ODThreshold: 3}
	if run != want {
		t.Errorf("run config = %+v, want %+v", run, want)
	}
}
