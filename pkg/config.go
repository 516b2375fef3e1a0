package osiris

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Configuration struct {
	MaxEvents          int             `json:"max_events"`
	Skip               int             `json:"skip"`
	Verbosity          int             `json:"verbosity"`
	FileIn             string          `json:"file_in"`
	FileOut            string          `json:"file_out"`
	GeometryFile       string          `json:"geometry_file"`
	ThresholdMethod    ThresholdMethod `json:"threshold_method"`
	BaselineEntries    int             `json:"baseline_entries"`
	StdDevThreshold    float64         `json:"std_dev_threshold"`
	AbsoluteThreshold  float64         `json:"absolute_threshold"`
	IntegrationWindow  int             `json:"integration_window"`
	HighGainOnly       bool            `json:"high_gain_only"`
	Clean              bool            `json:"clean"`
	CutoffFraction     float64         `json:"cutoff_fraction"`
	SamplePeriodNs     float64         `json:"sample_period_ns"`
	NumWorkers         int             `json:"num_workers"`
	AlignMode          AlignMode       `json:"align_mode"`
	MultiplicityCut    int             `json:"multiplicity_cut"`
	PromptCalibration  float64         `json:"prompt_calibration"`
	DelayedCalibration float64         `json:"delayed_calibration"`
	ApplyMuonVeto      bool            `json:"apply_muon_veto"`
	ODThreshold        int             `json:"od_threshold"`
	VetoHalfWindowUs   float64         `json:"veto_half_window_us"`
	SearchCoincidences bool            `json:"search_coincidences"`
	EBMin              float64         `json:"eb_min"`
	EBMax              float64         `json:"eb_max"`
	EPMin              float64         `json:"ep_min"`
	EPMax              float64         `json:"ep_max"`
	DecayConstantUs    float64         `json:"decay_constant_us"`
	HowManyTau         float64         `json:"how_many_tau"`
	RadiusCut          float64         `json:"radius_cut"`
	OffsetUs           float64         `json:"offset_us"`
	AllowReuse         bool            `json:"allow_reuse"`
	UseDB              bool            `json:"use_db"`
	RunNumber          int             `json:"run_number"`
	Host               string          `json:"host"`
	User               string          `json:"user"`
	Passwd             string          `json:"pass"`
	DBName             string          `json:"dbname"`
	CompressionLevel   int             `json:"compression_level"`
}

// RunConfig is the plain record an orchestrating entry point hands to the core.
type RunConfig struct {
	InputSource   string
	OutputPath    string
	ApplyMuonVeto bool
	ODThreshold   int
}

func DefaultConfiguration() Configuration {
	return Configuration{
		MaxEvents:          1000000000,
		Skip:               0,
		Verbosity:          0,
		ThresholdMethod:    StdDev,
		BaselineEntries:    50,
		StdDevThreshold:    5,
		AbsoluteThreshold:  20,
		IntegrationWindow:  0,
		HighGainOnly:       true,
		Clean:              false,
		CutoffFraction:     0.2,
		SamplePeriodNs:     1,
		NumWorkers:         1,
		AlignMode:          AlignMin,
		MultiplicityCut:    0,
		PromptCalibration:  3650,
		DelayedCalibration: 3650,
		ApplyMuonVeto:      false,
		ODThreshold:        5,
		VetoHalfWindowUs:   20,
		SearchCoincidences: true,
		EBMin:              0,
		EBMax:              3.5,
		EPMin:              0.6,
		EPMax:              1.3,
		DecayConstantUs:    237,
		HowManyTau:         5,
		RadiusCut:          5000,
		OffsetUs:           0,
		AllowReuse:         true,
		UseDB:              false,
		Host:               "localhost",
		User:               "osirisreader",
		Passwd:             "readonly",
		DBName:             "OSIRIS",
		CompressionLevel:   4,
	}
}

func LoadConfiguration(filename string) (Configuration, error) {
	config := DefaultConfiguration()
	if filename == "" {
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, &ErrOpenFile{Filename: filename, Err: err}
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing configuration file %s: %w", filename, err)
	}
	return config, nil
}

func (c Configuration) RunConfig() RunConfig {
	return RunConfig{
		InputSource:   c.FileIn,
		OutputPath:    c.FileOut,
		ApplyMuonVeto: c.ApplyMuonVeto,
		ODThreshold:   c.ODThreshold,
	}
}

func (c Configuration) ExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Method:            c.ThresholdMethod,
		BaselineEntries:   c.BaselineEntries,
		StdDevThreshold:   c.StdDevThreshold,
		AbsoluteThreshold: c.AbsoluteThreshold,
		IntegrationWindow: c.IntegrationWindow,
		Clean:             c.Clean,
		CutoffFraction:    c.CutoffFraction,
	}
}

func (c Configuration) AggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		SamplePeriodNs:     c.SamplePeriodNs,
		AlignMode:          c.AlignMode,
		MultiplicityCut:    c.MultiplicityCut,
		PromptCalibration:  c.PromptCalibration,
		DelayedCalibration: c.DelayedCalibration,
	}
}

func (c Configuration) VetoConfig() VetoConfig {
	return VetoConfig{
		ODThreshold:  c.ODThreshold,
		HalfWindowNs: c.VetoHalfWindowUs * 1e3,
	}
}

func (c Configuration) CoincidenceConfig() CoincidenceConfig {
	return CoincidenceConfig{
		ParentWindow:    EnergyWindow{Min: c.EBMin, Max: c.EBMax},
		DaughterWindow:  EnergyWindow{Min: c.EPMin, Max: c.EPMax},
		DecayConstantNs: c.DecayConstantUs * 1e3,
		HowManyTau:      c.HowManyTau,
		RadiusCut:       c.RadiusCut,
		OffsetNs:        c.OffsetUs * 1e3,
		AllowReuse:      c.AllowReuse,
	}
}

// Validate reports the first configuration error found.
func (c Configuration) Validate() error {
	if err := c.ExtractorConfig().Validate(); err != nil {
		return err
	}
	if err := c.AggregatorConfig().Validate(); err != nil {
		return err
	}
	if c.NumWorkers < 1 {
		return &ErrInvalidConfiguration{Field: "num_workers", Value: strconv.Itoa(c.NumWorkers)}
	}
	if c.ApplyMuonVeto {
		if err := c.VetoConfig().Validate(); err != nil {
			return err
		}
	}
	if c.SearchCoincidences {
		if err := c.CoincidenceConfig().Validate(); err != nil {
			return err
		}
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return &ErrInvalidConfiguration{Field: "compression_level", Value: strconv.Itoa(c.CompressionLevel)}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
