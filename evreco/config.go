package main

import (
	"fmt"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

func printConfiguration(config osiris.Configuration, logger osiris.Logger) {
	logger.Info(fmt.Sprintf("File in: %s", config.FileIn), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Geometry file: %s", config.GeometryFile), "config")
	logger.Info(fmt.Sprintf("Use DB: %t", config.UseDB), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
	logger.Info(fmt.Sprintf("Sample period: %v ns", config.SamplePeriodNs), "config")
	logger.Info(fmt.Sprintf("Align mode: %s", config.AlignMode), "config")
	logger.Info(fmt.Sprintf("Multiplicity cut: %d", config.MultiplicityCut), "config")
	logger.Info(fmt.Sprintf("Prompt calibration: %v", config.PromptCalibration), "config")
	logger.Info(fmt.Sprintf("Delayed calibration: %v", config.DelayedCalibration), "config")
	logger.Info(fmt.Sprintf("Apply muon veto: %t", config.ApplyMuonVeto), "config")
	logger.Info(fmt.Sprintf("OD threshold: %d", config.ODThreshold), "config")
	logger.Info(fmt.Sprintf("Veto half window: %v us", config.VetoHalfWindowUs), "config")
	logger.Info(fmt.Sprintf("Search coincidences: %t", config.SearchCoincidences), "config")
	logger.Info(fmt.Sprintf("EB window: [%v, %v)", config.EBMin, config.EBMax), "config")
	logger.Info(fmt.Sprintf("EP window: [%v, %v]", config.EPMin, config.EPMax), "config")
	logger.Info(fmt.Sprintf("Decay constant: %v us", config.DecayConstantUs), "config")
	logger.Info(fmt.Sprintf("How many tau: %v", config.HowManyTau), "config")
	logger.Info(fmt.Sprintf("Radius cut: %v mm", config.RadiusCut), "config")
	logger.Info(fmt.Sprintf("Offset: %v us", config.OffsetUs), "config")
	logger.Info(fmt.Sprintf("Allow reuse: %t", config.AllowReuse), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
}
