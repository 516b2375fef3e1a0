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
	logger.Info(fmt.Sprintf("Threshold method: %s", config.ThresholdMethod), "config")
	logger.Info(fmt.Sprintf("Baseline entries: %d", config.BaselineEntries), "config")
	logger.Info(fmt.Sprintf("Std dev threshold: %v", config.StdDevThreshold), "config")
	logger.Info(fmt.Sprintf("Absolute threshold: %v", config.AbsoluteThreshold), "config")
	logger.Info(fmt.Sprintf("Integration window: %d", config.IntegrationWindow), "config")
	logger.Info(fmt.Sprintf("High gain only: %t", config.HighGainOnly), "config")
	logger.Info(fmt.Sprintf("Clean: %t", config.Clean), "config")
	logger.Info(fmt.Sprintf("Cutoff fraction: %v", config.CutoffFraction), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
}
