package main

import (
	"flag"
	"fmt"
	"time"

	osiris "github.com/osiris-exp/reco_go/pkg"
	"github.com/osiris-exp/reco_go/pkg/rootio"
)

var (
	logger         osiris.Logger = osiris.NewSlogLogger()
	VerbosityLevel int
)

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	fileIn := flag.String("in", "", "Raw waveform ROOT file")
	fileOut := flag.String("out", "", "Output hit table")
	flag.Parse()

	configuration, err := osiris.LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	if *fileIn != "" {
		configuration.FileIn = *fileIn
	}
	if *fileOut != "" {
		configuration.FileOut = *fileOut
	}

	osiris.SetLogger(logger)
	osiris.SetVerbosity(configuration.Verbosity)
	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	if err := run(configuration); err != nil {
		logger.Error(err.Error())
	}
}

func run(configuration osiris.Configuration) error {
	start := time.Now()
	if err := configuration.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	extractor, err := osiris.NewExtractor(configuration.ExtractorConfig())
	if err != nil {
		return err
	}
	geometry, err := loadGeometry(&configuration)
	if err != nil {
		return err
	}

	runInfo, ok := osiris.ParseRunInfo(configuration.FileIn)
	if !ok {
		message := fmt.Sprintf("No run tag in file name %s", configuration.FileIn)
		logger.Info(message, "main")
	}

	reader, err := rootio.OpenWaveforms(configuration.FileIn)
	if err != nil {
		return err
	}
	defer reader.Close()
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of events: %d", reader.Entries())
		logger.Info(message, "main")
	}

	writer, err := osiris.NewHitWriter(configuration.FileOut)
	if err != nil {
		return err
	}
	defer writer.Close()

	analyzer := osiris.NewAnalyzer(extractor, geometry, runInfo, configuration.HighGainOnly)
	stats, err := processEvents(reader, analyzer, int64(configuration.Skip), int64(configuration.MaxEvents),
		configuration.NumWorkers, writer.WriteHit)
	if err != nil {
		return err
	}
	if err := writer.Commit(); err != nil {
		return err
	}

	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Events: %d, channels: %d, hits: %d, not fired: %d, low gain skipped: %d, missing geometry: %d",
			stats.Events, stats.Channels, stats.Hits, stats.NotFired, stats.SkippedLowGain, stats.MissingGeometry)
		logger.Info(message, "main")
		message = fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds())
		logger.Info(message, "main")
	}
	return nil
}

// loadGeometry reads the channel map from the conditions database when
// use_db is set and from the geometry file otherwise.
func loadGeometry(configuration *osiris.Configuration) (*osiris.GeometryMap, error) {
	if !configuration.UseDB {
		return osiris.LoadGeometry(configuration.GeometryFile)
	}
	dbConn, err := osiris.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
	if err != nil {
		return nil, fmt.Errorf("Error connection to database: %w", err)
	}
	defer dbConn.Close()
	return osiris.LoadDatabase(dbConn, configuration)
}
