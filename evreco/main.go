package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	osiris "github.com/osiris-exp/reco_go/pkg"
)

var (
	logger         osiris.Logger = osiris.NewSlogLogger()
	VerbosityLevel int
)

type options struct {
	config      string
	in          string
	out         string
	veto        bool
	odThreshold int
}

func parseFlags(fs *flag.FlagSet, args []string) (options, map[string]bool, error) {
	var opts options
	fs.StringVar(&opts.config, "config", "", "Configuration file path")
	fs.StringVar(&opts.in, "in", "", "Hit table, directory or glob pattern")
	fs.StringVar(&opts.out, "out", "", "Output file (.h5, .root or .duckdb)")
	fs.BoolVar(&opts.veto, "veto", false, "Apply the muon veto")
	fs.IntVar(&opts.odThreshold, "od-threshold", 0, "Outer detector multiplicity that tags a muon")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return opts, set, nil
}

// applyFlags overrides the configuration file with the flags given on the
// command line.
func applyFlags(configuration *osiris.Configuration, opts options, set map[string]bool) {
	if set["in"] {
		configuration.FileIn = opts.in
	}
	if set["out"] {
		configuration.FileOut = opts.out
	}
	if set["veto"] {
		configuration.ApplyMuonVeto = opts.veto
	}
	if set["od-threshold"] {
		configuration.ODThreshold = opts.odThreshold
	}
}

func main() {
	opts, set, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		logger.Error(err.Error())
		return
	}

	configuration, err := osiris.LoadConfiguration(opts.config)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	applyFlags(&configuration, opts, set)

	osiris.SetLogger(logger)
	osiris.SetVerbosity(configuration.Verbosity)
	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", opts.config)
		logger.Info(message, "main")
		printConfiguration(configuration, logger)
	}

	if err := run(configuration); err != nil {
		logger.Error(err.Error())
	}
}

func run(configuration osiris.Configuration) error {
	start := time.Now()
	geometry, err := loadGeometry(&configuration)
	if err != nil {
		return err
	}
	if err := configuration.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	result, err := process(configuration, geometry)
	if err != nil {
		return err
	}
	if VerbosityLevel > 0 {
		for _, line := range summaryLines(result) {
			logger.Info(line, "main")
		}
		message := fmt.Sprintf("Total time: %d ms", time.Since(start).Milliseconds())
		logger.Info(message, "main")
	}
	return nil
}

// loadGeometry returns the channel map used to fill in hits without a
// position. With use_db the calibration divisors are also taken from the
// database. Without a geometry file the hit table positions are used as is.
func loadGeometry(configuration *osiris.Configuration) (*osiris.GeometryMap, error) {
	if configuration.UseDB {
		dbConn, err := osiris.ConnectToDatabase(configuration.User, configuration.Passwd, configuration.Host, configuration.DBName)
		if err != nil {
			return nil, fmt.Errorf("Error connection to database: %w", err)
		}
		defer dbConn.Close()
		return osiris.LoadDatabase(dbConn, configuration)
	}
	if configuration.GeometryFile == "" {
		return nil, nil
	}
	return osiris.LoadGeometry(configuration.GeometryFile)
}
