package main

import (
	"os"

	"github.com/edaniels/golog"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/gwillem/turretarm/pkg/robot"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"turretarm.json" description:"Configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log debug output"`

	Run       RunCommand       `command:"run" description:"Run the control loop headless, optionally with an autonomous routine"`
	Monitor   MonitorCommand   `command:"monitor" alias:"mon" description:"Drive the arm from a live dashboard"`
	Calibrate CalibrateCommand `command:"calibrate" description:"Drive both pivots onto their limit switches and re-home"`
	Place     PlaceCommand     `command:"place" description:"Move the arm to a named placement position"`
	Scan      ScanCommand      `command:"scan" description:"List serial ports and find bench rigs"`
	Setup     SetupCommand     `command:"setup" description:"Record the bench rig's servo ranges"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "turretarm - control core for a three-joint turret arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig loads the configuration file, falling back to the defaults when it
// does not exist.
func loadConfig() (*robot.Config, error) {
	if _, err := os.Stat(opts.Config); os.IsNotExist(err) {
		return robot.DefaultConfig(), nil
	}
	return robot.LoadConfigFrom(opts.Config)
}

// newLogger returns the command logger. With paths set, output goes there
// instead of the terminal.
func newLogger(paths ...string) (golog.Logger, error) {
	if opts.Verbose && len(paths) == 0 {
		return golog.NewDevelopmentLogger("turretarm"), nil
	}
	cfg := zap.NewDevelopmentConfig()
	if !opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if len(paths) > 0 {
		cfg.OutputPaths = paths
		cfg.ErrorOutputPaths = paths
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().Named("turretarm"), nil
}
