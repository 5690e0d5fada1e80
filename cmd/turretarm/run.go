package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwillem/turretarm/pkg/auto"
)

type RunCommand struct {
	Auto     string        `long:"auto" description:"Autonomous routine to run after startup"`
	Duration time.Duration `long:"duration" description:"Stop after this long (default: until interrupted)"`
	List     bool          `long:"list" description:"List the autonomous routines and exit"`
}

func (c *RunCommand) Execute(args []string) error {
	if c.List {
		for _, r := range auto.Routines() {
			fmt.Printf("  %-22s %s\n", r.Name, r.Description)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if c.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Duration)
		defer cancel()
	}

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Auto != "" {
		routine, err := auto.Build(c.Auto, s.env())
		if err != nil {
			return err
		}
		s.ctrl.Schedule(routine)
	}

	logger.Infow("running", "backend", cfg.Backend, "hz", cfg.Hz, "auto", c.Auto)
	done := s.start(ctx)
	report := time.NewTicker(time.Second)
	defer report.Stop()

	for {
		select {
		case err := <-done:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case <-report.C:
			select {
			case st := <-s.ctrl.States():
				logger.Debugw("state",
					"angles", st.Angles,
					"pose", st.Current,
					"target", st.Target,
					"pid", st.PID,
					"active", st.Active,
				)
			default:
			}
		}
	}
}
