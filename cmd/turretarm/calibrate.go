package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/turretarm/pkg/arm"
)

type CalibrateCommand struct {
	Timeout time.Duration `long:"timeout" default:"30s" description:"Give up after this long"`
	Yes     bool          `short:"y" long:"yes" description:"Skip the confirmation"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	if !c.Yes {
		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Calibrate the arm?").
					Description("Both pivots drive down until they press their limit switches.\nKeep clear of the arm.").
					Affirmative("Calibrate").
					Negative("Cancel").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil || !confirmed {
			fmt.Println(dimStyle.Render("Calibration cancelled."))
			return nil
		}
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	done := s.start(ctx)
	defer func() {
		cancel()
		<-done
	}()

	cal := arm.NewCalibration(s.arm)
	if err := s.runActivity(ctx, cal, c.Timeout); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Calibration complete."))
	return nil
}
