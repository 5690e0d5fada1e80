package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/auto"
)

type PlaceCommand struct {
	Timeout time.Duration `long:"timeout" default:"5s" description:"Stop moving after this long"`
	Args    struct {
		Position string `positional-arg-name:"POSITION" description:"Position as level-column-depth, e.g. top-middle-far"`
	} `positional-args:"yes"`
}

func selectCell() (arm.Cell, error) {
	var options []huh.Option[string]
	for _, c := range arm.AllCells() {
		p, _ := arm.PositionFor(c)
		label := fmt.Sprintf("%-20s (%.0f, %.0f, %.0f)", c, p.X, p.Y, p.Z)
		options = append(options, huh.NewOption(label, c.String()))
	}

	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where should the arm go?").
				Description("x forward, y up, z sideways, in inches").
				Options(options...).
				Height(12).
				Value(&name),
		),
	)
	if err := form.Run(); err != nil {
		return arm.Cell{}, err
	}
	return arm.ParseCell(name)
}

func (c *PlaceCommand) Execute(args []string) error {
	var cell arm.Cell
	var err error
	if c.Args.Position != "" {
		cell, err = arm.ParseCell(c.Args.Position)
	} else {
		cell, err = selectCell()
	}
	if err != nil {
		return err
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

	goTo, err := arm.GoTowardPosition(s.arm, cell, c.Timeout, activity.SystemClock{})
	if err != nil {
		return err
	}
	if err := s.runActivity(ctx, activity.NewSequence(auto.EnablePID(s.arm), goTo), 0); err != nil {
		return err
	}
	if goTo.TimedOut() {
		fmt.Printf("Stopped short of %s after %v.\n", cell, c.Timeout)
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("Arm at %s.", cell)))
	return nil
}
