package robot

import (
	"context"
	"fmt"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"

	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/hardware"
)

// Rig is the hardware selected by the configured backend.
type Rig struct {
	Backend  string
	Hardware arm.Hardware
	// Plant is stepped once per tick before the arm runs. It is nil when the
	// hardware runs on its own.
	Plant hardware.Plant
	Claw  hardware.DigitalOutput
	// Sim is set for the simulated backend.
	Sim *hardware.Sim

	closers []func() error
}

// Open builds the rig for cfg.Backend.
func Open(ctx context.Context, cfg *Config, logger golog.Logger) (*Rig, error) {
	switch cfg.Backend {
	case BackendSim:
		return openSim(cfg), nil
	case BackendCAN:
		return openCAN(cfg, logger)
	case BackendBench:
		return openBench(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func openSim(cfg *Config) *Rig {
	sim := hardware.NewSim(cfg.Sim)
	return &Rig{
		Backend: BackendSim,
		Hardware: arm.Hardware{
			Pivot1:      arm.JointHardware{Motor: sim.Pivot1, Encoder: sim.Pivot1},
			Pivot2:      arm.JointHardware{Motor: sim.Pivot2, Encoder: sim.Pivot2},
			Turret:      arm.JointHardware{Motor: sim.Turret, Encoder: sim.Turret},
			Pivot1Limit: sim.Limit1,
			Pivot2Limit: sim.Limit2,
		},
		Plant: sim,
		Claw:  sim.Claw,
		Sim:   sim,
	}
}

func openCAN(cfg *Config, logger golog.Logger) (*Rig, error) {
	bus, err := hardware.OpenCANBus(cfg.CAN.Interface, logger)
	if err != nil {
		return nil, err
	}
	if err := hardware.OpenGPIO(); err != nil {
		bus.Close()
		return nil, err
	}
	joint := func(id uint8) arm.JointHardware {
		return arm.JointHardware{Motor: bus.Motor(id), Encoder: bus.Encoder(id)}
	}
	return &Rig{
		Backend: BackendCAN,
		Hardware: arm.Hardware{
			Pivot1:      joint(cfg.CAN.Pivot1ID),
			Pivot2:      joint(cfg.CAN.Pivot2ID),
			Turret:      joint(cfg.CAN.TurretID),
			Pivot1Limit: hardware.NewGPIOInput(cfg.Limits.Pivot1Pin),
			Pivot2Limit: hardware.NewGPIOInput(cfg.Limits.Pivot2Pin),
		},
		Claw:    hardware.NewGPIOOutput(cfg.Claw.Pin),
		closers: []func() error{hardware.CloseGPIO, bus.Close},
	}, nil
}

func openBench(ctx context.Context, cfg *Config, logger golog.Logger) (*Rig, error) {
	bench, err := OpenBenchArm(cfg.Bench, logger)
	if err != nil {
		return nil, err
	}
	if err := bench.Enable(ctx); err != nil {
		bench.Close()
		return nil, err
	}
	return &Rig{
		Backend: BackendBench,
		Hardware: arm.Hardware{
			Pivot1:      arm.JointHardware{Motor: bench.Pivot1, Encoder: bench.Pivot1},
			Pivot2:      arm.JointHardware{Motor: bench.Pivot2, Encoder: bench.Pivot2},
			Turret:      arm.JointHardware{Motor: bench.Turret, Encoder: bench.Turret},
			Pivot1Limit: bench.Limit1,
			Pivot2Limit: bench.Limit2,
		},
		Plant:   bench,
		Claw:    &hardware.SimSolenoid{},
		closers: []func() error{bench.Close},
	}, nil
}

// Close releases the rig's hardware in reverse order of opening. Every closer
// runs; their errors are combined.
func (r *Rig) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i]())
	}
	r.closers = nil
	return err
}
