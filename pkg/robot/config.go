package robot

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/arm"
	"github.com/gwillem/turretarm/pkg/hardware"
)

const DefaultConfigFile = "turretarm.json"

// Backends.
const (
	BackendSim   = "sim"
	BackendCAN   = "can"
	BackendBench = "bench"
)

// Config holds the robot configuration
type Config struct {
	Hz      int    `json:"hz"`
	Backend string `json:"backend"`

	Arm       arm.Config         `json:"arm"`
	CAN       CANConfig          `json:"can"`
	Limits    LimitsConfig       `json:"limits"`
	Claw      ClawConfig         `json:"claw"`
	Bench     BenchConfig        `json:"bench"`
	Telemetry TelemetryConfig    `json:"telemetry"`
	Sim       hardware.SimConfig `json:"sim"`
	Keypad    KeypadConfig       `json:"keypad"`
}

// CANConfig holds the SocketCAN interface and motor controller device ids.
type CANConfig struct {
	Interface string `json:"interface"`
	Pivot1ID  uint8  `json:"pivot1_id"`
	Pivot2ID  uint8  `json:"pivot2_id"`
	TurretID  uint8  `json:"turret_id"`
}

// LimitsConfig holds the BCM pins of the pivot limit switches.
type LimitsConfig struct {
	Pivot1Pin int `json:"pivot1_pin"`
	Pivot2Pin int `json:"pivot2_pin"`
}

// ClawConfig holds the BCM pin driving the claw solenoid.
type ClawConfig struct {
	Pin int `json:"pin"`
}

// TelemetryConfig holds the driver station serial link. An empty port disables
// the feed.
type TelemetryConfig struct {
	Port string `json:"port"`
	Baud int    `json:"baud"`
}

// KeypadConfig enables keypad placement at a fixed depth.
type KeypadConfig struct {
	Enabled bool   `json:"enabled"`
	Depth   string `json:"depth"`
}

// DefaultConfig returns a configuration for the simulated arm.
func DefaultConfig() *Config {
	armCfg := arm.DefaultConfig()
	pivot := func(start float64) hardware.SimJointConfig {
		return hardware.SimJointConfig{
			DegreesPerRev: 2.88,
			MaxSpeed:      90,
			Wiring:        -1,
			StartAngle:    start,
			HasStop:       true,
			StopAngle:     start,
		}
	}
	return &Config{
		Hz:      50,
		Backend: BackendSim,
		Arm:     armCfg,
		CAN: CANConfig{
			Interface: "can0",
			Pivot1ID:  11,
			Pivot2ID:  12,
			TurretID:  13,
		},
		Limits: LimitsConfig{Pivot1Pin: 17, Pivot2Pin: 27},
		Claw:   ClawConfig{Pin: 22},
		Bench: BenchConfig{
			DegreesPerRev: map[MotorName]float64{Pivot1Motor: 2.88, Pivot2Motor: 2.88, TurretMotor: 1},
			Wiring:        map[MotorName]float64{Pivot1Motor: -1, Pivot2Motor: -1, TurretMotor: 1},
			MaxSpeed:      90,
			LimitMargin:   1,
		},
		Telemetry: TelemetryConfig{Baud: 115200},
		Sim: hardware.SimConfig{
			Pivot1: pivot(armCfg.Arm1InitialAngle),
			Pivot2: pivot(armCfg.Arm2InitialAngle),
			Turret: hardware.SimJointConfig{DegreesPerRev: 1, MaxSpeed: 60, Wiring: 1},
		},
		Keypad: KeypadConfig{Depth: "far"},
	}
}

// Period returns the control tick.
func (c *Config) Period() time.Duration {
	return time.Second / time.Duration(c.Hz)
}

// ArmConfig returns the arm constants with the tick period filled in.
func (c *Config) ArmConfig() arm.Config {
	cfg := c.Arm
	cfg.Period = c.Period()
	return cfg
}

// KeypadDepth returns the parsed keypad depth.
func (c *Config) KeypadDepth() (arm.Depth, error) {
	return arm.ParseDepth(c.Keypad.Depth)
}

// Validate checks the configuration for the selected backend.
func (c *Config) Validate() error {
	if c.Hz <= 0 {
		return errors.Errorf("hz %d must be positive", c.Hz)
	}
	if err := c.ArmConfig().Validate(); err != nil {
		return errors.Wrap(err, "arm")
	}
	switch c.Backend {
	case BackendSim:
	case BackendCAN:
		if c.CAN.Interface == "" {
			return errors.New("can backend needs an interface")
		}
		ids := map[uint8]bool{c.CAN.Pivot1ID: true, c.CAN.Pivot2ID: true, c.CAN.TurretID: true}
		if len(ids) != 3 {
			return errors.New("can device ids must be distinct")
		}
	case BackendBench:
		if c.Bench.Port == "" {
			return errors.New("bench backend needs a serial port")
		}
		if !c.Bench.IsCalibrated() {
			return errors.New("bench rig is not calibrated")
		}
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if c.Keypad.Enabled {
		if _, err := c.KeypadDepth(); err != nil {
			return errors.Wrap(err, "keypad")
		}
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Keys missing from
// the file keep their default values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
