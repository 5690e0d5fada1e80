// Package turretarm is the motion core of a three-joint turret arm: two pivots
// on a rotating turret, driven toward Cartesian targets by per-joint PID loops
// that re-home against limit switches.
//
// # Installation
//
//	go install github.com/gwillem/turretarm/cmd/turretarm@latest
//
// # Usage
//
// Watch the simulated arm and drive it from the keyboard:
//
//	turretarm monitor
//
// Calibrate against the limit switches, then move to a scoring position:
//
//	turretarm calibrate
//	turretarm place top-middle-far
//
// Run an autonomous routine headless:
//
//	turretarm run --auto place-top-center --duration 15s
//
// A desktop bench rig built from three serial bus servos is set up with:
//
//	turretarm scan
//	turretarm setup
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/turretarm: CLI with run, monitor, calibrate, place, scan and setup commands
//   - pkg/kinematics: forward and inverse kinematics
//   - pkg/arm: arm subsystem, calibration, go-toward and placement positions
//   - pkg/activity: cooperative activities and the resource scheduler
//   - pkg/control: periodic control loop
//   - pkg/auto: autonomous routines
//   - pkg/hardware: motor, encoder and switch contracts with simulated, CAN and GPIO drivers
//   - pkg/robot: configuration, bench rig and backend selection
//   - pkg/telemetry: named value table and serial feed
//   - pkg/mathutil: numeric helpers
package turretarm
