// Package robot assembles the turret arm's hardware from configuration: the
// simulated plant, the competition robot's CAN motor controllers and switches,
// or the desktop bench rig built from serial bus servos.
package robot

// MotorName identifies a motor on the bench rig.
type MotorName string

// Motor names for the bench rig.
const (
	Pivot1Motor MotorName = "pivot1"
	Pivot2Motor MotorName = "pivot2"
	TurretMotor MotorName = "turret"
)

// AllMotors returns all motor names in order (matching servo IDs 1-3).
func AllMotors() []MotorName {
	return []MotorName{
		Pivot1Motor,
		Pivot2Motor,
		TurretMotor,
	}
}
