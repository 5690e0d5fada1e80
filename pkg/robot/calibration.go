package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

// StepsPerRev is the resolution of an STS servo's magnetic encoder.
const StepsPerRev = 4096

// MotorCalibration holds calibration data for a single bench servo.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"` // 1 reverses the servo direction
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]MotorCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, mc := range raw {
		cal[MotorName(name)] = mc
	}

	return cal, nil
}

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Degrees converts a raw servo position to degrees from the homing offset.
func (c MotorCalibration) Degrees(raw int) float64 {
	deg := float64(raw-c.HomingOffset) * 360 / StepsPerRev
	if c.DriveMode == 1 {
		return -deg
	}
	return deg
}

// Raw converts degrees from the homing offset to the nearest raw position,
// clamped to the recorded range.
func (c MotorCalibration) Raw(deg float64) int {
	if c.DriveMode == 1 {
		deg = -deg
	}
	steps := deg * StepsPerRev / 360
	if steps < 0 {
		steps -= 0.5
	} else {
		steps += 0.5
	}
	return c.Clamp(int(steps) + c.HomingOffset)
}

// Clamp limits raw to the recorded range.
func (c MotorCalibration) Clamp(raw int) int {
	if raw < c.RangeMin {
		return c.RangeMin
	}
	if raw > c.RangeMax {
		return c.RangeMax
	}
	return raw
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}
