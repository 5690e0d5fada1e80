// Package kinematics maps between joint angles and end-effector coordinates for a
// two-link planar arm that a turret rotates about the vertical axis.
//
// Coordinates are arm-local: Y is height (including the base height), X points
// forward in the turret's zero direction and Z is lateral. All angles are in
// degrees.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
)

// Geometry holds the arm's link lengths and the height of the first pivot.
type Geometry struct {
	Limb1Length float64 `json:"limb1_length"`
	Limb2Length float64 `json:"limb2_length"`
	BaseHeight  float64 `json:"base_height"`
}

// Angles is a joint-space configuration in degrees.
//
// Pivot2 is the interior angle between the two links, so 180 means the arm is
// stretched straight.
type Angles struct {
	Pivot1 float64 `json:"pivot1"`
	Pivot2 float64 `json:"pivot2"`
	Turret float64 `json:"turret"`
}

// HasNaN reports whether any joint angle is NaN.
func (a Angles) HasNaN() bool {
	return math.IsNaN(a.Pivot1) || math.IsNaN(a.Pivot2) || math.IsNaN(a.Turret)
}

// Radians converts every angle to radians.
func (a Angles) Radians() Angles {
	return Angles{
		Pivot1: Radians(a.Pivot1),
		Pivot2: Radians(a.Pivot2),
		Turret: Radians(a.Turret),
	}
}

// Slice returns the angles ordered pivot1, pivot2, turret.
func (a Angles) Slice() []float64 {
	return []float64{a.Pivot1, a.Pivot2, a.Turret}
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

func nanAngles() Angles {
	nan := math.NaN()
	return Angles{Pivot1: nan, Pivot2: nan, Turret: nan}
}

// Forward returns the end-effector position for the given joint angles.
func (g Geometry) Forward(a Angles) r3.Vector {
	shoulder := Radians(a.Pivot1)
	forearm := Radians(a.Pivot1 + a.Pivot2 - 180)

	r := g.Limb1Length*math.Cos(shoulder) + g.Limb2Length*math.Cos(forearm)
	y := g.Limb1Length*math.Sin(shoulder) + g.Limb2Length*math.Sin(forearm) + g.BaseHeight

	turret := Radians(a.Turret)
	return r3.Vector{
		X: r * math.Cos(turret),
		Y: y,
		Z: r * math.Sin(turret),
	}
}

// Inverse returns the joint angles that place the end effector at p using the
// elbow branch selected by approach. The turret angle is in (-180, 180]. When p
// is out of reach every angle is NaN; callers must check with Angles.HasNaN.
func (g Geometry) Inverse(p r3.Vector, approach Approach) Angles {
	r := math.Hypot(p.X, p.Z)
	turret := Degrees(math.Atan2(p.Z, p.X))

	h := p.Y - g.BaseHeight
	d2 := r*r + h*h
	d := math.Sqrt(d2)
	l1, l2 := g.Limb1Length, g.Limb2Length

	// Law of cosines for the elbow (interior) and shoulder offset angles.
	cosElbow := (l1*l1 + l2*l2 - d2) / (2 * l1 * l2)
	cosShoulder := (l1*l1 + d2 - l2*l2) / (2 * l1 * d)
	if !inUnitRange(cosElbow) || !inUnitRange(cosShoulder) {
		return nanAngles()
	}

	interior := Degrees(math.Acos(cosElbow))
	offset := Degrees(math.Acos(cosShoulder))
	elevation := Degrees(math.Atan2(h, r))

	if approach == TopApproach {
		return Angles{Pivot1: elevation - offset, Pivot2: 360 - interior, Turret: turret}
	}
	return Angles{Pivot1: elevation + offset, Pivot2: interior, Turret: turret}
}

// Reach returns the maximum distance from the first pivot the arm can reach.
func (g Geometry) Reach() float64 {
	return g.Limb1Length + g.Limb2Length
}

// inUnitRange is false for NaN as well as values outside [-1, 1].
func inUnitRange(v float64) bool {
	return v >= -1 && v <= 1
}
