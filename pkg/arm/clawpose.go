package arm

import "github.com/golang/geo/r3"

// ClawPose is the claw position in the robot's field-facing frame.
//
// The translation is ordered (x, z, y): the arm's lateral axis comes second and
// its height last, so dropping the third component projects the claw onto the
// floor. The rotation is always the identity.
type ClawPose struct {
	Translation r3.Vector `json:"translation"`
}

// NewClawPose converts an arm-local (x, y, z) position.
func NewClawPose(p r3.Vector) ClawPose {
	return ClawPose{Translation: r3.Vector{X: p.X, Y: p.Z, Z: p.Y}}
}

// Height returns the claw height.
func (c ClawPose) Height() float64 {
	return c.Translation.Z
}

// Pose2d is a position on the floor plane with a heading in degrees.
type Pose2d struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// ToPose2d drops the height.
func (c ClawPose) ToPose2d() Pose2d {
	return Pose2d{X: c.Translation.X, Y: c.Translation.Y}
}
