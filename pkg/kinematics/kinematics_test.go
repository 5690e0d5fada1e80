package kinematics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

var testGeometry = Geometry{
	Limb1Length: 38,
	Limb2Length: 33,
	BaseHeight:  8.5,
}

const (
	homePivot1 = 35.0
	homePivot2 = 20.0
)

func closeTo(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestForward_Straight(t *testing.T) {
	// Pivot2 = 180 stretches the arm; pivot1 = 0 lays it flat.
	got := testGeometry.Forward(Angles{Pivot1: 0, Pivot2: 180, Turret: 0})
	want := r3.Vector{X: 71, Y: 8.5, Z: 0}
	if !closeTo(got.X, want.X, 1e-9) || !closeTo(got.Y, want.Y, 1e-9) || !closeTo(got.Z, want.Z, 1e-9) {
		t.Errorf("Forward(straight) = %v, want %v", got, want)
	}

	// Straight up, turret turned 90 degrees changes nothing.
	got = testGeometry.Forward(Angles{Pivot1: 90, Pivot2: 180, Turret: 90})
	if !closeTo(got.X, 0, 1e-9) || !closeTo(got.Y, 79.5, 1e-9) || !closeTo(got.Z, 0, 1e-9) {
		t.Errorf("Forward(vertical) = %v", got)
	}
}

func TestForward_TurretRotation(t *testing.T) {
	base := testGeometry.Forward(Angles{Pivot1: homePivot1, Pivot2: homePivot2, Turret: 0})
	rotated := testGeometry.Forward(Angles{Pivot1: homePivot1, Pivot2: homePivot2, Turret: 90})

	if !closeTo(rotated.X, 0, 1e-9) {
		t.Errorf("rotated X = %f, want 0", rotated.X)
	}
	if !closeTo(rotated.Z, base.X, 1e-9) {
		t.Errorf("rotated Z = %f, want %f", rotated.Z, base.X)
	}
	if !closeTo(rotated.Y, base.Y, 1e-9) {
		t.Errorf("rotated Y = %f, want %f", rotated.Y, base.Y)
	}
}

func TestHomeRoundTrip(t *testing.T) {
	for _, turret := range []float64{-150, -90, -30, 0, 12.5, 45, 120, 179} {
		home := Angles{Pivot1: homePivot1, Pivot2: homePivot2, Turret: turret}
		start := testGeometry.Forward(home)

		got := testGeometry.Inverse(start, SideApproach)
		if got.HasNaN() {
			t.Fatalf("Inverse(home at turret %f) returned NaN", turret)
		}
		if !closeTo(got.Pivot1, homePivot1, 1e-6) || !closeTo(got.Pivot2, homePivot2, 1e-6) || !closeTo(got.Turret, turret, 1e-6) {
			t.Errorf("Inverse(Forward(%+v)) = %+v", home, got)
		}
	}
}

func TestForwardInverseComposition(t *testing.T) {
	points := []r3.Vector{
		{X: 20, Y: 5, Z: 0},
		{X: 30, Y: 34, Z: -22},
		{X: 40, Y: 46, Z: 22},
		{X: -25, Y: 20, Z: 10},
		{X: 12, Y: 60, Z: 3},
		{X: 0.5, Y: 30, Z: 35},
	}

	for _, p := range points {
		for _, approach := range []Approach{SideApproach, TopApproach} {
			angles := testGeometry.Inverse(p, approach)
			if angles.HasNaN() {
				t.Fatalf("Inverse(%v, %s) returned NaN for a reachable point", p, approach)
			}
			back := testGeometry.Forward(angles)
			if !closeTo(back.X, p.X, 1e-6) || !closeTo(back.Y, p.Y, 1e-6) || !closeTo(back.Z, p.Z, 1e-6) {
				t.Errorf("Forward(Inverse(%v, %s)) = %v", p, approach, back)
			}
		}
	}
}

func TestInverse_BranchesDiffer(t *testing.T) {
	p := r3.Vector{X: 30, Y: 34, Z: 0}
	side := testGeometry.Inverse(p, SideApproach)
	top := testGeometry.Inverse(p, TopApproach)

	if side.Pivot1 <= top.Pivot1 {
		t.Errorf("side approach shoulder %f should be above top approach shoulder %f", side.Pivot1, top.Pivot1)
	}
	if !closeTo(side.Pivot2+top.Pivot2, 360, 1e-9) {
		t.Errorf("elbow angles %f and %f should mirror about 180", side.Pivot2, top.Pivot2)
	}
}

func TestInverse_Unreachable(t *testing.T) {
	tests := []struct {
		name string
		p    r3.Vector
	}{
		{"far away", r3.Vector{X: 1e6, Y: 1e6, Z: 1e6}},
		{"just past reach", r3.Vector{X: 71.5, Y: 8.5, Z: 0}},
		{"inside minimum radius", r3.Vector{X: 2, Y: 8.5, Z: 0}},
		{"NaN input", r3.Vector{X: math.NaN(), Y: 10, Z: 0}},
	}

	for _, tt := range tests {
		got := testGeometry.Inverse(tt.p, SideApproach)
		if !math.IsNaN(got.Pivot1) || !math.IsNaN(got.Pivot2) || !math.IsNaN(got.Turret) {
			t.Errorf("%s: Inverse(%v) = %+v, want all NaN", tt.name, tt.p, got)
		}
	}
}

func TestAngles_HasNaN(t *testing.T) {
	if (Angles{1, 2, 3}).HasNaN() {
		t.Error("HasNaN() = true for finite angles")
	}
	if !(Angles{1, math.NaN(), 3}).HasNaN() {
		t.Error("HasNaN() = false with NaN pivot2")
	}
}

func TestAngles_Radians(t *testing.T) {
	got := Angles{Pivot1: 180, Pivot2: 90, Turret: -45}.Radians()
	if !closeTo(got.Pivot1, math.Pi, 1e-12) || !closeTo(got.Pivot2, math.Pi/2, 1e-12) || !closeTo(got.Turret, -math.Pi/4, 1e-12) {
		t.Errorf("Radians() = %+v", got)
	}
}

func TestParseApproach(t *testing.T) {
	tests := []struct {
		in      string
		want    Approach
		wantErr bool
	}{
		{"side", SideApproach, false},
		{"TOP_APPROACH", TopApproach, false},
		{" top ", TopApproach, false},
		{"diagonal", SideApproach, true},
	}

	for _, tt := range tests {
		got, err := ParseApproach(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseApproach(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseApproach(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestApproachFromFlipped(t *testing.T) {
	if ApproachFromFlipped(false) != SideApproach || ApproachFromFlipped(true) != TopApproach {
		t.Error("ApproachFromFlipped mapping is wrong")
	}
	if SideApproach.Flipped() || !TopApproach.Flipped() {
		t.Error("Flipped mapping is wrong")
	}
}
