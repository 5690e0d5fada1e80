package arm

import (
	"testing"
	"time"

	"github.com/gwillem/turretarm/pkg/kinematics"
)

func TestPositions_AllReachable(t *testing.T) {
	geo := DefaultConfig().Geometry
	cells := AllCells()
	if len(cells) != 27 {
		t.Fatalf("AllCells() returned %d cells", len(cells))
	}
	for _, c := range cells {
		p, err := PositionFor(c)
		if err != nil {
			t.Fatalf("PositionFor(%v) error = %v", c, err)
		}
		for _, approach := range []kinematics.Approach{kinematics.SideApproach, kinematics.TopApproach} {
			if geo.Inverse(p, approach).HasNaN() {
				t.Errorf("%v %v unreachable on %v", c, p, approach)
			}
		}
	}
}

func TestPositions_Ordering(t *testing.T) {
	bottom, _ := PositionFor(Cell{Bottom, Middle, Mid})
	top, _ := PositionFor(Cell{Top, Middle, Mid})
	left, _ := PositionFor(Cell{Center, Left, Mid})
	right, _ := PositionFor(Cell{Center, Right, Mid})
	near, _ := PositionFor(Cell{Center, Middle, Near})
	far, _ := PositionFor(Cell{Center, Middle, Far})

	if !(bottom.Y < top.Y) {
		t.Error("bottom is not below top")
	}
	if !(left.Z < right.Z) {
		t.Error("left is not left of right")
	}
	if !(near.X < far.X) {
		t.Error("near is not nearer than far")
	}
}

func TestPositionFor_Invalid(t *testing.T) {
	if _, err := PositionFor(Cell{Level: 3}); err == nil {
		t.Error("PositionFor() accepted an invalid level")
	}
}

func TestParseCell(t *testing.T) {
	for _, c := range AllCells() {
		got, err := ParseCell(c.String())
		if err != nil || got != c {
			t.Errorf("ParseCell(%q) = %v, %v", c.String(), got, err)
		}
	}
	for _, bad := range []string{"", "top-left", "up-left-far", "top-left-far-away"} {
		if _, err := ParseCell(bad); err == nil {
			t.Errorf("ParseCell(%q) succeeded", bad)
		}
	}
	if got, err := ParseCell(" Top-Right-Near "); err != nil || got != (Cell{Top, Right, Near}) {
		t.Errorf("ParseCell() case-insensitive = %v, %v", got, err)
	}
}

func TestKeypadCell(t *testing.T) {
	tests := []struct {
		digit int
		want  Cell
	}{
		{1, Cell{Bottom, Left, Far}},
		{3, Cell{Bottom, Right, Far}},
		{5, Cell{Center, Middle, Far}},
		{7, Cell{Top, Left, Far}},
		{9, Cell{Top, Right, Far}},
	}
	for _, tt := range tests {
		got, ok := KeypadCell(tt.digit, Far)
		if !ok || got != tt.want {
			t.Errorf("KeypadCell(%d) = %v, %t, want %v", tt.digit, got, ok, tt.want)
		}
	}
	for _, digit := range []int{0, 10, -1} {
		if _, ok := KeypadCell(digit, Far); ok {
			t.Errorf("KeypadCell(%d) ok", digit)
		}
	}
}

type keypad struct{ key int }

func (k *keypad) Keypad() int { return k.key }

func TestKeypadPlacer(t *testing.T) {
	f := newFakeArm(t)
	pad := &keypad{}
	placer := NewKeypadPlacer(f.Arm, pad, Mid)
	home := f.IntendedCoordinates()

	placer.Update()
	if f.IntendedCoordinates() != home {
		t.Fatal("no key moved the target")
	}

	pad.key = 8
	placer.Update()
	want, _ := PositionFor(Cell{Top, Middle, Mid})
	if !vecClose(f.IntendedCoordinates(), want, 1e-6) {
		t.Fatalf("target = %v, want %v", f.IntendedCoordinates(), want)
	}

	// A held key is not re-issued after the target is moved elsewhere.
	f.MoveVector(0, -5, 0)
	moved := f.IntendedCoordinates()
	placer.Update()
	if f.IntendedCoordinates() != moved {
		t.Error("held key re-issued its target")
	}

	pad.key = 12
	placer.Update()
	if f.IntendedCoordinates() != moved {
		t.Error("out of range key moved the target")
	}
}

func TestGoTowardPosition(t *testing.T) {
	f := newFakeArm(t)
	g, err := GoTowardPosition(f.Arm, Cell{Center, Left, Near}, time.Second, nil)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := PositionFor(Cell{Center, Left, Near})
	if g.target != want || g.timeout != time.Second {
		t.Errorf("GoTowardPosition() = %v %v", g.target, g.timeout)
	}
	if _, err := GoTowardPosition(f.Arm, Cell{Depth: 7}, 0, nil); err == nil {
		t.Error("GoTowardPosition() accepted an invalid cell")
	}
}
