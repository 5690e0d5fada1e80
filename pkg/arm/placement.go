package arm

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gwillem/turretarm/pkg/activity"
	"github.com/gwillem/turretarm/pkg/kinematics"
)

// Level is a scoring row height.
type Level int

const (
	Bottom Level = iota
	Center
	Top
)

// Column is a scoring column as seen from the robot.
type Column int

const (
	Left Column = iota
	Middle
	Right
)

// Depth is the forward distance of a scoring position.
type Depth int

const (
	Near Depth = iota
	Mid
	Far
)

var (
	levelNames  = [...]string{"bottom", "center", "top"}
	columnNames = [...]string{"left", "middle", "right"}
	depthNames  = [...]string{"near", "mid", "far"}
)

func (l Level) String() string  { return enumName(levelNames[:], int(l), "Level") }
func (c Column) String() string { return enumName(columnNames[:], int(c), "Column") }
func (d Depth) String() string  { return enumName(depthNames[:], int(d), "Depth") }

func enumName(names []string, i int, kind string) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%s(%d)", kind, i)
	}
	return names[i]
}

// Cell names one of the 27 placement positions.
type Cell struct {
	Level  Level
	Column Column
	Depth  Depth
}

// String returns the cell as "level-column-depth", e.g. "top-left-far".
func (c Cell) String() string {
	return c.Level.String() + "-" + c.Column.String() + "-" + c.Depth.String()
}

func (c Cell) valid() bool {
	return c.Level >= Bottom && c.Level <= Top &&
		c.Column >= Left && c.Column <= Right &&
		c.Depth >= Near && c.Depth <= Far
}

// ParseCell parses the String form of a cell.
func ParseCell(s string) (Cell, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "-")
	if len(parts) != 3 {
		return Cell{}, errors.Errorf("invalid position %q, want level-column-depth", s)
	}
	level, lok := indexOf(levelNames[:], parts[0])
	column, cok := indexOf(columnNames[:], parts[1])
	depth, dok := indexOf(depthNames[:], parts[2])
	if !lok || !cok || !dok {
		return Cell{}, errors.Errorf("invalid position %q", s)
	}
	return Cell{Level: Level(level), Column: Column(column), Depth: Depth(depth)}, nil
}

// ParseDepth parses a depth name.
func ParseDepth(s string) (Depth, error) {
	i, ok := indexOf(depthNames[:], strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return Near, errors.Errorf("invalid depth %q", s)
	}
	return Depth(i), nil
}

func indexOf(names []string, s string) (int, bool) {
	for i, n := range names {
		if n == s {
			return i, true
		}
	}
	return 0, false
}

// positions is indexed [level][column][depth]. X is depth, Y height, Z lateral.
var positions = [3][3][3]r3.Vector{
	Bottom: {
		Left:   {{X: 20, Y: 5, Z: -22}, {X: 30, Y: 5, Z: -22}, {X: 40, Y: 5, Z: -22}},
		Middle: {{X: 20, Y: 5, Z: 0}, {X: 30, Y: 5, Z: 0}, {X: 40, Y: 5, Z: 0}},
		Right:  {{X: 20, Y: 5, Z: 22}, {X: 30, Y: 5, Z: 22}, {X: 40, Y: 5, Z: 22}},
	},
	Center: {
		Left:   {{X: 20, Y: 34, Z: -22}, {X: 30, Y: 34, Z: -22}, {X: 40, Y: 34, Z: -22}},
		Middle: {{X: 20, Y: 34, Z: 0}, {X: 30, Y: 34, Z: 0}, {X: 40, Y: 34, Z: 0}},
		Right:  {{X: 20, Y: 34, Z: 22}, {X: 30, Y: 34, Z: 22}, {X: 40, Y: 34, Z: 22}},
	},
	Top: {
		Left:   {{X: 20, Y: 46, Z: -22}, {X: 30, Y: 46, Z: -22}, {X: 40, Y: 46, Z: -22}},
		Middle: {{X: 20, Y: 46, Z: 0}, {X: 30, Y: 46, Z: 0}, {X: 40, Y: 46, Z: 0}},
		Right:  {{X: 20, Y: 46, Z: 22}, {X: 30, Y: 46, Z: 22}, {X: 40, Y: 46, Z: 22}},
	},
}

// PositionFor returns the arm-local target for c.
func PositionFor(c Cell) (r3.Vector, error) {
	if !c.valid() {
		return r3.Vector{}, errors.Errorf("no position for cell %v", c)
	}
	return positions[c.Level][c.Column][c.Depth], nil
}

// AllCells returns every cell, bottom to top, left to right, near to far.
func AllCells() []Cell {
	cells := make([]Cell, 0, 27)
	for l := Bottom; l <= Top; l++ {
		for c := Left; c <= Right; c++ {
			for d := Near; d <= Far; d++ {
				cells = append(cells, Cell{Level: l, Column: c, Depth: d})
			}
		}
	}
	return cells
}

// KeypadCell maps a keypad digit to a cell at the given depth. The keypad is
// laid out like the scoring grid:
//
//	7 8 9   top
//	4 5 6   center
//	1 2 3   bottom
func KeypadCell(digit int, depth Depth) (Cell, bool) {
	if digit < 1 || digit > 9 {
		return Cell{}, false
	}
	k := digit - 1
	return Cell{Level: Level(k / 3), Column: Column(k % 3), Depth: depth}, true
}

// GoTowardPosition moves the arm to a named cell on the side approach branch. A
// zero timeout waits until the arm arrives.
func GoTowardPosition(a *Arm, c Cell, timeout time.Duration, clock activity.Clock) (*GoToward, error) {
	p, err := PositionFor(c)
	if err != nil {
		return nil, err
	}
	g := NewGoToward(a, p, kinematics.SideApproach)
	if timeout > 0 {
		g.WithTimeout(timeout, clock)
	}
	return g, nil
}

// KeypadSource provides the last digit pressed on the operator keypad, 0 when
// none.
type KeypadSource interface {
	Keypad() int
}

// KeypadPlacer issues a target for each new key press.
type KeypadPlacer struct {
	arm    *Arm
	source KeypadSource
	depth  Depth
	last   int
}

// NewKeypadPlacer targets cells at depth as keys arrive from source.
func NewKeypadPlacer(a *Arm, source KeypadSource, depth Depth) *KeypadPlacer {
	return &KeypadPlacer{arm: a, source: source, depth: depth}
}

// Update checks the keypad once. A held key is only acted on once.
func (k *KeypadPlacer) Update() {
	key := k.source.Keypad()
	if key == k.last {
		return
	}
	k.last = key
	cell, ok := KeypadCell(key, k.depth)
	if !ok {
		if key != 0 {
			k.arm.logger.Debugw("keypad digit out of range", "key", key)
		}
		return
	}
	p, _ := PositionFor(cell)
	k.arm.logger.Infow("keypad placement", "key", key, "cell", cell, "target", p)
	k.arm.SetIntendedPose(p, kinematics.SideApproach)
}
