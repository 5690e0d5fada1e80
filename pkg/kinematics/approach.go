package kinematics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Approach selects the inverse kinematics elbow branch.
//
// SideApproach keeps the elbow above the line from the shoulder to the target, so
// the claw comes at a game piece from the side. TopApproach mirrors the elbow below
// that line and the claw comes down from above.
type Approach int

const (
	SideApproach Approach = iota
	TopApproach
)

func (a Approach) String() string {
	switch a {
	case SideApproach:
		return "SIDE_APPROACH"
	case TopApproach:
		return "TOP_APPROACH"
	default:
		return fmt.Sprintf("Approach(%d)", int(a))
	}
}

// Flipped reports whether this is the flipped (top approach) elbow branch.
func (a Approach) Flipped() bool {
	return a == TopApproach
}

// ApproachFromFlipped converts a flipped flag into an Approach.
func ApproachFromFlipped(flipped bool) Approach {
	if flipped {
		return TopApproach
	}
	return SideApproach
}

// ParseApproach converts a name into an Approach.
func ParseApproach(value string) (Approach, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "SIDE_APPROACH", "SIDE":
		return SideApproach, nil
	case "TOP_APPROACH", "TOP":
		return TopApproach, nil
	default:
		return SideApproach, fmt.Errorf("unknown approach %q", value)
	}
}

// MarshalJSON writes the approach as its name.
func (a Approach) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts approach names.
func (a *Approach) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseApproach(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
