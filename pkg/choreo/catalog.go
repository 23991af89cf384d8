package choreo

import (
	"sort"

	"github.com/teslashibe/go-groove/pkg/actuator"
)

// Catalog is a read-only registry of named dance moves.
type Catalog struct {
	moves map[string]Move
}

// Get looks up a move by name.
func (c *Catalog) Get(name string) (Move, bool) {
	m, ok := c.moves[name]
	return m, ok
}

// Names returns all move names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.moves))
	for name := range c.moves {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildSequence repeats pattern end-to-end and truncates to exactly count
// entries. Deterministic; count need not be a multiple of len(pattern).
func BuildSequence(pattern []string, count int) []string {
	if count <= 0 || len(pattern) == 0 {
		return nil
	}
	seq := make([]string, 0, count)
	for len(seq) < count {
		seq = append(seq, pattern...)
	}
	return seq[:count]
}

// DefaultSequence is the cyclic move order for beat-driven dancing.
var DefaultSequence = []string{
	"head_bob",
	"side_sway",
	"twist",
	"bounce",
	"look_and_twist",
	"body_wave",
}

func speed(name string, p actuator.Primitive, s float64) Step {
	return SpeedStep{StepName: name, Primitive: p, Speed: s}
}

func pose(name string, lean, twist, look, extend float64) Step {
	return PoseStep{StepName: name, Target: actuator.PoseTarget{
		Lean: lean, Twist: twist, Look: look, Extend: extend,
	}}
}

// DefaultCatalog returns the built-in move set.
func DefaultCatalog() *Catalog {
	return &Catalog{moves: map[string]Move{
		"head_bob": {
			Name:        "head_bob",
			Description: "Simple down/up head bob.",
			Steps: []Step{
				speed("look_down", actuator.LookDown, 0.6),
				speed("look_up", actuator.LookUp, 0.6),
			},
		},
		"side_sway": {
			Name:        "side_sway",
			Description: "Lean left, then right.",
			Steps: []Step{
				speed("lean_left", actuator.LeanLeft, 0.5),
				speed("lean_right", actuator.LeanRight, 0.5),
			},
		},
		"twist": {
			Name:        "twist",
			Description: "Twist left, then right.",
			Steps: []Step{
				speed("twist_left", actuator.TwistLeft, 0.5),
				speed("twist_right", actuator.TwistRight, 0.5),
			},
		},
		"bounce": {
			Name:        "bounce",
			Description: "Extend up, then squat down.",
			Steps: []Step{
				speed("extend_up", actuator.ExtendUp, 0.5),
				speed("squat_down", actuator.SquatDown, 0.5),
			},
		},
		"look_and_twist": {
			Name:        "look_and_twist",
			Description: "Mix head tilt and torso twist.",
			Steps: []Step{
				speed("look_down", actuator.LookDown, 0.5),
				speed("twist_left", actuator.TwistLeft, 0.4),
				speed("look_up", actuator.LookUp, 0.5),
				speed("twist_right", actuator.TwistRight, 0.4),
			},
		},
		"body_wave": {
			Name:        "body_wave",
			Description: "Alternating lean/twist/look/extend poses.",
			Steps: []Step{
				pose("pose_left_down", -0.3, -0.2, 0.2, 0.2),
				pose("pose_right_up", 0.3, 0.2, -0.2, 0.2),
				pose("pose_left_up", -0.3, -0.2, -0.2, 0.2),
				pose("pose_right_down", 0.3, 0.2, 0.2, 0.2),
			},
		},
		"pause": {
			Name:        "pause",
			Description: "Hold still for a beat.",
			Steps:       []Step{WaitStep{StepName: "wait"}},
		},
		"turn_left": {
			Name:        "turn_left",
			Description: "Turn left in place.",
			Steps: []Step{
				TurnStep{StepName: "turn_left", Direction: Left, Speed: 0.4},
			},
		},
		"turn_right": {
			Name:        "turn_right",
			Description: "Turn right in place.",
			Steps: []Step{
				TurnStep{StepName: "turn_right", Direction: Right, Speed: 0.4},
			},
		},
		"turn_left_right": {
			Name:        "turn_left_right",
			Description: "Turn left, then right to return to heading.",
			Steps: []Step{
				TurnStep{StepName: "turn_left", Direction: Left, Speed: 0.4},
				TurnStep{StepName: "turn_right", Direction: Right, Speed: 0.4},
			},
		},
	}}
}
