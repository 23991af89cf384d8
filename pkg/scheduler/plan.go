package scheduler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-groove/pkg/choreo"
)

// SectionPlan is one named block of an offline routine: a move pattern
// repeated to a count, executed at an intensity in (0, 1].
type SectionPlan struct {
	Name      string   `yaml:"name"`
	Pattern   []string `yaml:"pattern"`
	Count     int      `yaml:"count"`
	Intensity float64  `yaml:"intensity"`
}

// Moves expands the section's pattern to its move-name sequence.
func (s SectionPlan) Moves() []string {
	return choreo.BuildSequence(s.Pattern, s.Count)
}

// SequencePlan describes a whole routine. Exactly one of the two shapes
// is used per run: Sections for a four-part offline routine, Pattern for
// cyclic beat-driven dispatch. Read-only once constructed.
type SequencePlan struct {
	// Sections is the four-part offline routine.
	Sections []SectionPlan `yaml:"sections,omitempty"`

	// Pattern is the cyclic move list for beat-driven dispatch.
	Pattern []string `yaml:"pattern,omitempty"`

	// BeatsPerMove is the beat stride between dispatched moves.
	BeatsPerMove int `yaml:"beats_per_move,omitempty"`
}

// Validate checks the plan against a move catalog.
func (p *SequencePlan) Validate(catalog *choreo.Catalog) error {
	check := func(names []string) error {
		for _, name := range names {
			if _, ok := catalog.Get(name); !ok {
				return fmt.Errorf("%w: %q", ErrUnknownMove, name)
			}
		}
		return nil
	}
	for _, sec := range p.Sections {
		if len(sec.Pattern) == 0 {
			return fmt.Errorf("scheduler: section %q has an empty pattern", sec.Name)
		}
		if sec.Intensity <= 0 || sec.Intensity > 1 {
			return fmt.Errorf("scheduler: section %q intensity %.2f outside (0, 1]", sec.Name, sec.Intensity)
		}
		if err := check(sec.Pattern); err != nil {
			return err
		}
	}
	return check(p.Pattern)
}

// LoadPlan reads a YAML routine file.
func LoadPlan(path string) (*SequencePlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scheduler: read plan %s: %w", path, err)
	}
	var plan SequencePlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("scheduler: parse plan %s: %w", path, err)
	}
	return &plan, nil
}

// basePattern and bouncePattern mirror the built-in routine's move
// blocks.
var (
	basePattern = []string{
		"head_bob", "side_sway", "twist", "look_and_twist",
	}
	bouncePattern = []string{"bounce", "body_wave"}
)

// DefaultOfflinePlan is the built-in four-part routine: warmup at half
// intensity through a full-intensity finale.
func DefaultOfflinePlan() *SequencePlan {
	return &SequencePlan{
		Sections: []SectionPlan{
			{Name: "warmup", Pattern: basePattern, Count: 10, Intensity: 0.5},
			{Name: "verse", Pattern: append(append([]string{}, basePattern...), bouncePattern...), Count: 15, Intensity: 0.7},
			{Name: "chorus", Pattern: append(append([]string{}, bouncePattern...), basePattern...), Count: 15, Intensity: 0.9},
			{Name: "finale", Pattern: append(append([]string{}, basePattern...), bouncePattern...), Count: 10, Intensity: 1.0},
		},
	}
}

// DefaultLivePlan is the built-in cyclic plan for beat-driven dispatch.
func DefaultLivePlan(beatsPerMove int) *SequencePlan {
	return &SequencePlan{
		Pattern:      append([]string{}, choreo.DefaultSequence...),
		BeatsPerMove: beatsPerMove,
	}
}
