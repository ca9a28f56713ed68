package input

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan is the scripted interaction: press the jump key at a fixed cadence
// while continuously holding a directional key, flipping the held direction
// every FlipEvery presses. The plan is configuration; early exit on a
// blocking error and key release on exit are not.
type Plan struct {
	JumpKey    string        `yaml:"jump_key"`
	HoldKeys   []string      `yaml:"hold_keys"`
	PressEvery time.Duration `yaml:"press_every"`
	FlipEvery  int           `yaml:"flip_every"`
	Window     time.Duration `yaml:"window"`
}

// DefaultPlan is six seconds of jumping every 400ms while steering, enough
// to cover the interactive surface of a typical generated game.
func DefaultPlan() Plan {
	return Plan{
		JumpKey:    "Space",
		HoldKeys:   []string{"ArrowRight", "ArrowLeft"},
		PressEvery: 400 * time.Millisecond,
		FlipEvery:  4,
		Window:     6 * time.Second,
	}
}

// UnmarshalYAML overrides only the fields present in the document, so a
// partial plan file keeps the defaults for everything else. Durations are
// written in Go syntax ("400ms", "6s").
func (p *Plan) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		JumpKey    string   `yaml:"jump_key"`
		HoldKeys   []string `yaml:"hold_keys"`
		PressEvery string   `yaml:"press_every"`
		FlipEvery  *int     `yaml:"flip_every"`
		Window     string   `yaml:"window"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.JumpKey != "" {
		p.JumpKey = raw.JumpKey
	}
	if len(raw.HoldKeys) > 0 {
		p.HoldKeys = raw.HoldKeys
	}
	if raw.PressEvery != "" {
		d, err := time.ParseDuration(raw.PressEvery)
		if err != nil {
			return fmt.Errorf("press_every: %w", err)
		}
		p.PressEvery = d
	}
	if raw.FlipEvery != nil {
		p.FlipEvery = *raw.FlipEvery
	}
	if raw.Window != "" {
		d, err := time.ParseDuration(raw.Window)
		if err != nil {
			return fmt.Errorf("window: %w", err)
		}
		p.Window = d
	}
	return nil
}

// LoadPlan reads a plan from a YAML file, filling gaps from the defaults.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	p := DefaultPlan()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate rejects plans the loop cannot schedule.
func (p Plan) Validate() error {
	if p.JumpKey == "" {
		return fmt.Errorf("plan: jump key required")
	}
	if len(p.HoldKeys) == 0 {
		return fmt.Errorf("plan: at least one hold key required")
	}
	if p.PressEvery <= 0 {
		return fmt.Errorf("plan: press cadence must be positive")
	}
	if p.FlipEvery <= 0 {
		return fmt.Errorf("plan: flip interval must be positive")
	}
	if p.Window <= 0 {
		return fmt.Errorf("plan: window must be positive")
	}
	return nil
}
