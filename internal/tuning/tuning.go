// Package tuning loads simulation tuning from tuning.yaml.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TicksPerSecond int `yaml:"ticks_per_second"`

	// MaxTickFactor bounds how long the scheduler waits for actor
	// quiescence, as a multiple of the tick interval.
	MaxTickFactor int `yaml:"max_tick_factor"`

	// RPC timeouts and script execution budget, milliseconds.
	CallTimeoutMs   int `yaml:"call_timeout_ms"`
	ScriptBudgetMs  int `yaml:"script_budget_ms"`
	MailboxCapacity int `yaml:"mailbox_capacity"`

	UndoCapacity      int `yaml:"undo_capacity"`
	AnimationCapacity int `yaml:"animation_capacity"`
}

func Defaults() Tuning {
	return Tuning{
		TicksPerSecond:    60,
		MaxTickFactor:     5,
		CallTimeoutMs:     50,
		ScriptBudgetMs:    10,
		MailboxCapacity:   64,
		UndoCapacity:      256,
		AnimationCapacity: 32,
	}
}

// Load reads path, falling back to defaults when the file is absent.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if t.TicksPerSecond <= 0 {
		return t, fmt.Errorf("tuning.yaml: ticks_per_second must be positive")
	}
	if t.MaxTickFactor <= 0 {
		t.MaxTickFactor = Defaults().MaxTickFactor
	}
	return t, nil
}
