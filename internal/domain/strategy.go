package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidStrategy is returned when an execution or check strategy fails
// validation. All strategy validation failures wrap this error.
var ErrInvalidStrategy = errors.New("invalid strategy")

// StrategyType identifies how a task is performed or verified.
type StrategyType string

const (
	// StrategyManual means the user performs or verifies the task by hand.
	StrategyManual StrategyType = "manual"

	// StrategyScript means an external script performs or verifies the task.
	StrategyScript StrategyType = "script"
)

// Strategy is a tagged union describing either how a task is executed or how
// its completion is checked. For StrategyScript the script content and
// environment are carried along; for StrategyManual both stay empty.
// A goal holds one Strategy for execution and one for checking, and every
// task generated from the goal inherits them contextually.
type Strategy struct {
	Type          StrategyType      `json:"type"`
	ScriptContent string            `json:"script_content,omitempty"`
	EnvVars       map[string]string `json:"env_vars,omitempty"`
}

// ManualStrategy returns the no-automation strategy.
func ManualStrategy() Strategy {
	return Strategy{Type: StrategyManual}
}

// ScriptStrategy returns a strategy backed by the given script and
// environment variables.
func ScriptStrategy(scriptContent string, envVars map[string]string) Strategy {
	if envVars == nil {
		envVars = map[string]string{}
	}
	return Strategy{
		Type:          StrategyScript,
		ScriptContent: scriptContent,
		EnvVars:       envVars,
	}
}

// IsScripted reports whether the strategy runs an external script.
func (s Strategy) IsScripted() bool {
	return s.Type == StrategyScript
}

// Validate checks the structural invariants of a strategy.
func (s Strategy) Validate() error {
	switch s.Type {
	case StrategyManual:
		return nil
	case StrategyScript:
		if s.ScriptContent == "" {
			return fmt.Errorf("%w: script strategy requires script content", ErrInvalidStrategy)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown strategy type %q", ErrInvalidStrategy, s.Type)
	}
}
