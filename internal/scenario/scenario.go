// Package scenario owns the runnable optical bench scenarios: canned call
// sequences over the optics packages that produce images, metrics and plots
// for one run. Each scenario is reproducible from a Config and a seed.
// Key types: Scenario, Result.
package scenario

import (
	"context"
	"fmt"
	"sort"

	"github.com/apertura-labs/apertura/internal/config"
)

// Result is the outcome of one scenario run. Metrics are scalar summary
// values; Artifacts are paths of files written under the output directory.
type Result struct {
	Scenario  string             `json:"scenario"`
	Metrics   map[string]float64 `json:"metrics"`
	Artifacts []string           `json:"artifacts,omitempty"`
}

// Scenario is a runnable measurement sequence.
type Scenario interface {
	// Name is the stable identifier used on the command line and in the
	// run store.
	Name() string
	// Describe returns a one-line human description.
	Describe() string
	// Run executes the scenario, writing plots into outputDir.
	Run(ctx context.Context, cfg *config.Config, outputDir string) (*Result, error)
}

var registry = map[string]Scenario{}

func register(s Scenario) {
	registry[s.Name()] = s
}

// Lookup returns the scenario with the given name.
func Lookup(name string) (Scenario, error) {
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (have: %v)", name, Names())
	}
	return s, nil
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered scenarios in name order.
func All() []Scenario {
	out := make([]Scenario, 0, len(registry))
	for _, name := range Names() {
		out = append(out, registry[name])
	}
	return out
}

// checkCtx returns the context error if the run was cancelled.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
