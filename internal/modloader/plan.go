// Package modloader installs Forge and Fabric versions on top of an installed
// base version.
package modloader

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"mclaunch/internal/logx"
)

// StepKind classifies what a step touches.
type StepKind int

const (
	// StepFetch downloads metadata or artifacts.
	StepFetch StepKind = iota
	// StepResolve reads or writes descriptors without network or processes.
	StepResolve
	// StepInstall delegates to the installer pipeline.
	StepInstall
	// StepMaterialize runs an external program through a runner.Runner.
	StepMaterialize
)

func (k StepKind) String() string {
	switch k {
	case StepFetch:
		return "fetch"
	case StepResolve:
		return "resolve"
	case StepInstall:
		return "install"
	case StepMaterialize:
		return "materialize"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step is one named unit of a mod-loader installation.
type Step struct {
	Name string
	Kind StepKind
	Run  func(ctx context.Context) error
}

// StepObserver is told about each step just before it runs. n is 1-based.
type StepObserver func(n, total int, step Step)

// Plan is an ordered list of steps executed strictly in sequence.
type Plan struct {
	Loader   string
	Steps    []Step
	Observer StepObserver
}

// StepError identifies the step that failed.
type StepError struct {
	Loader string
	Step   string
	Kind   StepKind
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s step %q: %v", e.Loader, e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (p *Plan) add(name string, kind StepKind, run func(ctx context.Context) error) {
	p.Steps = append(p.Steps, Step{Name: name, Kind: kind, Run: run})
}

// Execute runs every step in order and stops at the first failure.
func (p *Plan) Execute(ctx context.Context, logger *log.Logger) error {
	logger = logx.OrDiscard(logger)
	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		logger.Info("step", "loader", p.Loader, "n", i+1, "of", len(p.Steps), "kind", step.Kind.String(), "name", step.Name)
		if p.Observer != nil {
			p.Observer(i+1, len(p.Steps), step)
		}
		if err := step.Run(ctx); err != nil {
			return &StepError{Loader: p.Loader, Step: step.Name, Kind: step.Kind, Err: err}
		}
		logger.Debug("step done", "name", step.Name, "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return nil
}
