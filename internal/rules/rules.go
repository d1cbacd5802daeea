// Package rules evaluates the conditional predicates that gate libraries,
// natives and arguments on a platform context.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"mclaunch/internal/platform"
)

// Action is the polarity of a rule.
type Action string

const (
	Allow    Action = "allow"
	Disallow Action = "disallow"
)

// ArchMode selects which rule field an architecture constraint is compared with.
type ArchMode string

const (
	// ArchCompareArch compares the rule's arch field with the context arch.
	ArchCompareArch ArchMode = "arch"
	// ArchCompareOS reproduces older launchers that compared the context arch
	// with the rule's os field.
	ArchCompareOS ArchMode = "os"
)

// Rule is an immutable conditional predicate.
type Rule struct {
	Action   Action
	OS       string
	Arch     string
	Version  string
	Features []string
}

// Empty reports whether the rule carries no condition besides its action.
func (r Rule) Empty() bool {
	return r.OS == "" && r.Arch == "" && r.Version == "" && len(r.Features) == 0
}

type rawRule struct {
	Action string `json:"action"`
	OS     *struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Arch    string `json:"arch"`
	} `json:"os"`
	Features map[string]bool `json:"features"`
}

// UnmarshalJSON decodes the descriptor rule shape
// {"action": ..., "os": {"name", "version", "arch"}, "features": {...}}.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch Action(raw.Action) {
	case Allow, Disallow:
		r.Action = Action(raw.Action)
	default:
		return fmt.Errorf("unknown rule action %q", raw.Action)
	}
	r.OS, r.Arch, r.Version = "", "", ""
	if raw.OS != nil {
		r.OS = platform.NormalizeOS(raw.OS.Name)
		r.Arch = raw.OS.Arch
		r.Version = raw.OS.Version
	}
	r.Features = nil
	for name := range raw.Features {
		r.Features = append(r.Features, name)
	}
	sort.Strings(r.Features)
	return nil
}

// Evaluator evaluates rule lists against a fixed context.
type Evaluator struct {
	Platform platform.Context
	ArchMode ArchMode
}

// NewEvaluator returns an evaluator for ctx. An empty mode selects ArchCompareArch.
func NewEvaluator(ctx platform.Context, mode ArchMode) Evaluator {
	if mode == "" {
		mode = ArchCompareArch
	}
	return Evaluator{Platform: ctx, ArchMode: mode}
}

// Allows reports whether rules permit inclusion on the evaluator's platform.
func (e Evaluator) Allows(rules []Rule) bool {
	return Evaluate(rules, e.Platform, e.ArchMode)
}

// Evaluate walks rules in order and reports whether they permit inclusion.
//
// An allow rule naming a different OS or arch rejects. Any rule requiring
// features rejects, since no features are ever negotiated. A rule with an OS
// version constraint accepts immediately. An empty disallow rule rejects.
// Everything else falls through to acceptance.
func Evaluate(rules []Rule, ctx platform.Context, mode ArchMode) bool {
	for _, rule := range rules {
		allow := rule.Action != Disallow

		if rule.Empty() {
			if !allow {
				return false
			}
			continue
		}
		if rule.OS != "" && rule.OS != ctx.OS && allow {
			return false
		}
		if rule.Arch != "" && allow {
			compare := rule.Arch
			if mode == ArchCompareOS {
				compare = rule.OS
			}
			if compare != ctx.Arch {
				return false
			}
		}
		if len(rule.Features) > 0 {
			return false
		}
		// Version constraints have no comparator yet and are treated as satisfied.
		if rule.Version != "" {
			return true
		}
	}
	return true
}
