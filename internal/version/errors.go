package version

import (
	"fmt"
	"strings"
)

// NotFoundError reports an unknown version id or a missing descriptor.
type NotFoundError struct {
	ID          string
	Path        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "version %q not found", e.ID)
	if e.Path != "" {
		fmt.Fprintf(&b, " (no descriptor at %s)", e.Path)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, "; did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

// MalformedDescriptorError reports required fields still absent after the
// whole inheritance chain was merged, or a descriptor that does not decode.
type MalformedDescriptorError struct {
	ID      string
	Missing []string
	Err     error
}

func (e *MalformedDescriptorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed descriptor %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("malformed descriptor %q: missing %s", e.ID, strings.Join(e.Missing, ", "))
}

func (e *MalformedDescriptorError) Unwrap() error {
	return e.Err
}

// CyclicInheritanceError reports an inheritsFrom chain that revisits a version.
type CyclicInheritanceError struct {
	Chain []string
}

func (e *CyclicInheritanceError) Error() string {
	return fmt.Sprintf("cyclic inheritance: %s", strings.Join(e.Chain, " -> "))
}
