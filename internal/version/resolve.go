package version

import (
	"errors"
	"fmt"
	"os"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultMaxDepth bounds inheritance chains independently of cycle detection.
const DefaultMaxDepth = 16

// Source loads raw descriptor bytes by version id. Implementations return a
// *NotFoundError when no descriptor exists.
type Source interface {
	Load(id string) ([]byte, error)
}

// FileSource reads descriptors from the path returned by Path.
type FileSource struct {
	Path func(id string) string
}

// Load implements Source.
func (s FileSource) Load(id string) ([]byte, error) {
	p := s.Path(id)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{ID: id, Path: p}
		}
		return nil, fmt.Errorf("read descriptor %s: %w", p, err)
	}
	return data, nil
}

// Resolver turns a version id into a fully merged Version.
type Resolver struct {
	Source   Source
	MaxDepth int
}

// NewResolver returns a resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{Source: src, MaxDepth: DefaultMaxDepth}
}

// Resolve loads id, recursively merges its inheritsFrom chain and checks that
// every required field was provided by some descriptor in the chain.
func (r *Resolver) Resolve(id string) (*Version, error) {
	merged, chain, err := r.resolve(id, nil)
	if err != nil {
		return nil, err
	}
	return finalize(id, merged, chain)
}

func (r *Resolver) resolve(id string, visited []string) (*Descriptor, []string, error) {
	if slices.Contains(visited, id) {
		return nil, nil, &CyclicInheritanceError{Chain: append(slices.Clone(visited), id)}
	}
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if len(visited) >= maxDepth {
		return nil, nil, &CyclicInheritanceError{Chain: append(slices.Clone(visited), id)}
	}
	visited = append(visited, id)

	data, err := r.Source.Load(id)
	if err != nil {
		return nil, nil, err
	}
	self, err := ParseDescriptor(data)
	if err != nil {
		return nil, nil, &MalformedDescriptorError{ID: id, Err: err}
	}
	if self.ID == "" {
		self.ID = id
	}

	if self.InheritsFrom == "" {
		return self, []string{id}, nil
	}
	parent, chain, err := r.resolve(self.InheritsFrom, visited)
	if err != nil {
		return nil, nil, err
	}
	return Merge(self, parent), append([]string{id}, chain...), nil
}

// Merge combines a child descriptor with its already-merged parent. Scalars
// come from the child when declared, else the parent. Modern argument lists
// concatenate child first; a legacy child argument string replaces the
// parent's. Libraries and natives merge by key with child entries replacing
// parent entries in place and new entries appended.
func Merge(self, parent *Descriptor) *Descriptor {
	out := &Descriptor{
		ID:            self.ID,
		Type:          firstNonEmpty(self.Type, parent.Type),
		AssetIndex:    firstNonEmpty(self.AssetIndex, parent.AssetIndex),
		AssetIndexURL: firstNonEmpty(self.AssetIndexURL, parent.AssetIndexURL),
		ClientURL:     firstNonEmpty(self.ClientURL, parent.ClientURL),
		ServerURL:     firstNonEmpty(self.ServerURL, parent.ServerURL),
		JavaComponent: firstNonEmpty(self.JavaComponent, parent.JavaComponent),
		MainClass:     firstNonEmpty(self.MainClass, parent.MainClass),
	}

	if self.JVMArgs != nil || parent.JVMArgs != nil {
		out.JVMArgs = concatArgs(self.JVMArgs, parent.JVMArgs)
	}

	switch {
	case self.LegacyArgs && parent.LegacyArgs:
		out.GameArgs = slices.Clone(self.GameArgs)
		out.LegacyArgs = true
	case self.GameArgs != nil || parent.GameArgs != nil:
		out.GameArgs = concatArgs(self.GameArgs, parent.GameArgs)
		out.LegacyArgs = self.LegacyArgs || (self.GameArgs == nil && parent.LegacyArgs)
	}

	if self.Libraries != nil || parent.Libraries != nil {
		out.Libraries = mergeByKey(parent.Libraries, self.Libraries, func(l Library) string { return l.Name })
	}
	if self.Natives != nil || parent.Natives != nil {
		out.Natives = mergeByKey(parent.Natives, self.Natives, Native.Key)
	}
	return out
}

func concatArgs(first, second []Argument) []Argument {
	out := make([]Argument, 0, len(first)+len(second))
	out = append(out, first...)
	return append(out, second...)
}

func mergeByKey[T any](base, override []T, key func(T) string) []T {
	set := orderedmap.New[string, T]()
	for _, item := range base {
		set.Set(key(item), item)
	}
	for _, item := range override {
		set.Set(key(item), item)
	}
	out := make([]T, 0, set.Len())
	for pair := set.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func finalize(id string, d *Descriptor, chain []string) (*Version, error) {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("assetIndex.id", d.AssetIndex)
	check("assetIndex.url", d.AssetIndexURL)
	check("downloads.client.url", d.ClientURL)
	check("javaVersion.component", d.JavaComponent)
	check("mainClass", d.MainClass)
	if d.Libraries == nil {
		missing = append(missing, "libraries")
	}
	if len(missing) > 0 {
		return nil, &MalformedDescriptorError{ID: id, Missing: missing}
	}

	natives := d.Natives
	if natives == nil {
		natives = []Native{}
	}
	return &Version{
		ID:            id,
		Type:          d.Type,
		Chain:         chain,
		AssetIndex:    d.AssetIndex,
		AssetIndexURL: d.AssetIndexURL,
		ClientURL:     d.ClientURL,
		ServerURL:     d.ServerURL,
		JavaComponent: d.JavaComponent,
		MainClass:     d.MainClass,
		JVMArgs:       d.JVMArgs,
		GameArgs:      d.GameArgs,
		Libraries:     d.Libraries,
		Natives:       natives,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
