// Package artifact defines the core data model of spec.md §3: Artifact,
// ArtifactSource, ArtifactStep, and system targets, plus the canonical
// serialization and digesting of §4.5.
//
// The canonical-JSON-then-SHA-256 shape follows the same "config is a
// canonically serialized record, digest is its hash" idea as distribution's
// manifest package (manifest/schema2/manifest.go), narrowed to the single
// fixed schema spec.md defines rather than a versioned/pluggable manifest
// format.
package artifact

import "github.com/vorpal-build/vorpal/pkg/digest"

// System is one of the closed set of target tuples spec.md §3 names.
type System string

const (
	AArch64Darwin System = "aarch64-darwin"
	AArch64Linux  System = "aarch64-linux"
	X8664Darwin   System = "x86_64-darwin"
	X8664Linux    System = "x86_64-linux"
)

// systemOrder fixes the canonical sort order used when serializing a
// Systems set, per SPEC_FULL.md's artifact-digester expansion.
var systemOrder = map[System]int{
	AArch64Darwin: 0,
	AArch64Linux:  1,
	X8664Darwin:   2,
	X8664Linux:    3,
}

// ArtifactSource is a declared input (spec.md §3).
type ArtifactSource struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Includes []string `json:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty"`

	// Digest is the expected digest, if the caller supplied one, and is
	// overwritten with the computed digest once the agent resolves the
	// source (spec.md §4.4/§4.7). Empty until resolution.
	Digest digest.Digest `json:"digest,omitempty"`
}

// Secret is a name-value pair passed to a step's environment, never
// digested, never persisted (spec.md §3, §4.5, §9).
type Secret struct {
	Name  string `json:"-"`
	Value string `json:"-"`
}

// ArtifactStep is a single execution action (spec.md §3).
type ArtifactStep struct {
	Entrypoint string            `json:"entrypoint,omitempty"`
	Arguments  []string          `json:"arguments,omitempty"`
	Environments []string        `json:"environments,omitempty"` // "KEY=VALUE"
	Dependencies []digest.Digest `json:"dependencies,omitempty"`
	Script     string            `json:"script,omitempty"`

	// Secrets are excluded from canonical serialization (SPEC_FULL.md,
	// spec.md §4.5); kept on the in-memory step only.
	Secrets []Secret `json:"-"`
}

// Artifact is an immutable, digest-named build unit (spec.md §3).
type Artifact struct {
	Name    string           `json:"name"`
	Sources []ArtifactSource `json:"sources,omitempty"`
	Steps   []ArtifactStep   `json:"steps,omitempty"`
	Systems []System         `json:"systems"`
	Target  System           `json:"target"`
}

// SortedSystems returns a.Systems in the fixed canonical order (spec.md
// §4.5: "system targets are normalized by sorting into a fixed canonical
// order").
func (a Artifact) SortedSystems() []System {
	out := append([]System(nil), a.Systems...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && systemOrder[out[j-1]] > systemOrder[out[j]]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Supports reports whether the artifact declares support for s.
func (a Artifact) Supports(s System) bool {
	for _, sys := range a.Systems {
		if sys == s {
			return true
		}
	}
	return false
}

// DependencyDigests returns the de-duplicated union of every dependency
// digest named across all of the artifact's steps, the set the scheduler
// walks (spec.md §4.9) and the worker must find already materialized
// (spec.md §4.8).
func (a Artifact) DependencyDigests() []digest.Digest {
	seen := make(map[digest.Digest]bool)
	var out []digest.Digest
	for _, step := range a.Steps {
		for _, d := range step.Dependencies {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
