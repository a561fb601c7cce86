package artifact

import (
	"encoding/json"
	"fmt"

	"github.com/vorpal-build/vorpal/pkg/digest"
)

// canonical mirrors Artifact field-for-field but with Systems replaced by
// its sorted form, so that Canonicalize's output only ever depends on
// content, never on the order the caller declared Systems in (spec.md
// §4.5).
type canonical struct {
	Name    string           `json:"name"`
	Sources []ArtifactSource `json:"sources,omitempty"`
	Steps   []ArtifactStep   `json:"steps,omitempty"`
	Systems []System         `json:"systems"`
	Target  System           `json:"target"`
}

// Canonicalize returns the canonical JSON serialization of a, per spec.md
// §4.5: fixed field order (struct declaration order, which encoding/json
// preserves), arrays in user-declared order except Systems (sorted into
// the fixed canonical order), and secrets excluded (ArtifactStep.Secrets
// carries `json:"-"`).
//
// Every ArtifactSource.Digest must already be populated — Canonicalize
// does not resolve sources itself; that is pkg/source's job, invoked
// before this is ever called (spec.md §4.5's precondition).
func Canonicalize(a Artifact) ([]byte, error) {
	for _, s := range a.Sources {
		if s.Digest == "" {
			return nil, fmt.Errorf("artifact: source %q has no resolved digest", s.Name)
		}
	}
	c := canonical{
		Name:    a.Name,
		Sources: a.Sources,
		Steps:   a.Steps,
		Systems: a.SortedSystems(),
		Target:  a.Target,
	}
	return json.Marshal(c)
}

// Digest computes the artifact's content digest: the SHA-256 of its
// canonical serialization (spec.md §4.5). Two artifacts with identical
// canonical serialization are the same artifact (spec.md §3) — this
// digest is the artifact's identity and, by invariant I4, a Merkle root
// over its entire transitive input (every source and dependency digest is
// embedded in the bytes being hashed).
func Digest(a Artifact) (digest.Digest, error) {
	b, err := Canonicalize(a)
	if err != nil {
		return "", err
	}
	return digest.FromBytes(b), nil
}

// Parse deserializes a canonical JSON artifact config, as produced by
// Canonicalize, back into an Artifact. Secrets are never present in a
// stored config (spec.md §4.5) and so come back empty.
func Parse(data []byte) (Artifact, error) {
	var c canonical
	if err := json.Unmarshal(data, &c); err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Name:    c.Name,
		Sources: c.Sources,
		Steps:   c.Steps,
		Systems: c.Systems,
		Target:  c.Target,
	}, nil
}
