// Package driver defines the pluggable registry backend trait of spec.md
// §4.6. It defines no error types; implementations report failures with
// pkg/vorpalerr kinds. It mirrors the shape of
// storagedriver.StorageDriver — a small, swappable key/value contract that
// every concrete backend (local disk, object storage, CI cache) satisfies
// identically — narrowed to the five operations the registry actually needs
// instead of StorageDriver's general filesystem-like surface.
package driver

import (
	"context"
	"io"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
)

// Backend is the registry's pluggable storage contract (spec.md §4.6).
// Archives are content-addressed and, per invariant I5, are written once
// and never overwritten: Push on a digest the backend already holds is a
// no-op success, not an error.
type Backend interface {
	// Check reports whether an archive for digest d already exists.
	Check(ctx context.Context, d digest.Digest) (bool, error)

	// Pull streams the archive bytes for d to w in backend-chosen chunk
	// sizes. Returns a NotFound-kind error (pkg/vorpalerr) if absent.
	Pull(ctx context.Context, d digest.Digest, w io.Writer) error

	// Push stores the reassembled archive body for d. Callers have
	// already verified the signature (internal/registry/service); Push
	// itself only persists bytes.
	Push(ctx context.Context, d digest.Digest, body io.Reader) error

	// GetArtifact loads and returns the artifact config stored under d.
	GetArtifact(ctx context.Context, d digest.Digest) (artifact.Artifact, error)

	// StoreArtifact canonically serializes a and persists it keyed by its
	// own digest, returning that digest.
	StoreArtifact(ctx context.Context, a artifact.Artifact) (digest.Digest, error)
}
