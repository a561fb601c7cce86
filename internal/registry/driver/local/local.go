// Package local implements a driver.Backend backed by the local content-
// addressed store layout of spec.md §3 (pkg/store.Paths). Grounded on
// storagedriver/filesystem.Driver's subPath-under-root idiom, adapted from a
// general key/value path namespace to the fixed store/<digest>.{tar.zst,json}
// shapes this system always uses, and made write-once (invariant I5) via a
// temp-file-then-rename instead of filesystem's plain WriteFile/append.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/vorpal-build/vorpal/internal/registry/driver"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// Driver is a driver.Backend implementation rooted at a local directory.
type Driver struct {
	paths store.Paths
}

// New constructs a Driver rooted at root.
func New(root string) *Driver {
	return &Driver{paths: store.Paths{Root: root}}
}

var _ driver.Backend = (*Driver)(nil)

func (d *Driver) Check(_ context.Context, dg digest.Digest) (bool, error) {
	_, err := os.Stat(d.paths.Archive(dg))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, vorpalerr.New(vorpalerr.IO, "stat archive %s: %v", dg, err)
}

func (d *Driver) Pull(_ context.Context, dg digest.Digest, w io.Writer) error {
	f, err := os.Open(d.paths.Archive(dg))
	if err != nil {
		if os.IsNotExist(err) {
			return vorpalerr.New(vorpalerr.NotFound, "archive %s not found", dg)
		}
		return vorpalerr.New(vorpalerr.IO, "open archive %s: %v", dg, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return vorpalerr.New(vorpalerr.IO, "read archive %s: %v", dg, err)
	}
	return nil
}

func (d *Driver) Push(_ context.Context, dg digest.Digest, body io.Reader) error {
	target := d.paths.Archive(dg)
	if _, err := os.Stat(target); err == nil {
		// Invariant I5: archives are written once and never overwritten.
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return vorpalerr.New(vorpalerr.IO, "create store dir: %v", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".push-*")
	if err != nil {
		return vorpalerr.New(vorpalerr.IO, "create temp file: %v", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return vorpalerr.New(vorpalerr.IO, "write archive %s: %v", dg, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return vorpalerr.New(vorpalerr.IO, "close temp file: %v", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return vorpalerr.New(vorpalerr.IO, "rename into place: %v", err)
	}
	return nil
}

func (d *Driver) GetArtifact(_ context.Context, dg digest.Digest) (artifact.Artifact, error) {
	data, err := os.ReadFile(d.paths.Config(dg))
	if err != nil {
		if os.IsNotExist(err) {
			return artifact.Artifact{}, vorpalerr.New(vorpalerr.NotFound, "artifact %s not found", dg)
		}
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.IO, "read artifact %s: %v", dg, err)
	}
	recomputed := digest.FromBytes(data)
	if recomputed != dg {
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.CorruptArchive, "artifact %s: stored config digest mismatch (got %s)", dg, recomputed)
	}
	a, err := artifact.Parse(data)
	if err != nil {
		return artifact.Artifact{}, vorpalerr.New(vorpalerr.CorruptArchive, "artifact %s: %v", dg, err)
	}
	return a, nil
}

func (d *Driver) StoreArtifact(_ context.Context, a artifact.Artifact) (digest.Digest, error) {
	data, err := artifact.Canonicalize(a)
	if err != nil {
		return "", err
	}
	dg := digest.FromBytes(data)
	target := d.paths.Config(dg)
	if _, err := os.Stat(target); err == nil {
		return dg, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", vorpalerr.New(vorpalerr.IO, "create store dir: %v", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", vorpalerr.New(vorpalerr.IO, "write artifact config: %v", err)
	}
	return dg, nil
}
