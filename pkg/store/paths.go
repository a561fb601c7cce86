// Package store implements the on-disk content-addressed layout of
// spec.md §3 and the pure path/file helpers of §4.2: computing store paths
// from a digest, enumerating a directory deterministically, copying a file
// set into a sandbox, and normalizing timestamps.
package store

import (
	"path/filepath"

	"github.com/vorpal-build/vorpal/pkg/digest"
)

// Paths computes the on-disk layout rooted at Root, mirroring
// storagedriver/filesystem's subPath-under-root idiom but fixed to the
// specific file shapes spec.md §3 names rather than an arbitrary key/value
// namespace.
type Paths struct {
	Root string
}

// OutputDir is "…/store/<digest>/", the unpacked output tree.
func (p Paths) OutputDir(d digest.Digest) string {
	return filepath.Join(p.Root, "store", d.String())
}

// Archive is "…/store/<digest>.tar.zst".
func (p Paths) Archive(d digest.Digest) string {
	return filepath.Join(p.Root, "store", d.String()+".tar.zst")
}

// Config is "…/store/<digest>.json", the canonical serialized artifact.
func (p Paths) Config(d digest.Digest) string {
	return filepath.Join(p.Root, "store", d.String()+".json")
}

// Lock is "…/store/<digest>.lock", the advisory lock held during a build
// (invariant I6).
func (p Paths) Lock(d digest.Digest) string {
	return filepath.Join(p.Root, "store", d.String()+".lock")
}

// PrivateKey is "…/key/private.pem".
func (p Paths) PrivateKey() string {
	return filepath.Join(p.Root, "key", "private.pem")
}

// PublicKey is "…/key/public.pem".
func (p Paths) PublicKey() string {
	return filepath.Join(p.Root, "key", "public.pem")
}

// Sandbox is "…/sandbox/<uuid>/", an ephemeral build workspace.
func (p Paths) Sandbox(uuid string) string {
	return filepath.Join(p.Root, "sandbox", uuid)
}

// StoreDir is the "…/store/" directory itself.
func (p Paths) StoreDir() string {
	return filepath.Join(p.Root, "store")
}

// SandboxDir is the "…/sandbox/" directory itself.
func (p Paths) SandboxDir() string {
	return filepath.Join(p.Root, "sandbox")
}
