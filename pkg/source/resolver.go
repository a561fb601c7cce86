// Package source implements the source resolver of spec.md §4.4: given an
// ArtifactSource and a per-artifact sandbox directory, it materializes the
// source's content (local copy, HTTP fetch, or a rejected git reference),
// normalizes timestamps, computes the source digest, and pushes the packed
// archive to the registry if the registry does not already hold it.
package source

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/vorpal-build/vorpal/pkg/archive"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// ArchiveClient is the subset of the registry's ArchiveService a resolver
// needs: existence check and chunked push. Satisfied by
// internal/rpcclient.ArchiveClient, kept narrow here so tests can supply an
// in-memory fake without standing up a gRPC server.
type ArchiveClient interface {
	CheckArchive(ctx context.Context, d digest.Digest) (bool, error)
	PushArchive(ctx context.Context, d digest.Digest, signature, data []byte) error
}

// Resolver materializes artifact sources into sandbox directories and
// uploads their packed archives to the registry.
type Resolver struct {
	Paths    store.Paths
	Keys     *keys.KeyStore
	Registry ArchiveClient
}

// NewResolver constructs a Resolver bound to the given store root, signing
// key, and registry client.
func NewResolver(paths store.Paths, ks *keys.KeyStore, registry ArchiveClient) *Resolver {
	return &Resolver{Paths: paths, Keys: ks, Registry: registry}
}

// Progress is emitted during Resolve so callers (e.g. the agent service)
// can forward free-form output lines per spec.md §4.7.
type Progress func(line string)

// Resolve implements spec.md §4.4 end to end: dispatch, materialize,
// normalize, digest, verify, and push-if-absent. It returns the source
// digest; src is not mutated.
func (r *Resolver) Resolve(ctx context.Context, src artifact.ArtifactSource, progress Progress) (digest.Digest, error) {
	if progress == nil {
		progress = func(string) {}
	}
	log := vlog.GetLogger(ctx).WithField("source", src.Name)

	sandboxID := uuid.NewString()
	sandboxDir := r.Paths.Sandbox(sandboxID)
	if err := os.MkdirAll(sandboxDir, 0o755); err != nil {
		return "", vorpalerr.New(vorpalerr.IO, "create sandbox: %v", err)
	}
	defer os.RemoveAll(sandboxDir)

	kind, err := classify(src.Path)
	if err != nil {
		return "", err
	}

	progress("download: " + src.Name)
	switch kind {
	case kindLocal:
		if err := materializeLocal(src, sandboxDir); err != nil {
			return "", err
		}
	case kindHTTP:
		if src.Digest == "" {
			return "", vorpalerr.New(vorpalerr.RemoteSourceDigestRequired, "source %q: remote sources require an expected digest", src.Name)
		}
		if err := materializeHTTP(ctx, src, sandboxDir); err != nil {
			return "", err
		}
	case kindGit:
		return "", vorpalerr.New(vorpalerr.UnsupportedSource, "source %q: git sources are reserved", src.Name)
	default:
		return "", vorpalerr.New(vorpalerr.UnknownSourceKind, "source %q: cannot classify path %q", src.Name, src.Path)
	}

	files, err := store.GetFilePaths(sandboxDir, src.Excludes, src.Includes)
	if err != nil {
		return "", err
	}
	if err := store.SetTimestamps(sandboxDir); err != nil {
		return "", err
	}

	sourceDigest, err := digestFiles(sandboxDir, files)
	if err != nil {
		return "", err
	}
	if src.Digest != "" && src.Digest != sourceDigest {
		return "", vorpalerr.New(vorpalerr.SourceDigestMismatch, "source %q: expected %s, computed %s", src.Name, src.Digest, sourceDigest)
	}

	if r.Registry != nil {
		exists, err := r.Registry.CheckArchive(ctx, sourceDigest)
		if err != nil {
			return "", err
		}
		if !exists {
			progress("pack: " + src.Name)
			var buf bytes.Buffer
			if err := archive.PackZstd(sandboxDir, files, &buf, archive.DefaultPackOptions()); err != nil {
				return "", err
			}
			sig, err := r.Keys.Sign(buf.Bytes())
			if err != nil {
				return "", err
			}
			progress("push: " + src.Name)
			if err := r.Registry.PushArchive(ctx, sourceDigest, sig, buf.Bytes()); err != nil {
				return "", err
			}
		}
	}

	log.WithField("digest", sourceDigest).Debug("resolved source")
	return sourceDigest, nil
}

type sourceKind int

const (
	kindUnknown sourceKind = iota
	kindLocal
	kindHTTP
	kindGit
)

func classify(path string) (sourceKind, error) {
	if isGitLike(path) {
		return kindGit, nil
	}
	if u, err := url.Parse(path); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return kindHTTP, nil
	}
	if _, err := os.Stat(path); err == nil {
		return kindLocal, nil
	}
	if strings.Contains(path, "://") {
		return kindUnknown, nil
	}
	return kindUnknown, nil
}

func isGitLike(path string) bool {
	if strings.HasPrefix(path, "git://") {
		return true
	}
	if strings.HasPrefix(path, "ssh://") && strings.HasSuffix(path, ".git") {
		return true
	}
	if strings.HasPrefix(path, "https://") && strings.HasSuffix(path, ".git") {
		return true
	}
	return false
}

func materializeLocal(src artifact.ArtifactSource, sandboxDir string) error {
	info, err := os.Stat(src.Path)
	if err != nil {
		return vorpalerr.New(vorpalerr.IO, "stat source %q: %v", src.Name, err)
	}
	if !info.IsDir() {
		name := src.Name
		if name == "" {
			name = filepath.Base(src.Path)
		}
		return copyFileInto(src.Path, filepath.Join(sandboxDir, name))
	}
	files, err := store.GetFilePaths(src.Path, src.Excludes, src.Includes)
	if err != nil {
		return err
	}
	return store.CopyFiles(src.Path, files, sandboxDir)
}

func copyFileInto(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return vorpalerr.New(vorpalerr.IO, "open %q: %v", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return vorpalerr.New(vorpalerr.IO, "create %q: %v", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return vorpalerr.New(vorpalerr.IO, "copy %q: %v", src, err)
	}
	return nil
}

// digestFiles computes spec.md §4.4 step 3: per-file SHA-256 digests,
// concatenated in sorted order and re-digested.
func digestFiles(root string, files []string) (digest.Digest, error) {
	digests := make([]digest.Digest, 0, len(files))
	for _, rel := range files {
		d, err := digestFile(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		digests = append(digests, d)
	}
	sort.Slice(digests, func(i, j int) bool { return digests[i] < digests[j] })
	return digest.FromDigests(digests), nil
}

func digestFile(path string) (digest.Digest, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", vorpalerr.New(vorpalerr.IO, "stat %q: %v", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return "", vorpalerr.New(vorpalerr.IO, "readlink %q: %v", path, err)
		}
		return digest.FromBytes([]byte(target)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", vorpalerr.New(vorpalerr.IO, "open %q: %v", path, err)
	}
	defer f.Close()
	return digest.FromReader(f)
}
