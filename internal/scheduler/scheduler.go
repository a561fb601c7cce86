// Package scheduler implements the build scheduler of spec.md §4.9: given a
// root artifact digest, walk its transitive dependency closure, topologically
// order it, and for each node either accept a local cache hit, pull it from
// the registry, or dispatch it to the worker.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/vorpal-build/vorpal/pkg/archive"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
)

// ArtifactClient resolves an artifact config by digest, used to pull the
// transitive closure starting from the root (spec.md §4.9's "pulled from
// the registry as needed").
type ArtifactClient interface {
	GetArtifact(ctx context.Context, d digest.Digest) (artifact.Artifact, error)
}

// ArchiveClient is the subset needed to test for and fetch an already-built
// output archive.
type ArchiveClient interface {
	CheckArchive(ctx context.Context, d digest.Digest) (bool, error)
	PullArchive(ctx context.Context, d digest.Digest) ([]byte, error)
}

// Worker runs one node's build, forwarding log lines to onLog.
type Worker interface {
	Build(ctx context.Context, art artifact.Artifact, onLog func(line string)) error
}

// Event is one scheduler progress notification (spec.md §4.9 step 3).
type Event struct {
	Digest digest.Digest
	Kind   string // "cached", "pulled", "building", "log"
	Line   string
}

// Scheduler drives a build across the dependency DAG.
type Scheduler struct {
	Paths     store.Paths
	Artifacts ArtifactClient
	Archives  ArchiveClient
	Worker    Worker
}

// New constructs a Scheduler.
func New(paths store.Paths, artifacts ArtifactClient, archives ArchiveClient, worker Worker) *Scheduler {
	return &Scheduler{Paths: paths, Artifacts: artifacts, Archives: archives, Worker: worker}
}

// Run builds root and every dependency it transitively requires, emitting
// one Event per notable step. It stops at the first node that fails to
// build (spec.md §4.9 step 3c): no further nodes are attempted.
func (s *Scheduler) Run(ctx context.Context, root digest.Digest, emit func(Event)) error {
	configs, edges, err := s.closure(ctx, root)
	if err != nil {
		return err
	}

	order, err := topoSort(edges)
	if err != nil {
		return err
	}

	for _, dg := range order {
		if err := s.buildNode(ctx, dg, configs[dg], emit); err != nil {
			return err
		}
	}
	return nil
}

// closure walks root's transitive dependency graph, fetching each artifact
// config from the registry the first time it is seen.
func (s *Scheduler) closure(ctx context.Context, root digest.Digest) (map[digest.Digest]artifact.Artifact, map[digest.Digest][]digest.Digest, error) {
	configs := make(map[digest.Digest]artifact.Artifact)
	edges := make(map[digest.Digest][]digest.Digest)

	var visit func(d digest.Digest) error
	visit = func(d digest.Digest) error {
		if _, ok := configs[d]; ok {
			return nil
		}
		art, err := s.Artifacts.GetArtifact(ctx, d)
		if err != nil {
			return fmt.Errorf("scheduler: get artifact %s: %w", d, err)
		}
		configs[d] = art
		deps := art.DependencyDigests()
		edges[d] = deps
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root); err != nil {
		return nil, nil, err
	}
	return configs, edges, nil
}

// buildNode handles one node of the topological order: a local cache hit,
// a registry pull, or a worker dispatch (spec.md §4.9 step 3).
func (s *Scheduler) buildNode(ctx context.Context, dg digest.Digest, art artifact.Artifact, emit func(Event)) error {
	outputDir := s.Paths.OutputDir(dg)
	if _, err := os.Stat(outputDir); err == nil {
		emit(Event{Digest: dg, Kind: "cached"})
		return nil
	}

	exists, err := s.Archives.CheckArchive(ctx, dg)
	if err != nil {
		vlog.GetLogger(ctx).WithField("digest", dg).WithError(err).Debug("registry check failed, falling back to build")
	}
	if exists {
		data, err := s.Archives.PullArchive(ctx, dg)
		if err == nil {
			if err := unpackTo(data, outputDir); err != nil {
				return fmt.Errorf("scheduler: unpack pulled output %s: %w", dg, err)
			}
			emit(Event{Digest: dg, Kind: "pulled"})
			return nil
		}
	}

	emit(Event{Digest: dg, Kind: "building"})
	onLog := func(line string) { emit(Event{Digest: dg, Kind: "log", Line: line}) }
	if err := s.Worker.Build(ctx, art, onLog); err != nil {
		return vorpalerr.ToStatus(err)
	}
	return nil
}

func unpackTo(data []byte, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return archive.UnpackZstd(bytes.NewReader(data), dest)
}
