package scheduler

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/store"
)

type fakeArtifacts struct {
	byDigest map[digest.Digest]artifact.Artifact
}

func (f *fakeArtifacts) GetArtifact(_ context.Context, d digest.Digest) (artifact.Artifact, error) {
	art, ok := f.byDigest[d]
	if !ok {
		return artifact.Artifact{}, os.ErrNotExist
	}
	return art, nil
}

type fakeArchives struct {
	present map[digest.Digest][]byte
}

func (f *fakeArchives) CheckArchive(_ context.Context, d digest.Digest) (bool, error) {
	_, ok := f.present[d]
	return ok, nil
}

func (f *fakeArchives) PullArchive(_ context.Context, d digest.Digest) ([]byte, error) {
	data, ok := f.present[d]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

type fakeWorker struct {
	built []digest.Digest
	fail  map[digest.Digest]bool
	paths store.Paths
}

func (f *fakeWorker) Build(_ context.Context, art artifact.Artifact, onLog func(string)) error {
	dg, err := artifact.Digest(art)
	if err != nil {
		return err
	}
	f.built = append(f.built, dg)
	onLog("building " + art.Name)
	if f.fail[dg] {
		return os.ErrInvalid
	}
	return os.MkdirAll(f.paths.OutputDir(dg), 0o755)
}

// buildGraph wires a diamond: root depends on mid1 and mid2, both depend on
// leaf. Every node's config is registered with fakeArtifacts.
func buildGraph(t *testing.T) (root digest.Digest, artifacts *fakeArtifacts) {
	t.Helper()
	leaf := artifact.Artifact{Name: "leaf", Target: artifact.X8664Linux, Systems: []artifact.System{artifact.X8664Linux}}
	leafDg, err := artifact.Digest(leaf)
	require.NoError(t, err)

	mid1 := artifact.Artifact{
		Name: "mid1", Target: artifact.X8664Linux, Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{{Entrypoint: "/bin/mid1", Dependencies: []digest.Digest{leafDg}}},
	}
	mid1Dg, err := artifact.Digest(mid1)
	require.NoError(t, err)

	mid2 := artifact.Artifact{
		Name: "mid2", Target: artifact.X8664Linux, Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{{Entrypoint: "/bin/mid2", Dependencies: []digest.Digest{leafDg}}},
	}
	mid2Dg, err := artifact.Digest(mid2)
	require.NoError(t, err)

	rootArt := artifact.Artifact{
		Name: "root", Target: artifact.X8664Linux, Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{{Entrypoint: "/bin/root", Dependencies: []digest.Digest{mid1Dg, mid2Dg}}},
	}
	rootDg, err := artifact.Digest(rootArt)
	require.NoError(t, err)

	artifacts = &fakeArtifacts{byDigest: map[digest.Digest]artifact.Artifact{
		leafDg: leaf, mid1Dg: mid1, mid2Dg: mid2, rootDg: rootArt,
	}}
	return rootDg, artifacts
}

func TestRunBuildsDependenciesBeforeDependents(t *testing.T) {
	root, artifacts := buildGraph(t)
	paths := store.Paths{Root: t.TempDir()}
	worker := &fakeWorker{fail: map[digest.Digest]bool{}, paths: paths}
	archives := &fakeArchives{present: map[digest.Digest][]byte{}}

	s := New(paths, artifacts, archives, worker)

	var events []Event
	err := s.Run(context.Background(), root, func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	require.Len(t, worker.built, 4)
	position := make(map[digest.Digest]int)
	for i, d := range worker.built {
		position[d] = i
	}

	var leafDg, mid1Dg digest.Digest
	for d, art := range artifacts.byDigest {
		switch art.Name {
		case "leaf":
			leafDg = d
		case "mid1":
			mid1Dg = d
		}
	}

	require.Less(t, position[leafDg], position[mid1Dg])
	require.Less(t, position[mid1Dg], position[root])
}

func TestRunSkipsCachedOutputs(t *testing.T) {
	root, artifacts := buildGraph(t)
	paths := store.Paths{Root: t.TempDir()}
	worker := &fakeWorker{fail: map[digest.Digest]bool{}, paths: paths}
	archives := &fakeArchives{present: map[digest.Digest][]byte{}}

	leafDg := firstKeyNotEqualTo(artifacts.byDigest, root)
	require.NoError(t, os.MkdirAll(paths.OutputDir(leafDg), 0o755))

	s := New(paths, artifacts, archives, worker)
	var events []Event
	err := s.Run(context.Background(), root, func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	for _, d := range worker.built {
		require.NotEqual(t, leafDg, d)
	}

	var sawCached bool
	for _, e := range events {
		if e.Digest == leafDg && e.Kind == "cached" {
			sawCached = true
		}
	}
	require.True(t, sawCached)
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	root, artifacts := buildGraph(t)
	paths := store.Paths{Root: t.TempDir()}

	var leafDg digest.Digest
	for d, art := range artifacts.byDigest {
		if art.Name == "leaf" {
			leafDg = d
		}
	}

	worker := &fakeWorker{fail: map[digest.Digest]bool{leafDg: true}, paths: paths}
	archives := &fakeArchives{present: map[digest.Digest][]byte{}}

	s := New(paths, artifacts, archives, worker)
	err := s.Run(context.Background(), root, func(Event) {})
	require.Error(t, err)
	require.Len(t, worker.built, 1)
}

// firstKeyNotEqualTo returns an artifact digest from m whose artifact has no
// dependencies (i.e. the leaf), used by tests that need to name it without
// recomputing its digest inline.
func firstKeyNotEqualTo(m map[digest.Digest]artifact.Artifact, exclude digest.Digest) digest.Digest {
	for d, art := range m {
		if d != exclude && len(art.DependencyDigests()) == 0 {
			return d
		}
	}
	return ""
}
