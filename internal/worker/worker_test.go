package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/vorpal-build/vorpal/internal/sandbox"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

type fakeRegistry struct {
	pushed map[digest.Digest][]byte
	pulled map[digest.Digest][]byte
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{pushed: map[digest.Digest][]byte{}, pulled: map[digest.Digest][]byte{}}
}

func (f *fakeRegistry) CheckArchive(context.Context, digest.Digest) (bool, error) { return false, nil }

func (f *fakeRegistry) PushArchive(_ context.Context, d digest.Digest, _ []byte, data []byte) error {
	f.pushed[d] = data
	return nil
}

func (f *fakeRegistry) PullArchive(_ context.Context, d digest.Digest) ([]byte, error) {
	data, ok := f.pulled[d]
	if !ok {
		return nil, io.EOF
	}
	return data, nil
}

// echoDriver runs the step's entrypoint directly on the host via the
// lineWriter-fed stdout, ignoring real sandboxing, to exercise Build's
// control flow without requiring OS-level isolation privileges in tests.
type echoDriver struct {
	ranEntrypoints []string
}

func (d *echoDriver) Run(ctx context.Context, spec sandbox.Spec, stdout, stderr io.Writer) (int, error) {
	d.ranEntrypoints = append(d.ranEntrypoints, spec.Entrypoint)
	stdout.Write([]byte("ran: " + spec.Entrypoint + "\n"))
	if spec.Entrypoint == "/bin/false-step" {
		return 1, nil
	}
	return 0, nil
}

type fakeBuildStream struct {
	ctx  context.Context
	sent []*vorpal.ArtifactBuildResponse
}

func (f *fakeBuildStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeBuildStream) SendHeader(metadata.MD) error  { return nil }
func (f *fakeBuildStream) SetTrailer(metadata.MD)        {}
func (f *fakeBuildStream) Context() context.Context      { return f.ctx }
func (f *fakeBuildStream) SendMsg(interface{}) error     { return nil }
func (f *fakeBuildStream) RecvMsg(interface{}) error     { return nil }

func (f *fakeBuildStream) Send(m *vorpal.ArtifactBuildResponse) error {
	f.sent = append(f.sent, m)
	return nil
}

func setupWorker(t *testing.T) (*Worker, store.Paths, *echoDriver) {
	t.Helper()
	root := t.TempDir()
	paths := store.Paths{Root: root}
	require.NoError(t, os.MkdirAll(paths.SandboxDir(), 0o755))
	require.NoError(t, os.MkdirAll(paths.StoreDir(), 0o755))

	kp := keys.Paths{Private: paths.PrivateKey(), Public: paths.PublicKey()}
	require.NoError(t, keys.Generate(kp, false))
	ks, err := keys.Load(kp)
	require.NoError(t, err)

	driver := &echoDriver{}
	w := New(paths, ks, newFakeRegistry(), driver, filepath.Join(root, "rootfs"))
	return w, paths, driver
}

func TestBuildRunsStepsAndPublishesOutput(t *testing.T) {
	w, paths, driver := setupWorker(t)

	art := artifact.Artifact{
		Name:    "demo",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{
			{Entrypoint: "/bin/true-step"},
		},
	}
	dg, err := artifact.Digest(art)
	require.NoError(t, err)

	req := &vorpal.ArtifactBuildRequest{Artifact: vorpal.FromArtifact(art)}
	stream := &fakeBuildStream{ctx: context.Background()}

	require.NoError(t, w.Build(req, stream))
	require.Len(t, driver.ranEntrypoints, 1)
	require.Equal(t, "/bin/true-step", driver.ranEntrypoints[0])

	terminal := stream.sent[len(stream.sent)-1]
	require.True(t, terminal.Done)

	require.DirExists(t, paths.OutputDir(dg))
}

func TestBuildFailsOnNonZeroExit(t *testing.T) {
	w, _, _ := setupWorker(t)

	art := artifact.Artifact{
		Name:    "demo-fail",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{
			{Entrypoint: "/bin/false-step"},
		},
	}
	req := &vorpal.ArtifactBuildRequest{Artifact: vorpal.FromArtifact(art)}
	stream := &fakeBuildStream{ctx: context.Background()}

	err := w.Build(req, stream)
	require.Error(t, err)
}

func TestBuildRejectsMissingDependency(t *testing.T) {
	w, _, _ := setupWorker(t)

	missing := digest.FromBytes([]byte("missing-dep"))
	art := artifact.Artifact{
		Name:    "demo-dep",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
		Steps: []artifact.ArtifactStep{
			{Entrypoint: "/bin/true-step", Dependencies: []digest.Digest{missing}},
		},
	}
	req := &vorpal.ArtifactBuildRequest{Artifact: vorpal.FromArtifact(art)}
	stream := &fakeBuildStream{ctx: context.Background()}

	err := w.Build(req, stream)
	require.Error(t, err)
}

func TestBuildRejectsExistingOutput(t *testing.T) {
	w, paths, _ := setupWorker(t)

	art := artifact.Artifact{
		Name:    "demo-exists",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
	}
	dg, err := artifact.Digest(art)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(paths.OutputDir(dg), 0o755))

	req := &vorpal.ArtifactBuildRequest{Artifact: vorpal.FromArtifact(art)}
	stream := &fakeBuildStream{ctx: context.Background()}

	err = w.Build(req, stream)
	require.Error(t, err)
}
