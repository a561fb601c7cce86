package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/source"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

type noopArchiveClient struct{}

func (noopArchiveClient) CheckArchive(context.Context, digest.Digest) (bool, error) { return true, nil }
func (noopArchiveClient) PushArchive(context.Context, digest.Digest, []byte, []byte) error {
	return nil
}

type fakeAgentStream struct {
	ctx  context.Context
	sent []*vorpal.PrepareArtifactResponse
}

func (f *fakeAgentStream) SetHeader(metadata.MD) error { return nil }
func (f *fakeAgentStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeAgentStream) SetTrailer(metadata.MD)       {}
func (f *fakeAgentStream) Context() context.Context     { return f.ctx }
func (f *fakeAgentStream) SendMsg(interface{}) error    { return nil }
func (f *fakeAgentStream) RecvMsg(interface{}) error    { return nil }

func (f *fakeAgentStream) Send(m *vorpal.PrepareArtifactResponse) error {
	f.sent = append(f.sent, m)
	return nil
}

func TestPrepareArtifactResolvesSourcesAndDigests(t *testing.T) {
	root := t.TempDir()
	paths := store.Paths{Root: root}
	require.NoError(t, os.MkdirAll(paths.SandboxDir(), 0o755))
	require.NoError(t, os.MkdirAll(paths.StoreDir(), 0o755))
	kp := keys.Paths{Private: paths.PrivateKey(), Public: paths.PublicKey()}
	require.NoError(t, keys.Generate(kp, false))
	ks, err := keys.Load(kp)
	require.NoError(t, err)

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0o644))

	resolver := source.NewResolver(paths, ks, noopArchiveClient{})
	a := New(resolver)

	req := vorpal.FromArtifact(artifact.Artifact{
		Name:    "demo",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
		Sources: []artifact.ArtifactSource{{Name: "src", Path: srcDir}},
	})

	stream := &fakeAgentStream{ctx: context.Background()}
	require.NoError(t, a.PrepareArtifact(req, stream))
	require.NotEmpty(t, stream.sent)

	terminal := stream.sent[len(stream.sent)-1]
	require.NotNil(t, terminal.Artifact)
	require.NotEmpty(t, terminal.ArtifactDigest)
	require.NotEmpty(t, terminal.Artifact.Sources[0].Digest)
}
