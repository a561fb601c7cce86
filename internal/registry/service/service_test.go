package service

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/vorpal-build/vorpal/internal/registry/driver/local"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// fakePushStream satisfies vorpal.ArchiveService_PushServer without a real
// network connection: Recv plays back a fixed queue of chunks, SendAndClose
// records the final response.
type fakePushStream struct {
	ctx    context.Context
	inbox  []*vorpal.ArchivePushRequest
	pos    int
	result *vorpal.ArchiveResponse
}

func (f *fakePushStream) SetHeader(metadata.MD) error { return nil }
func (f *fakePushStream) SendHeader(metadata.MD) error { return nil }
func (f *fakePushStream) SetTrailer(metadata.MD)       {}
func (f *fakePushStream) Context() context.Context     { return f.ctx }
func (f *fakePushStream) SendMsg(interface{}) error    { return nil }
func (f *fakePushStream) RecvMsg(interface{}) error    { return nil }

func (f *fakePushStream) Recv() (*vorpal.ArchivePushRequest, error) {
	if f.pos >= len(f.inbox) {
		return nil, io.EOF
	}
	m := f.inbox[f.pos]
	f.pos++
	return m, nil
}

func (f *fakePushStream) SendAndClose(m *vorpal.ArchiveResponse) error {
	f.result = m
	return nil
}

func setupRegistry(t *testing.T) (*Registry, *keys.KeyStore) {
	t.Helper()
	root := t.TempDir()
	backend := local.New(root)

	kp := keys.Paths{Private: root + "/private.pem", Public: root + "/public.pem"}
	require.NoError(t, keys.Generate(kp, false))
	ks, err := keys.Load(kp)
	require.NoError(t, err)

	return NewRegistry(backend, ks.PublicKey()), ks
}

func TestCheckNotFound(t *testing.T) {
	r, _ := setupRegistry(t)
	_, err := r.Check(context.Background(), &vorpal.ArchivePullRequest{Digest: digest.FromBytes([]byte("x")).String()})
	require.Error(t, err)
}

func TestStoreAndGetArtifact(t *testing.T) {
	r, _ := setupRegistry(t)
	ctx := context.Background()

	in := vorpal.FromArtifact(artifact.Artifact{
		Name:    "demo",
		Target:  artifact.X8664Linux,
		Systems: []artifact.System{artifact.X8664Linux},
		Sources: []artifact.ArtifactSource{{Name: "src", Path: "/tmp/x", Digest: digest.FromBytes([]byte("y"))}},
	})

	resp, err := r.StoreArtifact(ctx, in)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Digest)

	got, err := r.GetArtifact(ctx, &vorpal.ArtifactRequest{Digest: resp.Digest})
	require.NoError(t, err)
	require.Equal(t, "demo", got.Name)
}

func TestPushRejectsUnsignedBody(t *testing.T) {
	r, _ := setupRegistry(t)
	stream := &fakePushStream{
		ctx:   context.Background(),
		inbox: []*vorpal.ArchivePushRequest{{Data: []byte("hello")}},
	}
	err := r.Push(stream)
	require.Error(t, err)
}

func TestPushAcceptsSignedBody(t *testing.T) {
	r, ks := setupRegistry(t)
	body := []byte("archive contents")
	sig, err := ks.Sign(body)
	require.NoError(t, err)
	dg := digest.FromBytes(body)

	stream := &fakePushStream{
		ctx:   context.Background(),
		inbox: []*vorpal.ArchivePushRequest{{Data: body, Digest: dg.String(), Signature: sig}},
	}
	require.NoError(t, r.Push(stream))
	require.NotNil(t, stream.result)
	require.Equal(t, dg.String(), stream.result.Digest)

	checkResp, err := r.Check(context.Background(), &vorpal.ArchivePullRequest{Digest: dg.String()})
	require.NoError(t, err)
	require.Equal(t, dg.String(), checkResp.Digest)
}
