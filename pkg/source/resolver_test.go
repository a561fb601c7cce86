package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/store"
)

type fakeArchiveClient struct {
	existing map[digest.Digest]bool
	pushed   map[digest.Digest][]byte
}

func newFakeArchiveClient() *fakeArchiveClient {
	return &fakeArchiveClient{existing: map[digest.Digest]bool{}, pushed: map[digest.Digest][]byte{}}
}

func (f *fakeArchiveClient) CheckArchive(_ context.Context, d digest.Digest) (bool, error) {
	return f.existing[d], nil
}

func (f *fakeArchiveClient) PushArchive(_ context.Context, d digest.Digest, _ []byte, data []byte) error {
	f.pushed[d] = data
	return nil
}

func setup(t *testing.T) (store.Paths, *keys.KeyStore) {
	t.Helper()
	root := t.TempDir()
	paths := store.Paths{Root: root}
	require.NoError(t, os.MkdirAll(paths.SandboxDir(), 0o755))
	require.NoError(t, os.MkdirAll(paths.StoreDir(), 0o755))

	kp := keys.Paths{Private: paths.PrivateKey(), Public: paths.PublicKey()}
	require.NoError(t, keys.Generate(kp, false))
	ks, err := keys.Load(kp)
	require.NoError(t, err)
	return paths, ks
}

func TestResolveLocalDirectory(t *testing.T) {
	paths, ks := setup(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(srcRoot, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "sub", "b.txt"), []byte("world"), 0o644))

	client := newFakeArchiveClient()
	r := NewResolver(paths, ks, client)

	src := artifact.ArtifactSource{Name: "mysrc", Path: srcRoot}
	var lines []string
	d, err := r.Resolve(context.Background(), src, func(l string) { lines = append(lines, l) })
	require.NoError(t, err)
	require.NoError(t, d.Validate())
	require.NotEmpty(t, lines)
	require.Contains(t, client.pushed, d)
}

func TestResolveLocalDeterministic(t *testing.T) {
	paths, ks := setup(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("hello"), 0o644))

	client := newFakeArchiveClient()
	r := NewResolver(paths, ks, client)
	src := artifact.ArtifactSource{Name: "mysrc", Path: srcRoot}

	d1, err := r.Resolve(context.Background(), src, nil)
	require.NoError(t, err)
	d2, err := r.Resolve(context.Background(), src, nil)
	require.NoError(t, err)
	require.Equal(t, d1, d2)
}

func TestResolveDigestMismatch(t *testing.T) {
	paths, ks := setup(t)

	srcRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "a.txt"), []byte("hello"), 0o644))

	client := newFakeArchiveClient()
	r := NewResolver(paths, ks, client)
	src := artifact.ArtifactSource{Name: "mysrc", Path: srcRoot, Digest: digest.FromBytes([]byte("wrong"))}

	_, err := r.Resolve(context.Background(), src, nil)
	require.Error(t, err)
}

func TestResolveGitRejected(t *testing.T) {
	paths, ks := setup(t)
	r := NewResolver(paths, ks, newFakeArchiveClient())
	src := artifact.ArtifactSource{Name: "gitsrc", Path: "https://example.com/repo.git"}
	_, err := r.Resolve(context.Background(), src, nil)
	require.Error(t, err)
}

func TestResolveUnknownKind(t *testing.T) {
	paths, ks := setup(t)
	r := NewResolver(paths, ks, newFakeArchiveClient())
	src := artifact.ArtifactSource{Name: "weird", Path: "ftp://example.com/file"}
	_, err := r.Resolve(context.Background(), src, nil)
	require.Error(t, err)
}

func TestResolveHTTPMissingDigest(t *testing.T) {
	paths, ks := setup(t)
	r := NewResolver(paths, ks, newFakeArchiveClient())
	src := artifact.ArtifactSource{Name: "remote", Path: "https://example.com/archive.tar.gz"}
	_, err := r.Resolve(context.Background(), src, nil)
	require.Error(t, err)
}
