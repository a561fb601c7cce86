package local

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
)

func TestPushCheckPullRoundTrip(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()
	body := []byte("archive bytes")
	dg := digest.FromBytes(body)

	exists, err := d.Check(ctx, dg)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, d.Push(ctx, dg, bytes.NewReader(body)))

	exists, err = d.Check(ctx, dg)
	require.NoError(t, err)
	require.True(t, exists)

	var buf bytes.Buffer
	require.NoError(t, d.Pull(ctx, dg, &buf))
	require.Equal(t, body, buf.Bytes())
}

func TestPushIsWriteOnce(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()
	body := []byte("original")
	dg := digest.FromBytes(body)

	require.NoError(t, d.Push(ctx, dg, bytes.NewReader(body)))
	// A second push under the same digest must not alter stored bytes.
	require.NoError(t, d.Push(ctx, dg, bytes.NewReader([]byte("ignored"))))

	var buf bytes.Buffer
	require.NoError(t, d.Pull(ctx, dg, &buf))
	require.Equal(t, body, buf.Bytes())
}

func TestPullNotFound(t *testing.T) {
	d := New(t.TempDir())
	var buf bytes.Buffer
	err := d.Pull(context.Background(), digest.FromBytes([]byte("missing")), &buf)
	require.Error(t, err)
}

func TestStoreGetArtifactRoundTrip(t *testing.T) {
	d := New(t.TempDir())
	ctx := context.Background()
	a := artifact.Artifact{
		Name:    "example",
		Systems: []artifact.System{artifact.X8664Linux},
		Target:  artifact.X8664Linux,
		Sources: []artifact.ArtifactSource{
			{Name: "src", Path: "/tmp/src", Digest: digest.FromBytes([]byte("x"))},
		},
	}

	dg, err := d.StoreArtifact(ctx, a)
	require.NoError(t, err)

	got, err := d.GetArtifact(ctx, dg)
	require.NoError(t, err)
	require.Equal(t, a.Name, got.Name)
	require.Equal(t, a.Sources[0].Digest, got.Sources[0].Digest)
}

func TestGetArtifactNotFound(t *testing.T) {
	d := New(t.TempDir())
	_, err := d.GetArtifact(context.Background(), digest.FromBytes([]byte("missing")))
	require.Error(t, err)
}
