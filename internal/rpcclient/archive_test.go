package rpcclient

import (
	"context"
	"io"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

func noSleep(t *testing.T) {
	t.Helper()
	prev := newBackOff
	newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	t.Cleanup(func() { newBackOff = prev })
}

// fakePullStream replays a fixed sequence of chunks, then io.EOF.
type fakePullStream struct {
	grpc.ClientStream
	chunks []*vorpal.ArchivePullResponse
	i      int
}

func (s *fakePullStream) Recv() (*vorpal.ArchivePullResponse, error) {
	if s.i >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

// fakePushStream records every chunk sent to it.
type fakePushStream struct {
	grpc.ClientStream
	sent []*vorpal.ArchivePushRequest
}

func (s *fakePushStream) Send(m *vorpal.ArchivePushRequest) error {
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakePushStream) CloseAndRecv() (*vorpal.ArchiveResponse, error) {
	return &vorpal.ArchiveResponse{}, nil
}

// fakeArchiveServiceClient fails its first N calls to whichever method is
// under test with a transient Unavailable status, then succeeds.
type fakeArchiveServiceClient struct {
	failures int

	checkCalls int
	pullCalls  int
	pushCalls  int

	pullChunks []*vorpal.ArchivePullResponse
}

func (f *fakeArchiveServiceClient) Check(ctx context.Context, in *vorpal.ArchivePullRequest, opts ...grpc.CallOption) (*vorpal.ArchiveResponse, error) {
	f.checkCalls++
	if f.checkCalls <= f.failures {
		return nil, status.Error(codes.Unavailable, "transient")
	}
	return &vorpal.ArchiveResponse{}, nil
}

func (f *fakeArchiveServiceClient) Pull(ctx context.Context, in *vorpal.ArchivePullRequest, opts ...grpc.CallOption) (vorpal.ArchiveService_PullClient, error) {
	f.pullCalls++
	if f.pullCalls <= f.failures {
		return nil, status.Error(codes.Unavailable, "transient")
	}
	return &fakePullStream{chunks: f.pullChunks}, nil
}

func (f *fakeArchiveServiceClient) Push(ctx context.Context, opts ...grpc.CallOption) (vorpal.ArchiveService_PushClient, error) {
	f.pushCalls++
	if f.pushCalls <= f.failures {
		return nil, status.Error(codes.Unavailable, "transient")
	}
	return &fakePushStream{}, nil
}

func TestCheckArchiveRetriesTransientFailureThenSucceeds(t *testing.T) {
	noSleep(t)
	client := &fakeArchiveServiceClient{failures: 2}
	a := New(client)

	exists, err := a.CheckArchive(context.Background(), digest.Digest("sha256:aaaa"))
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, 3, client.checkCalls)
}

func TestCheckArchiveNotFoundDoesNotRetry(t *testing.T) {
	noSleep(t)
	client := &notFoundArchiveServiceClient{}
	a := New(client)

	exists, err := a.CheckArchive(context.Background(), digest.Digest("sha256:aaaa"))
	require.NoError(t, err)
	require.False(t, exists)
	require.Equal(t, 1, client.calls)
}

type notFoundArchiveServiceClient struct {
	calls int
}

func (f *notFoundArchiveServiceClient) Check(ctx context.Context, in *vorpal.ArchivePullRequest, opts ...grpc.CallOption) (*vorpal.ArchiveResponse, error) {
	f.calls++
	return nil, status.Error(codes.NotFound, "no such archive")
}

func (f *notFoundArchiveServiceClient) Pull(ctx context.Context, in *vorpal.ArchivePullRequest, opts ...grpc.CallOption) (vorpal.ArchiveService_PullClient, error) {
	return nil, status.Error(codes.NotFound, "no such archive")
}

func (f *notFoundArchiveServiceClient) Push(ctx context.Context, opts ...grpc.CallOption) (vorpal.ArchiveService_PushClient, error) {
	return nil, status.Error(codes.NotFound, "no such archive")
}

func TestPullArchiveRetriesTransientFailureThenSucceeds(t *testing.T) {
	noSleep(t)
	client := &fakeArchiveServiceClient{
		failures:   1,
		pullChunks: []*vorpal.ArchivePullResponse{{Data: []byte("hel")}, {Data: []byte("lo")}},
	}
	a := New(client)

	data, err := a.PullArchive(context.Background(), digest.Digest("sha256:aaaa"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
	require.Equal(t, 2, client.pullCalls)
}

func TestPushArchiveRetriesTransientFailureThenSucceeds(t *testing.T) {
	noSleep(t)
	client := &fakeArchiveServiceClient{failures: 1}
	a := New(client)

	err := a.PushArchive(context.Background(), digest.Digest("sha256:aaaa"), []byte("sig"), []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, 2, client.pushCalls)
}
