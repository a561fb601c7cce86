// Package rpcclient adapts proto/vorpal's generated-style gRPC clients to
// the narrow interfaces pkg/source and internal/worker depend on, so those
// packages never import the wire layer directly and stay testable with
// in-memory fakes.
package rpcclient

import (
	"bytes"
	"context"
	"io"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// pushChunkSize mirrors spec.md §4.4 step 5.
const pushChunkSize = 8192

// maxTransientRetries bounds the retries retryTransient performs on an
// Io/Network-kind failure (spec.md §7) before giving up.
const maxTransientRetries = 4

// newBackOff is a seam tests override to avoid real sleeps.
var newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }

// retryTransient retries op with bounded exponential backoff while it
// fails with the gRPC status an Io/Network vorpalerr.Kind is mapped to
// (codes.Unavailable); any other error — including a business error such
// as NotFound — aborts immediately via backoff.Permanent.
func retryTransient(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), maxTransientRetries), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if status.Code(err) == codes.Unavailable {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// ArchiveClient adapts a vorpal.ArchiveServiceClient to pkg/source.ArchiveClient.
type ArchiveClient struct {
	Client vorpal.ArchiveServiceClient
}

// New wraps c.
func New(c vorpal.ArchiveServiceClient) *ArchiveClient {
	return &ArchiveClient{Client: c}
}

// CheckArchive reports whether the registry already holds an archive for d.
func (a *ArchiveClient) CheckArchive(ctx context.Context, d digest.Digest) (bool, error) {
	var exists bool
	err := retryTransient(ctx, func() error {
		_, callErr := a.Client.Check(ctx, &vorpal.ArchivePullRequest{Digest: d.String()})
		if callErr == nil {
			exists = true
			return nil
		}
		if vorpalerr.IsNotFound(callErr) {
			exists = false
			return nil
		}
		return callErr
	})
	return exists, err
}

// PushArchive streams data up to the registry in pushChunkSize chunks,
// carrying the digest and signature on every chunk (last-wins tolerated
// per spec.md §6). The whole push is retried as a unit on a transient
// failure, since a half-sent gRPC stream can't be resumed mid-way.
func (a *ArchiveClient) PushArchive(ctx context.Context, d digest.Digest, signature, data []byte) error {
	return retryTransient(ctx, func() error {
		stream, err := a.Client.Push(ctx)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			if err := stream.Send(&vorpal.ArchivePushRequest{Digest: d.String(), Signature: signature}); err != nil {
				return err
			}
		}
		for offset := 0; offset < len(data); offset += pushChunkSize {
			end := offset + pushChunkSize
			if end > len(data) {
				end = len(data)
			}
			chunk := &vorpal.ArchivePushRequest{
				Data:      data[offset:end],
				Digest:    d.String(),
				Signature: signature,
			}
			if err := stream.Send(chunk); err != nil {
				return err
			}
		}
		_, err = stream.CloseAndRecv()
		return err
	})
}

// PullArchive streams the archive for d from the registry into a buffer and
// returns its bytes. The whole pull is retried as a unit on a transient
// failure, re-opening the stream from the start.
func (a *ArchiveClient) PullArchive(ctx context.Context, d digest.Digest) ([]byte, error) {
	var data []byte
	err := retryTransient(ctx, func() error {
		stream, err := a.Client.Pull(ctx, &vorpal.ArchivePullRequest{Digest: d.String()})
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return err
			}
			buf.Write(chunk.Data)
		}
		data = buf.Bytes()
		return nil
	})
	return data, err
}
