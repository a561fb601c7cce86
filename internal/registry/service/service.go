// Package service implements the gRPC-facing ArchiveService and
// ArtifactService of spec.md §4.6/§6: request/response translation between
// the hand-written proto/vorpal wire types and the registry's Backend,
// streaming chunk reassembly with signature verification on push, and
// structured per-request logging in the teacher's context.go/logger.go
// idiom (pkg/vlog).
package service

import (
	"bytes"
	"context"
	"crypto/rsa"
	"io"

	"github.com/vorpal-build/vorpal/internal/registry/driver"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// pullChunkSize mirrors spec.md §4.6's "streams archive bytes in chunks of
// ≈2 MiB".
const pullChunkSize = 2 * 1024 * 1024

// Registry wraps a driver.Backend with the wire-level services spec.md §6
// requires. A single Registry value implements both ArchiveServiceServer
// and ArtifactServiceServer.
type Registry struct {
	vorpal.UnimplementedArtifactServiceServer

	Backend   driver.Backend
	PublicKey *rsa.PublicKey
}

// NewRegistry constructs a Registry backed by b, verifying pushed archive
// signatures against pub.
func NewRegistry(b driver.Backend, pub *rsa.PublicKey) *Registry {
	return &Registry{Backend: b, PublicKey: pub}
}

var _ vorpal.ArchiveServiceServer = (*Registry)(nil)
var _ vorpal.ArtifactServiceServer = (*Registry)(nil)

func (r *Registry) Check(ctx context.Context, req *vorpal.ArchivePullRequest) (*vorpal.ArchiveResponse, error) {
	dg, err := digest.Parse(req.Digest)
	if err != nil {
		return nil, vorpalerr.New(vorpalerr.UnknownSourceKind, "invalid digest %q: %v", req.Digest, err).Status()
	}
	log := vlog.GetLogger(ctx).WithField("digest", dg)
	exists, err := r.Backend.Check(ctx, dg)
	if err != nil {
		return nil, vorpalerr.ToStatus(err)
	}
	if !exists {
		log.Debug("check: not found")
		return nil, vorpalerr.New(vorpalerr.NotFound, "archive %s not found", dg).Status()
	}
	return &vorpal.ArchiveResponse{Digest: dg.String()}, nil
}

func (r *Registry) Pull(req *vorpal.ArchivePullRequest, stream vorpal.ArchiveService_PullServer) error {
	ctx := stream.Context()
	dg, err := digest.Parse(req.Digest)
	if err != nil {
		return vorpalerr.New(vorpalerr.UnknownSourceKind, "invalid digest %q: %v", req.Digest, err).Status()
	}

	var buf bytes.Buffer
	if err := r.Backend.Pull(ctx, dg, &buf); err != nil {
		return vorpalerr.ToStatus(err)
	}

	data := buf.Bytes()
	for offset := 0; offset < len(data) || len(data) == 0; offset += pullChunkSize {
		end := offset + pullChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := stream.Send(&vorpal.ArchivePullResponse{Data: data[offset:end]}); err != nil {
			return vorpalerr.New(vorpalerr.Network, "send pull chunk: %v", err).Status()
		}
		if len(data) == 0 {
			break
		}
	}
	return nil
}

func (r *Registry) Push(stream vorpal.ArchiveService_PushServer) error {
	ctx := stream.Context()
	log := vlog.GetLogger(ctx)

	var body bytes.Buffer
	var wantDigest digest.Digest
	var signature []byte

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return vorpalerr.New(vorpalerr.Network, "receive push chunk: %v", err).Status()
		}
		body.Write(chunk.Data)
		if chunk.Digest != "" {
			wantDigest = digest.Digest(chunk.Digest)
		}
		if len(chunk.Signature) > 0 {
			signature = chunk.Signature
		}
	}

	if wantDigest == "" || signature == nil || body.Len() == 0 {
		return vorpalerr.New(vorpalerr.InvalidSignature, "push: digest, signature, and body are all required").Status()
	}

	if r.PublicKey == nil {
		return vorpalerr.New(vorpalerr.MissingKey, "push: no public key loaded to verify signature").Status()
	}
	if err := keys.Verify(r.PublicKey, body.Bytes(), signature); err != nil {
		log.Warn("push: signature verification failed")
		return vorpalerr.ToStatus(err)
	}

	recomputed := digest.FromBytes(body.Bytes())
	if recomputed != wantDigest {
		return vorpalerr.New(vorpalerr.SourceDigestMismatch, "push: expected %s, computed %s", wantDigest, recomputed).Status()
	}

	if err := r.Backend.Push(ctx, wantDigest, bytes.NewReader(body.Bytes())); err != nil {
		return vorpalerr.ToStatus(err)
	}
	return stream.SendAndClose(&vorpal.ArchiveResponse{Digest: wantDigest.String()})
}

func (r *Registry) GetArtifact(ctx context.Context, req *vorpal.ArtifactRequest) (*vorpal.Artifact, error) {
	dg, err := digest.Parse(req.Digest)
	if err != nil {
		return nil, vorpalerr.New(vorpalerr.UnknownSourceKind, "invalid digest %q: %v", req.Digest, err).Status()
	}
	a, err := r.Backend.GetArtifact(ctx, dg)
	if err != nil {
		return nil, vorpalerr.ToStatus(err)
	}
	return vorpal.FromArtifact(a), nil
}

func (r *Registry) StoreArtifact(ctx context.Context, req *vorpal.Artifact) (*vorpal.ArtifactResponse, error) {
	a := vorpal.ToArtifact(req)
	dg, err := r.Backend.StoreArtifact(ctx, a)
	if err != nil {
		return nil, vorpalerr.ToStatus(err)
	}
	return &vorpal.ArtifactResponse{Digest: dg.String()}, nil
}
