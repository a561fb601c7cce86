// Package agent implements the AgentService of spec.md §4.7/§6: given an
// unresolved artifact, resolve each declared source (pkg/source), replace
// its declared digest with the computed one, compute the final artifact
// digest (pkg/artifact), and stream progress back to the caller.
package agent

import (
	"context"
	"sync"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/source"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// Agent implements vorpal.AgentServiceServer.
type Agent struct {
	Resolver *source.Resolver
}

// New constructs an Agent bound to a Resolver.
func New(r *source.Resolver) *Agent {
	return &Agent{Resolver: r}
}

var _ vorpal.AgentServiceServer = (*Agent)(nil)

// PrepareArtifact resolves every declared source in req, in parallel
// (spec.md §4.4's "ordering among them has no effect on the artifact
// digest"), then streams a terminal message carrying the fully resolved
// artifact and its digest.
func (a *Agent) PrepareArtifact(req *vorpal.Artifact, stream vorpal.AgentService_PrepareArtifactServer) error {
	ctx := stream.Context()
	art := vorpal.ToArtifact(req)

	resolved := make([]artifact.ArtifactSource, len(art.Sources))
	errs := make([]error, len(art.Sources))

	// grpc.ServerStream.SendMsg is not safe for concurrent use, but source
	// resolution itself runs in parallel (spec.md §4.4); a mutex serializes
	// the interleaved progress lines each resolver goroutine emits.
	var sendMu sync.Mutex
	send := func(m *vorpal.PrepareArtifactResponse) error {
		sendMu.Lock()
		defer sendMu.Unlock()
		return stream.Send(m)
	}

	type result struct {
		index int
		src   artifact.ArtifactSource
		err   error
	}
	results := make(chan result, len(art.Sources))

	for i, src := range art.Sources {
		go func(i int, src artifact.ArtifactSource) {
			progress := func(line string) {
				_ = send(&vorpal.PrepareArtifactResponse{ArtifactOutput: line})
			}
			dg, err := a.Resolver.Resolve(ctx, src, progress)
			if err != nil {
				results <- result{index: i, err: err}
				return
			}
			src.Digest = dg
			results <- result{index: i, src: src}
		}(i, src)
	}

	for range art.Sources {
		r := <-results
		errs[r.index] = r.err
		if r.err == nil {
			resolved[r.index] = r.src
		}
	}

	for _, err := range errs {
		if err != nil {
			return vorpalerr.ToStatus(err)
		}
	}

	art.Sources = resolved

	dg, err := artifact.Digest(art)
	if err != nil {
		return vorpalerr.New(vorpalerr.UnknownSourceKind, "digest artifact: %v", err).Status()
	}

	vlog.GetLogger(ctx).WithField("digest", dg).Debug("prepared artifact")

	final := vorpal.FromArtifact(art)
	return send(&vorpal.PrepareArtifactResponse{
		Artifact:       final,
		ArtifactDigest: dg.String(),
	})
}
