package rpcclient

import (
	"context"
	"io"

	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// WorkerClient adapts a vorpal.WorkerServiceClient to internal/scheduler.Worker.
type WorkerClient struct {
	Client vorpal.WorkerServiceClient
}

// NewWorkerClient wraps c.
func NewWorkerClient(c vorpal.WorkerServiceClient) *WorkerClient {
	return &WorkerClient{Client: c}
}

// Build dispatches art to the worker's Build RPC, forwarding each streamed
// log line to onLog until the terminal Done marker or an error arrives.
func (w *WorkerClient) Build(ctx context.Context, art artifact.Artifact, onLog func(line string)) error {
	stream, err := w.Client.Build(ctx, &vorpal.ArtifactBuildRequest{Artifact: vorpal.FromArtifact(art)})
	if err != nil {
		return err
	}
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if resp.Done {
			return nil
		}
		if resp.Output != "" {
			onLog(resp.Output)
		}
	}
}

// ArtifactClient adapts a vorpal.ArtifactServiceClient to
// internal/scheduler.ArtifactClient.
type ArtifactClient struct {
	Client vorpal.ArtifactServiceClient
}

// NewArtifactClient wraps c.
func NewArtifactClient(c vorpal.ArtifactServiceClient) *ArtifactClient {
	return &ArtifactClient{Client: c}
}

// GetArtifact fetches the artifact config registered under d.
func (a *ArtifactClient) GetArtifact(ctx context.Context, d digest.Digest) (artifact.Artifact, error) {
	resp, err := a.Client.GetArtifact(ctx, &vorpal.ArtifactRequest{Digest: d.String()})
	if err != nil {
		return artifact.Artifact{}, err
	}
	return vorpal.ToArtifact(resp), nil
}
