package command

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vorpal-build/vorpal/internal/rpcclient"
	"github.com/vorpal-build/vorpal/internal/scheduler"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/config"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

func buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <artifact.json>",
		Short: "resolve and build an artifact's entire dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), cfg, args[0], cmd)
		},
	}
	return cmd
}

func runBuild(ctx context.Context, cfg *config.Configuration, artifactPath string, cmd *cobra.Command) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("vorpal: read %s: %w", artifactPath, err)
	}
	art, err := artifact.Parse(data)
	if err != nil {
		return fmt.Errorf("vorpal: parse %s: %w", artifactPath, err)
	}

	dial := func(addr string) (*grpc.ClientConn, error) {
		return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	agentConn, err := dial(cfg.Agent.Address)
	if err != nil {
		return fmt.Errorf("vorpal: dial agent: %w", err)
	}
	agentClient := vorpal.NewAgentServiceClient(agentConn)

	stream, err := agentClient.PrepareArtifact(ctx, vorpal.FromArtifact(art))
	if err != nil {
		return fmt.Errorf("vorpal: prepare artifact: %w", err)
	}

	var rootDigest digest.Digest
	var resolved *vorpal.Artifact
	for {
		resp, err := stream.Recv()
		if err != nil {
			return fmt.Errorf("vorpal: prepare artifact: %w", err)
		}
		if resp.ArtifactOutput != "" {
			fmt.Fprintln(cmd.OutOrStdout(), resp.ArtifactOutput)
		}
		if resp.ArtifactDigest != "" {
			rootDigest = digest.Digest(resp.ArtifactDigest)
			resolved = resp.Artifact
			break
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "resolved: %s\n", rootDigest)

	registryConn, err := dial(cfg.Registry.Address)
	if err != nil {
		return fmt.Errorf("vorpal: dial registry: %w", err)
	}
	rawArtifactClient := vorpal.NewArtifactServiceClient(registryConn)
	if _, err := rawArtifactClient.StoreArtifact(ctx, resolved); err != nil {
		return fmt.Errorf("vorpal: store resolved artifact: %w", err)
	}
	artifactClient := rpcclient.NewArtifactClient(rawArtifactClient)
	archiveClient := rpcclient.New(vorpal.NewArchiveServiceClient(registryConn))

	workerConn, err := dial(cfg.Worker.Address)
	if err != nil {
		return fmt.Errorf("vorpal: dial worker: %w", err)
	}
	workerClient := rpcclient.NewWorkerClient(vorpal.NewWorkerServiceClient(workerConn))

	paths := store.Paths{Root: cfg.Store.Root}
	sched := scheduler.New(paths, artifactClient, archiveClient, workerClient)

	err = sched.Run(ctx, rootDigest, func(e scheduler.Event) {
		switch e.Kind {
		case "log":
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Digest, e.Line)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", e.Digest, e.Kind)
		}
	})
	if err != nil {
		return fmt.Errorf("vorpal: build: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", rootDigest)
	return nil
}
