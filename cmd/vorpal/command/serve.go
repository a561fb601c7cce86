package command

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vorpal-build/vorpal/internal/agent"
	"github.com/vorpal-build/vorpal/internal/registry/driver"
	"github.com/vorpal-build/vorpal/internal/registry/driver/cicache"
	"github.com/vorpal-build/vorpal/internal/registry/driver/local"
	"github.com/vorpal-build/vorpal/internal/registry/driver/s3"
	regsvc "github.com/vorpal-build/vorpal/internal/registry/service"
	"github.com/vorpal-build/vorpal/internal/rpcclient"
	"github.com/vorpal-build/vorpal/internal/sandbox/platform"
	"github.com/vorpal-build/vorpal/internal/worker"
	"github.com/vorpal-build/vorpal/pkg/config"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/source"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// service is one of the three independently listening gRPC services
// spec.md §6 defines. They share a process but never share a listener.
type service struct {
	name string
	addr string
	reg  func(*grpc.Server)
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start the registry, agent, and worker services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	return cmd
}

func runServe(ctx context.Context, cfg *config.Configuration) error {
	if err := vlog.Configure(cfg.Log.Level, cfg.Log.Format == "json"); err != nil {
		return fmt.Errorf("vorpal: configure logging: %w", err)
	}
	log := vlog.GetLogger(ctx)

	paths := store.Paths{Root: cfg.Store.Root}

	backend, err := buildBackend(ctx, cfg.Store.Root, cfg.Registry)
	if err != nil {
		return err
	}

	publicKey, err := keys.LoadPublicOnly(cfg.Store.PublicKey)
	if err != nil {
		return fmt.Errorf("vorpal: load public key: %w", err)
	}
	registry := regsvc.NewRegistry(backend, publicKey)

	ks, err := keys.Load(keys.Paths{Private: cfg.Store.PrivateKey, Public: cfg.Store.PublicKey})
	if err != nil {
		return fmt.Errorf("vorpal: load keypair: %w", err)
	}

	// The agent and worker both talk to the registry's own ArchiveService
	// over loopback gRPC, exactly as a remote caller would, rather than
	// sharing the backend in-process — spec.md §6 fixes the wire surface
	// between every pair of services.
	registryConn, err := grpc.NewClient(cfg.Registry.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("vorpal: dial registry: %w", err)
	}
	archiveClient := rpcclient.New(vorpal.NewArchiveServiceClient(registryConn))

	resolver := source.NewResolver(paths, ks, archiveClient)
	agentSvc := agent.New(resolver)

	rootfsDir := paths.Root
	if cfg.Worker.RootfsDigest != "" {
		rootfsDir = paths.OutputDir(digest.Digest(cfg.Worker.RootfsDigest))
	}
	workerSvc := worker.New(paths, ks, archiveClient, platform.New(), rootfsDir)

	services := []service{
		{name: "registry", addr: cfg.Registry.Address, reg: func(s *grpc.Server) {
			vorpal.RegisterArchiveServiceServer(s, registry)
			vorpal.RegisterArtifactServiceServer(s, registry)
		}},
		{name: "agent", addr: cfg.Agent.Address, reg: func(s *grpc.Server) {
			vorpal.RegisterAgentServiceServer(s, agentSvc)
		}},
		{name: "worker", addr: cfg.Worker.Address, reg: func(s *grpc.Server) {
			vorpal.RegisterWorkerServiceServer(s, workerSvc)
		}},
	}

	errs := make(chan error, len(services))
	for _, svc := range services {
		svc := svc
		lis, err := net.Listen("tcp", svc.addr)
		if err != nil {
			return fmt.Errorf("vorpal: listen %s on %s: %w", svc.name, svc.addr, err)
		}
		grpcServer := grpc.NewServer()
		svc.reg(grpcServer)
		log.WithField("service", svc.name).WithField("address", svc.addr).Info("listening")
		go func() { errs <- grpcServer.Serve(lis) }()
	}

	return <-errs
}

func buildBackend(ctx context.Context, storeRoot string, cfg config.Registry) (driver.Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return local.New(storeRoot), nil
	case "s3":
		return s3.New(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix)
	case "cicache":
		return cicache.New(cfg.CICache.BaseURL, cfg.CICache.Token, cfg.CICache.ScratchDir)
	default:
		return nil, fmt.Errorf("vorpal: unknown registry backend %q", cfg.Backend)
	}
}
