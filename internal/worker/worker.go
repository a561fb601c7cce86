// Package worker implements the WorkerService of spec.md §4.8: given a
// resolved artifact, materialize its dependencies and sources on disk, run
// its steps sequentially in a sandbox.Driver, and publish the resulting
// output tree to the registry under its digest.
package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vorpal-build/vorpal/internal/sandbox"
	"github.com/vorpal-build/vorpal/pkg/archive"
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
	"github.com/vorpal-build/vorpal/pkg/keys"
	"github.com/vorpal-build/vorpal/pkg/store"
	"github.com/vorpal-build/vorpal/pkg/vlog"
	"github.com/vorpal-build/vorpal/pkg/vorpalerr"
	"github.com/vorpal-build/vorpal/proto/vorpal"
)

// ArchiveClient is the subset of the registry's ArchiveService the worker
// needs to pull a declared source's archive and push its finished output,
// narrow for the same testability reason pkg/source.ArchiveClient is.
type ArchiveClient interface {
	CheckArchive(ctx context.Context, d digest.Digest) (bool, error)
	PushArchive(ctx context.Context, d digest.Digest, signature, data []byte) error
	PullArchive(ctx context.Context, d digest.Digest) ([]byte, error)
}

// Worker implements vorpal.WorkerServiceServer.
type Worker struct {
	Paths     store.Paths
	Keys      *keys.KeyStore
	Registry  ArchiveClient
	Driver    sandbox.Driver
	RootfsDir string
}

// New constructs a Worker.
func New(paths store.Paths, ks *keys.KeyStore, registry ArchiveClient, driver sandbox.Driver, rootfsDir string) *Worker {
	return &Worker{Paths: paths, Keys: ks, Registry: registry, Driver: driver, RootfsDir: rootfsDir}
}

var _ vorpal.WorkerServiceServer = (*Worker)(nil)

// Build runs req.Artifact's steps to completion, streaming log lines and a
// terminal Done marker to stream.
func (w *Worker) Build(req *vorpal.ArtifactBuildRequest, stream vorpal.WorkerService_BuildServer) error {
	ctx := stream.Context()
	art := vorpal.ToArtifact(req.Artifact)

	dg, err := artifact.Digest(art)
	if err != nil {
		return vorpalerr.New(vorpalerr.UnknownSourceKind, "digest artifact: %v", err).Status()
	}
	log := vlog.GetLogger(ctx).WithField("digest", dg)

	outputDir := w.Paths.OutputDir(dg)
	if _, err := os.Stat(outputDir); err == nil {
		return vorpalerr.New(vorpalerr.StepFailed, "output already exists for %s, caller should have pulled", dg).Status()
	}

	deps, err := w.resolveDependencies(art)
	if err != nil {
		return vorpalerr.ToStatus(err)
	}

	lockPath := w.Paths.Lock(dg)
	if err := acquireLock(lockPath); err != nil {
		return vorpalerr.New(vorpalerr.Busy, "acquire lock for %s: %v", dg, err).Status()
	}
	defer releaseLock(lockPath)

	sandboxID := uuid.NewString()
	sandboxDir := w.Paths.Sandbox(sandboxID)
	if err := os.MkdirAll(sandboxDir, 0o755); err != nil {
		return vorpalerr.New(vorpalerr.IO, "create sandbox dir: %v", err).Status()
	}
	defer os.RemoveAll(sandboxDir)

	send := func(line string) error {
		return stream.Send(&vorpal.ArtifactBuildResponse{Output: line})
	}

	for _, src := range art.Sources {
		sourceDir := filepath.Join(sandboxDir, "source", src.Name)
		if err := os.MkdirAll(sourceDir, 0o755); err != nil {
			return vorpalerr.New(vorpalerr.IO, "create source dir: %v", err).Status()
		}
		if err := send(fmt.Sprintf("materialize: source/%s", src.Name)); err != nil {
			return err
		}
		if err := w.materializeSource(ctx, src.Digest, sourceDir); err != nil {
			return vorpalerr.ToStatus(err)
		}
	}

	outputTmp := filepath.Join(sandboxDir, "output")
	if err := os.MkdirAll(outputTmp, 0o755); err != nil {
		return vorpalerr.New(vorpalerr.IO, "create output dir: %v", err).Status()
	}

	for i, step := range art.Steps {
		if err := send(fmt.Sprintf("step %d: %s", i, step.Entrypoint)); err != nil {
			return err
		}
		if err := w.runStep(ctx, i, step, sandboxDir, outputTmp, deps, send); err != nil {
			return vorpalerr.ToStatus(err)
		}
	}

	if err := store.SetTimestamps(outputTmp); err != nil {
		return vorpalerr.New(vorpalerr.IO, "normalize timestamps: %v", err).Status()
	}

	if err := w.publishOutput(ctx, dg, outputTmp, send); err != nil {
		return vorpalerr.ToStatus(err)
	}

	log.Debug("build complete")
	return stream.Send(&vorpal.ArtifactBuildResponse{Done: true})
}

// resolveDependencies locates each dependency's already-materialized
// output tree on disk (precondition 2, spec.md §4.8): missing any one is
// fatal and indicates a scheduler ordering bug.
func (w *Worker) resolveDependencies(art artifact.Artifact) ([]sandbox.Dependency, error) {
	var deps []sandbox.Dependency
	for _, d := range art.DependencyDigests() {
		path := w.Paths.OutputDir(d)
		if _, err := os.Stat(path); err != nil {
			return nil, vorpalerr.New(vorpalerr.MissingDependency, "dependency %s not materialized locally", d)
		}
		deps = append(deps, sandbox.Dependency{Digest: d.String(), Path: path})
	}
	return deps, nil
}

// materializeSource pulls a source's archive (reusing a local copy if
// present) and unpacks it into dir.
func (w *Worker) materializeSource(ctx context.Context, dg digest.Digest, dir string) error {
	archivePath := w.Paths.Archive(dg)
	if data, err := os.ReadFile(archivePath); err == nil {
		return archive.UnpackZstd(bytes.NewReader(data), dir)
	}
	data, err := w.Registry.PullArchive(ctx, dg)
	if err != nil {
		return fmt.Errorf("worker: pull source %s: %w", dg, err)
	}
	return archive.UnpackZstd(bytes.NewReader(data), dir)
}

// runStep writes the step's inline script to a temp executable file (if
// present), composes its environment, and runs it in the sandbox driver.
func (w *Worker) runStep(ctx context.Context, index int, step artifact.ArtifactStep, sandboxDir, outputDir string, deps []sandbox.Dependency, send func(string) error) error {
	args := append([]string(nil), step.Arguments...)
	if step.Script != "" {
		scriptPath := filepath.Join(sandboxDir, fmt.Sprintf("step-%d-script", index))
		if err := os.WriteFile(scriptPath, []byte(step.Script), 0o755); err != nil {
			return fmt.Errorf("worker: write step script: %w", err)
		}
		args = append(args, scriptPath)
	}

	var secrets []string
	for _, s := range step.Secrets {
		secrets = append(secrets, s.Name+"="+s.Value)
	}

	spec := sandbox.Spec{
		SandboxRoot:  sandboxDir,
		OutputDir:    outputDir,
		RootfsDir:    w.RootfsDir,
		Dependencies: deps,
		Entrypoint:   step.Entrypoint,
		Arguments:    args,
		Environments: step.Environments,
		Secrets:      secrets,
	}

	stdout := &lineWriter{send: send}
	stderr := &lineWriter{send: send}

	exitCode, err := w.Driver.Run(ctx, spec, stdout, stderr)
	if err != nil {
		return fmt.Errorf("worker: run step %d: %w", index, err)
	}
	if exitCode != 0 {
		return vorpalerr.NewStepFailed(index, exitCode)
	}
	return nil
}

// publishOutput packs, signs, pushes, and unpacks the output tree into its
// final store location, per spec.md §4.8 step 6.
func (w *Worker) publishOutput(ctx context.Context, dg digest.Digest, outputTmp string, send func(string) error) error {
	// GetFilePaths errors on an empty tree (spec.md example 1: a step that
	// never writes to VORPAL_OUTPUT leaves it empty, which is valid), so an
	// empty output is packed as a zero-entry archive rather than an error.
	files, err := store.GetFilePaths(outputTmp, nil, nil)
	if err != nil {
		files = nil
	}

	if err := send("pack: output"); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := archive.PackZstd(outputTmp, files, &buf, archive.DefaultPackOptions()); err != nil {
		return fmt.Errorf("worker: pack output: %w", err)
	}

	sig, err := w.Keys.Sign(buf.Bytes())
	if err != nil {
		return fmt.Errorf("worker: sign output: %w", err)
	}

	if err := send("push: output"); err != nil {
		return err
	}
	if err := w.Registry.PushArchive(ctx, dg, sig, buf.Bytes()); err != nil {
		return fmt.Errorf("worker: push output: %w", err)
	}

	finalDir := w.Paths.OutputDir(dg)
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return fmt.Errorf("worker: create final output dir: %w", err)
	}
	if err := archive.UnpackZstd(bytes.NewReader(buf.Bytes()), finalDir); err != nil {
		return fmt.Errorf("worker: unpack final output: %w", err)
	}
	return nil
}

// lineWriter adapts the send callback to io.Writer, splitting on newlines
// so each Build response carries exactly one log line.
type lineWriter struct {
	send func(string) error
	buf  []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if err := w.send(line); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func acquireLock(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}

func releaseLock(path string) {
	_ = os.Remove(path)
}
