// Package vorpal holds the Go binding for vorpal.proto: message types and
// the four gRPC service contracts of spec.md §6.
//
// protoc was not run as part of building this repository (the task
// forbids invoking any toolchain); these types are hand-written against
// vorpal.proto and are wire-compatible through jsonCodec (codec.go) rather
// than the default protobuf wire codec a protoc-gen-go/protoc-gen-go-grpc
// run would produce. See DESIGN.md for the reasoning.
package vorpal

// ArtifactSource mirrors pkg/artifact.ArtifactSource on the wire.
type ArtifactSource struct {
	Name     string   `json:"name" protobuf:"bytes,1,opt,name=name"`
	Path     string   `json:"path" protobuf:"bytes,2,opt,name=path"`
	Includes []string `json:"includes,omitempty" protobuf:"bytes,3,rep,name=includes"`
	Excludes []string `json:"excludes,omitempty" protobuf:"bytes,4,rep,name=excludes"`
	Digest   string   `json:"digest,omitempty" protobuf:"bytes,5,opt,name=digest"`
}

// ArtifactStepSecret is a name-value secret pair (spec.md §3; never logged
// or digested — see pkg/artifact doc comments).
type ArtifactStepSecret struct {
	Name  string `json:"name" protobuf:"bytes,1,opt,name=name"`
	Value string `json:"value" protobuf:"bytes,2,opt,name=value"`
}

// ArtifactStep mirrors pkg/artifact.ArtifactStep on the wire.
type ArtifactStep struct {
	Entrypoint   string               `json:"entrypoint,omitempty" protobuf:"bytes,1,opt,name=entrypoint"`
	Arguments    []string             `json:"arguments,omitempty" protobuf:"bytes,2,rep,name=arguments"`
	Environments []string             `json:"environments,omitempty" protobuf:"bytes,3,rep,name=environments"`
	Dependencies []string             `json:"dependencies,omitempty" protobuf:"bytes,4,rep,name=dependencies"`
	Script       string               `json:"script,omitempty" protobuf:"bytes,5,opt,name=script"`
	Secrets      []ArtifactStepSecret `json:"secrets,omitempty" protobuf:"bytes,6,rep,name=secrets"`
}

// Artifact mirrors pkg/artifact.Artifact on the wire.
type Artifact struct {
	Name    string           `json:"name" protobuf:"bytes,1,opt,name=name"`
	Sources []ArtifactSource `json:"sources,omitempty" protobuf:"bytes,2,rep,name=sources"`
	Steps   []ArtifactStep   `json:"steps,omitempty" protobuf:"bytes,3,rep,name=steps"`
	Systems []string         `json:"systems,omitempty" protobuf:"bytes,4,rep,name=systems"`
	Target  string           `json:"target,omitempty" protobuf:"bytes,5,opt,name=target"`
}

// ArchivePullRequest requests Check/Pull of an archive by digest.
type ArchivePullRequest struct {
	Digest string `json:"digest" protobuf:"bytes,1,opt,name=digest"`
}

// ArchivePullResponse streams archive bytes (≤2 MiB chunks, spec.md §4.6).
type ArchivePullResponse struct {
	Data []byte `json:"data" protobuf:"bytes,1,opt,name=data"`
}

// ArchivePushRequest streams archive bytes up (≤8192-byte chunks per
// spec.md §4.4 step 5); digest and signature must agree across chunks
// (last-wins tolerated, spec.md §6).
type ArchivePushRequest struct {
	Data      []byte `json:"data" protobuf:"bytes,1,opt,name=data"`
	Digest    string `json:"digest" protobuf:"bytes,2,opt,name=digest"`
	Signature []byte `json:"signature" protobuf:"bytes,3,opt,name=signature"`
}

// ArchiveResponse is returned by Check and Push.
type ArchiveResponse struct {
	Digest string `json:"digest" protobuf:"bytes,1,opt,name=digest"`
}

// ArtifactRequest requests GetArtifact by digest.
type ArtifactRequest struct {
	Digest string `json:"digest" protobuf:"bytes,1,opt,name=digest"`
}

// ArtifactResponse is returned by StoreArtifact.
type ArtifactResponse struct {
	Digest string `json:"digest" protobuf:"bytes,1,opt,name=digest"`
}

// ArtifactsRequest requests the (reserved) GetArtifacts enumeration.
type ArtifactsRequest struct{}

// ArtifactsResponse is the (reserved) GetArtifacts enumeration result.
type ArtifactsResponse struct {
	Digests []string `json:"digests,omitempty" protobuf:"bytes,1,rep,name=digests"`
}

// PrepareArtifactResponse streams agent progress (spec.md §4.7). Only the
// terminal message carries both Artifact and ArtifactDigest non-empty.
type PrepareArtifactResponse struct {
	Artifact       *Artifact `json:"artifact,omitempty" protobuf:"bytes,1,opt,name=artifact"`
	ArtifactDigest string    `json:"artifact_digest,omitempty" protobuf:"bytes,2,opt,name=artifact_digest"`
	ArtifactOutput string    `json:"artifact_output,omitempty" protobuf:"bytes,3,opt,name=artifact_output"`
}

// ArtifactBuildRequest names the artifact to build (spec.md §6). The
// artifact is carried inline (not just its digest) so the worker never
// needs a round trip to the artifact store to learn its own steps.
type ArtifactBuildRequest struct {
	Artifact *Artifact `json:"artifact" protobuf:"bytes,1,opt,name=artifact"`
}

// ArtifactBuildResponse streams one worker log line per message (spec.md
// §4.8, §9's bounded-channel back-pressure note). The terminal message of
// a successful build carries Done=true and no Output.
type ArtifactBuildResponse struct {
	Output string `json:"output,omitempty" protobuf:"bytes,1,opt,name=output"`
	Done   bool   `json:"done,omitempty" protobuf:"varint,2,opt,name=done"`
}
