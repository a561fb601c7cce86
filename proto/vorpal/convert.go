package vorpal

import (
	"github.com/vorpal-build/vorpal/pkg/artifact"
	"github.com/vorpal-build/vorpal/pkg/digest"
)

// FromArtifact converts the in-memory artifact type to its wire form,
// including secrets (only ever sent agent-ward/worker-ward over a private
// connection, never persisted — see pkg/artifact's doc comments).
func FromArtifact(a artifact.Artifact) *Artifact {
	out := &Artifact{
		Name:   a.Name,
		Target: string(a.Target),
	}
	for _, s := range a.Systems {
		out.Systems = append(out.Systems, string(s))
	}
	for _, src := range a.Sources {
		out.Sources = append(out.Sources, ArtifactSource{
			Name:     src.Name,
			Path:     src.Path,
			Includes: src.Includes,
			Excludes: src.Excludes,
			Digest:   src.Digest.String(),
		})
	}
	for _, step := range a.Steps {
		wireStep := ArtifactStep{
			Entrypoint:   step.Entrypoint,
			Arguments:    step.Arguments,
			Environments: step.Environments,
			Script:       step.Script,
		}
		for _, d := range step.Dependencies {
			wireStep.Dependencies = append(wireStep.Dependencies, d.String())
		}
		for _, s := range step.Secrets {
			wireStep.Secrets = append(wireStep.Secrets, ArtifactStepSecret{Name: s.Name, Value: s.Value})
		}
		out.Steps = append(out.Steps, wireStep)
	}
	return out
}

// ToArtifact converts a wire Artifact back to the in-memory type.
func ToArtifact(w *Artifact) artifact.Artifact {
	a := artifact.Artifact{
		Name:   w.Name,
		Target: artifact.System(w.Target),
	}
	for _, s := range w.Systems {
		a.Systems = append(a.Systems, artifact.System(s))
	}
	for _, src := range w.Sources {
		a.Sources = append(a.Sources, artifact.ArtifactSource{
			Name:     src.Name,
			Path:     src.Path,
			Includes: src.Includes,
			Excludes: src.Excludes,
			Digest:   digest.Digest(src.Digest),
		})
	}
	for _, step := range w.Steps {
		memStep := artifact.ArtifactStep{
			Entrypoint:   step.Entrypoint,
			Arguments:    step.Arguments,
			Environments: step.Environments,
			Script:       step.Script,
		}
		for _, d := range step.Dependencies {
			memStep.Dependencies = append(memStep.Dependencies, digest.Digest(d))
		}
		for _, s := range step.Secrets {
			memStep.Secrets = append(memStep.Secrets, artifact.Secret{Name: s.Name, Value: s.Value})
		}
		a.Steps = append(a.Steps, memStep)
	}
	return a
}
