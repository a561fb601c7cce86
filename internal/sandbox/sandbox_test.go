package sandbox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComposeEnvDefaultPath(t *testing.T) {
	spec := Spec{
		SandboxRoot: "/sandbox/1",
		OutputDir:   "/sandbox/1/output",
		Dependencies: []Dependency{
			{Digest: "sha256:bbb", Path: "/store/sha256:bbb"},
			{Digest: "sha256:aaa", Path: "/store/sha256:aaa"},
		},
	}

	env := ComposeEnv(spec)

	m := toMap(env)
	require.Equal(t, "/sandbox/1", m["VORPAL_WORKSPACE"])
	require.Equal(t, "/sandbox/1/output", m["VORPAL_OUTPUT"])
	require.Equal(t, "/store/sha256:aaa", m["VORPAL_ARTIFACT_sha256_aaa"])
	require.Equal(t, "/store/sha256:bbb", m["VORPAL_ARTIFACT_sha256_bbb"])
	require.Equal(t, "/store/sha256:aaa/bin:/store/sha256:bbb/bin:/usr/local/bin:/usr/bin:/usr/sbin:/bin:/sbin", m["PATH"])
}

func TestComposeEnvPathOverridePrepends(t *testing.T) {
	spec := Spec{
		SandboxRoot:  "/sandbox/1",
		OutputDir:    "/sandbox/1/output",
		Environments: []string{"PATH=/custom/bin", "FOO=bar"},
	}

	env := ComposeEnv(spec)
	m := toMap(env)

	require.Equal(t, "/custom/bin:/usr/local/bin:/usr/bin:/usr/sbin:/bin:/sbin", m["PATH"])
	require.Equal(t, "bar", m["FOO"])
}

func TestComposeEnvIncludesSecretsUnmodified(t *testing.T) {
	spec := Spec{
		SandboxRoot: "/sandbox/1",
		OutputDir:   "/sandbox/1/output",
		Secrets:     []string{"TOKEN=s3cr3t"},
	}

	env := ComposeEnv(spec)
	m := toMap(env)
	require.Equal(t, "s3cr3t", m["TOKEN"])
}

func toMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		name, value, ok := splitEnv(kv)
		if ok {
			m[name] = value
		}
	}
	return m
}
