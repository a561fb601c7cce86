package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vorpal-build/vorpal/pkg/config"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vorpal.yaml")

	_, err := execRoot(t, "init", "--config", cfgPath, "--store", filepath.Join(dir, "store"))
	require.NoError(t, err)
	require.FileExists(t, cfgPath)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, config.CurrentVersion, cfg.Version)
}

func TestInitRefusesToOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vorpal.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: \"0.1\"\n"), 0o644))

	_, err := execRoot(t, "init", "--config", cfgPath)
	require.Error(t, err)
}

func TestKeygenWritesKeypair(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "vorpal.yaml")
	storeRoot := filepath.Join(dir, "store")

	_, err := execRoot(t, "init", "--config", cfgPath, "--store", storeRoot)
	require.NoError(t, err)

	_, err = execRoot(t, "keygen", "--config", cfgPath)
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(storeRoot, "key", "private.pem"))
	require.FileExists(t, filepath.Join(storeRoot, "key", "public.pem"))
}
