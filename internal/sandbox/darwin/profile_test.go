//go:build darwin

package darwin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderProfileDeniesNetworkAndAllowsPaths(t *testing.T) {
	profile, err := renderProfile(profileData{
		ReadOnlyPaths:  []string{"/store/rootfs"},
		ReadWritePaths: []string{"/sandbox/1"},
	})
	require.NoError(t, err)
	require.Contains(t, profile, "(deny default)")
	require.Contains(t, profile, "(deny network*)")
	require.True(t, strings.Contains(profile, `(allow file-read* (subpath "/store/rootfs"))`))
	require.True(t, strings.Contains(profile, `(allow file-write* (subpath "/sandbox/1"))`))
}
