package os_test

import (
	"os"
	"path/filepath"
	"testing"

	osutil "github.com/ostafen/gifkit/pkg/util/os"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames", "out")

	created, err := osutil.EnsureDir(dir, true)
	require.NoError(t, err)
	require.True(t, created)

	created, err = osutil.EnsureDir(dir, true)
	require.NoError(t, err)
	require.False(t, created)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame-0.png"), nil, 0644))

	_, err = osutil.EnsureDir(dir, true)
	require.Error(t, err)

	_, err = osutil.EnsureDir(dir, false)
	require.NoError(t, err)

	_, err = osutil.EnsureDir(filepath.Join(dir, "frame-0.png"), false)
	require.Error(t, err)
}
