package conf

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfigPathsMatchesPlatform(t *testing.T) {
	paths := GetDefaultConfigPaths()
	require := assert.New(t)
	require.NotEmpty(paths)

	if runtime.GOOS == "windows" {
		require.Contains(paths, ".")
	} else {
		require.Contains(paths, "/etc/piccolo")
	}
}
