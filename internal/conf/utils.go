// conf/utils.go
package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml, in
// priority order, for the current operating system.
func GetDefaultConfigPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return []string{"."}
	}

	switch runtime.GOOS {
	case "windows":
		return []string{
			".",
			filepath.Join(homeDir, "AppData", "Roaming", "piccolo"),
		}
	default:
		return []string{
			filepath.Join(homeDir, ".config", "piccolo"),
			"/etc/piccolo",
		}
	}
}
