// conf/config.go
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// Channel describes one optical path (shutter + fibre) the server records from.
type Channel struct {
	Shutter       int  // hardware shutter id, -1 means "no hardware"
	Reverse       bool // invert open/close electrical action
	FibreDiameter int  // micrometres, metadata only
}

// SpectrometerLimits bounds the integration time a spectrometer will accept.
type SpectrometerLimits struct {
	MinIntegrationTimeMS int
	MaxIntegrationTimeMS int
}

// Settings is the complete, process-wide Piccolo server configuration.
type Settings struct {
	Debug bool // true to enable debug mode

	Channels      map[string]Channel
	Spectrometers map[string]SpectrometerLimits

	Output struct {
		Clobber   bool   // overwrite existing output files instead of incrementing seq
		Split     bool   // write separate _light/_dark files per cycle
		NotifyURL string // optional shoutrrr URL for bus warning/error forwarding, empty disables it
	}

	JSONRPC struct {
		URL string // listen URL for the JSON-RPC-over-HTTP transport adapter
	}

	Daemon struct {
		Daemon  bool   // true to fork into the background
		PIDFile string // path to write the daemon's pid
	}

	DataDir struct {
		Datadir string // root of the output tree
		Device  string // removable storage device, if any
		Mntpnt  string // mount point for Device
		Mount   bool   // true if Device/Mntpnt should be mounted on startup
	}

	Scheduler struct {
		TickInterval string // dispatcher idle poll period, e.g. "100ms"
		QuietStart   string // "HH:MM", empty means no quiet period
		QuietEnd     string // "HH:MM"
	}

	Log LogConfig
}

// LogConfig configures the rotating structured logger.
type LogConfig struct {
	Path       string // log file path, empty logs to stderr only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads config.yaml (or writes and reads the embedded default) plus
// PICCOLO_* environment overrides into a fresh Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := bindEnvVars(); err != nil {
		log.Printf("environment variable warnings: %v", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths := GetDefaultConfigPaths()

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path.
func createDefaultConfig() error {
	configPaths := GetDefaultConfigPaths()
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance, or nil if not yet loaded.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, loading it on first call.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
