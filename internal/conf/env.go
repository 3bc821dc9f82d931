// env.go - Environment variable configuration and validation for the Piccolo server.
package conf

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for one environment variable binding.
type envBinding struct {
	ConfigKey string             // viper config key
	EnvVar    string             // environment variable name
	Validate  func(string) error // optional validation function
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"output.clobber", "PICCOLO_OUTPUT_CLOBBER", nil},
		{"output.split", "PICCOLO_OUTPUT_SPLIT", nil},
		{"output.notifyurl", "PICCOLO_OUTPUT_NOTIFYURL", nil},
		{"jsonrpc.url", "PICCOLO_JSONRPC_URL", validateEnvURL},
		{"daemon.daemon", "PICCOLO_DAEMON", nil},
		{"daemon.pidfile", "PICCOLO_PIDFILE", validateEnvPath},
		{"datadir.datadir", "PICCOLO_DATADIR", validateEnvPath},
		{"datadir.mount", "PICCOLO_DATADIR_MOUNT", nil},
		{"scheduler.tickinterval", "PICCOLO_SCHEDULER_TICK", validateEnvDuration},
		{"scheduler.quietstart", "PICCOLO_QUIET_START", validateEnvTimeOfDay},
		{"scheduler.quietend", "PICCOLO_QUIET_END", validateEnvTimeOfDay},
	}
}

// bindEnvVars binds every known environment variable to its viper key and
// validates any value that is currently set.
func bindEnvVars() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("PICCOLO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvURL(value string) error {
	if !strings.Contains(value, "://") {
		return fmt.Errorf("must be a URL, e.g. http://host:port")
	}
	return nil
}

func validateEnvDuration(value string) error {
	if value == "" {
		return fmt.Errorf("must not be empty")
	}
	for _, r := range value {
		if (r < '0' || r > '9') && r != '.' && r != 'n' && r != 'u' && r != 'm' && r != 's' && r != 'h' {
			return fmt.Errorf("must look like a Go duration, e.g. 100ms")
		}
	}
	return nil
}

func validateEnvTimeOfDay(value string) error {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return fmt.Errorf("must be HH:MM")
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("must be a valid HH:MM time of day")
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.Contains(value, "..") {
		return fmt.Errorf("path traversal not allowed")
	}
	return nil
}
