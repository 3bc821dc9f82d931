// Piccolo is the control core for a field spectrometer server: it
// orchestrates shutters, spectrometers, and the recording state machine,
// and exposes a command surface transport adapters submit to.
package main

import (
	"fmt"
	"os"

	"github.com/piccolo2go/piccolo/cmd"
	"github.com/piccolo2go/piccolo/internal/conf"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
