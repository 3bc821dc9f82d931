// root.go viper root command code
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/piccolo2go/piccolo/cmd/serve"
	"github.com/piccolo2go/piccolo/internal/conf"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "piccolo",
		Short: "Piccolo field spectrometer control core",
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		log.Printf("error setting up flags: %v\n", err)
	}

	serveCmd := serve.Command(settings)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initialize(); err != nil {
			return fmt.Errorf("error initializing: %w", err)
		}
		return nil
	}

	return rootCmd
}

// initialize is called before any subcommand runs, once the context is ready.
func initialize() error {
	return nil
}

// setupFlags defines flags global to the command line interface.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&settings.Output.Clobber, "clobber", viper.GetBool("output.clobber"), "Overwrite existing output files instead of incrementing the sequence number")
	rootCmd.PersistentFlags().BoolVar(&settings.Output.Split, "split", viper.GetBool("output.split"), "Write separate light/dark output files")
	rootCmd.PersistentFlags().StringVar(&settings.DataDir.Datadir, "datadir", viper.GetString("datadir.datadir"), "Root directory for spectra output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
