// Package cmd provides the command-line interface for vmsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

// envPrefix is prepended to the upper-cased flag name to find the
// environment variable that provides its default.
const envPrefix = "VMSIM_"

// NewRootCommand creates the vmsim command with all its subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vmsim",
		Short: "vmsim simulates a paged virtual memory backed by a swap file.",
		Long: `vmsim simulates a memory management unit that translates ` +
			`virtual addresses into a small physical memory, loading pages ` +
			`from a swap file on demand and writing dirty pages back when ` +
			`their frames are reused.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")

			err := loadEnvFile(envFile)
			if err != nil {
				return err
			}

			return applyEnv(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().String("env-file", ".env",
		"File of VMSIM_* variables providing flag defaults.")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newMkswapCommand())
	rootCmd.AddCommand(newInspectCommand())

	return rootCmd
}

// Execute runs the command line and exits. Functions registered with atexit
// run before the process ends.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadEnvFile loads the variables of a .env file into the environment. A
// missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// envName returns the environment variable of a flag, VMSIM_MEM_SIZE for
// --mem-size.
func envName(flagName string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// applyEnv sets every flag not given on the command line from its
// environment variable, if there is one.
func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "env-file" {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		setErr := flags.Set(f.Name, value)
		if setErr != nil {
			err = fmt.Errorf("invalid %s: %w", envName(f.Name), setErr)
		}
	})

	return err
}
