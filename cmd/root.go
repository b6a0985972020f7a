// =============================================================================
// EDI Generator - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (edigen)
//   ├── enrollCmd   (edigen enroll)
//   ├── claimCmd    (edigen claim)
//   ├── ledgerCmd   (edigen ledger show)
//   ├── templateCmd (edigen template)
//   └── versionCmd  (edigen version)
//
// The root command loads the main configuration and sets up logging before
// any subcommand runs.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	edilog "github.com/ginjaninja78/edi-enrollment/internal/log"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// mainConfig and logger are set by loadConfig before any subcommand runs.
var (
	mainConfig *config.MainConfig
	logger     logrus.FieldLogger
)

const defaultConfigFile = "config.yaml"

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "edigen",
	Short: "EDI Generator - Build X12 834 enrollment and 837 claim files",
	Long: `edigen turns enrollment and claim import files into ANSI X12 834 benefit
enrollment and 837 professional claim interchanges.

Import files are tab-delimited text or XLSX workbooks whose first row holds
field addresses such as Name.First or Dependents[1].SSN. Every interchange
takes its control numbers from a durable ledger so numbers are never reused.

Example Usage:
  edigen enroll --mode prod --split-groups   # One 834 per group
  edigen claim --input claims.txt            # One 837 per file
  edigen ledger show                         # Print issued control numbers
  edigen template --kind enrollment          # Write a blank import workbook`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// loadConfig reads the main configuration. A missing default config file
// means built-in defaults; a missing file named with --config is an error.
func loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		if cmd.Flags().Changed("config") || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load main config: %w", err)
		}
		cfg = config.DefaultMainConfig()
	}
	mainConfig = cfg

	settings := edilog.Settings{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile}
	if verbose {
		settings.Level = "debug"
	}
	logger = edilog.New(settings, "edigen")
	logger.WithField("config", cfgFile).Debug("Loaded configuration")
	return nil
}
