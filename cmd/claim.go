package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/edi-enrollment/internal/converter"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Generate 837 professional claim files",
	Long: `The claim command reads claim import files and writes one 837
interchange per file. The billing provider is the submitter section of the
configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClaim()
	},
}

func init() {
	rootCmd.AddCommand(claimCmd)

	claimCmd.Flags().StringSliceVar(&inputFiles, "input", nil, "Import file to process (default: every file in input_dir)")
	claimCmd.Flags().StringVar(&modeName, "mode", "test", "Usage indicator: test or prod")
	claimCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Assemble without writing files or saving control numbers")
}

func runClaim() error {
	startTime := time.Now()

	mode, err := parseMode()
	if err != nil {
		return err
	}

	conv, err := newConverter()
	if err != nil {
		return err
	}
	inputs, err := resolveInputs(conv)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println("No import files found in the input directory.")
		return nil
	}

	results, err := conv.Claim(inputs, converter.ClaimRun{Mode: mode, DryRun: dryRun})
	if err != nil {
		return err
	}

	return printSummary("Claims", inputs, results, time.Since(startTime))
}
