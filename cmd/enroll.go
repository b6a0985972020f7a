// =============================================================================
// EDI Generator - Enroll Command
// =============================================================================
//
// COMMAND USAGE:
//   edigen enroll [flags]
//
// FLAGS:
//   --input             : Import file to process (repeatable)
//   --mode              : test or prod
//   --group             : Only accept enrollees of this group
//   --split-groups      : One interchange per group id
//   --combined          : With --split-groups, also an all-groups interchange
//   --no-dependents     : Leave out dependent loops
//   --no-beneficiaries  : Leave out beneficiary loops
//   --dry-run           : Assemble without writing anything
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/edi-enrollment/internal/converter"
)

var (
	groupID         string
	splitGroups     bool
	combined        bool
	noDependents    bool
	noBeneficiaries bool
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Generate 834 benefit enrollment files",
	Long: `The enroll command reads enrollment import files and writes one 834
interchange per file, or one per group with --split-groups.

Enrollees are sent while active, for 30 days after termination (see
recent_term_days), and before their effective date. Terminated enrollees are
sent as cancellations.

On success the import file moves to the input archive (archive_inputs). On a
validation error an error log is written to the output directory and the
import file stays where it is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll()
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().StringSliceVar(&inputFiles, "input", nil, "Import file to process (default: every file in input_dir)")
	enrollCmd.Flags().StringVar(&modeName, "mode", "test", "Usage indicator: test or prod")
	enrollCmd.Flags().StringVar(&groupID, "group", "", "Reject enrollees outside this group id")
	enrollCmd.Flags().BoolVar(&splitGroups, "split-groups", false, "Write one interchange per group id")
	enrollCmd.Flags().BoolVar(&combined, "combined", false, "With --split-groups, also write an all-groups interchange")
	enrollCmd.Flags().BoolVar(&noDependents, "no-dependents", false, "Leave out dependent loops")
	enrollCmd.Flags().BoolVar(&noBeneficiaries, "no-beneficiaries", false, "Leave out beneficiary loops")
	enrollCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Assemble without writing files or saving control numbers")
}

func runEnroll() error {
	startTime := time.Now()

	mode, err := parseMode()
	if err != nil {
		return err
	}
	if splitGroups && groupID != "" {
		return fmt.Errorf("--split-groups and --group cannot be combined")
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
	fmt.Printf("Found %d file(s) to process\n", len(inputs))

	results, err := conv.Enroll(inputs, converter.EnrollmentRun{
		Mode:                 mode,
		GroupID:              groupID,
		SplitGroups:          splitGroups,
		Combined:             combined,
		IncludeDependents:    !noDependents,
		IncludeBeneficiaries: !noBeneficiaries,
		DryRun:               dryRun,
	})
	if err != nil {
		return err
	}

	return printSummary("Enrollment", inputs, results, time.Since(startTime))
}
