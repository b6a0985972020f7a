// =============================================================================
// EDI Generator - Processing Helpers
// =============================================================================
//
// This file holds what the enroll and claim commands share:
//   1. Building the converter from configuration and import profiles
//   2. Resolving input files (--input or the input directory)
//   3. Printing the summary report
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/converter"
	"github.com/ginjaninja78/edi-enrollment/internal/x12"
)

// =============================================================================
// SHARED FLAGS
// =============================================================================

// inputFiles are explicit import files. Empty means every file in the input
// directory.
var inputFiles []string

// modeName is "test" or "prod".
var modeName string

// dryRun assembles without writing files or saving control numbers.
var dryRun bool

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newConverter builds a converter from the loaded configuration.
func newConverter() (*converter.Converter, error) {
	if err := mainConfig.EnsureDirectories(); err != nil {
		return nil, err
	}

	profiles, err := config.LoadImportProfiles(mainConfig.ProfilesDir, mainConfig.Import)
	if err != nil {
		return nil, fmt.Errorf("failed to load import profiles: %w", err)
	}
	logger.Debugf("Loaded %d import profile(s)", len(profiles))

	source, err := converter.NewSource(mainConfig, profiles, logger)
	if err != nil {
		return nil, err
	}
	return converter.New(mainConfig, source, logger), nil
}

// resolveInputs returns the files to process.
func resolveInputs(conv *converter.Converter) ([]string, error) {
	files, err := conv.DiscoverInputs(inputFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	return files, nil
}

func parseMode() (x12.Mode, error) {
	return x12.ParseMode(modeName)
}

// printSummary reports each file and returns an error if any failed.
func printSummary(title string, inputs []string, results []converter.Result, elapsed time.Duration) error {
	var errorCount int
	for _, result := range results {
		if result.Success {
			for _, out := range result.OutputFiles {
				fmt.Printf("  ✓ %s -> %s\n", filepath.Base(result.FilePath), out)
			}
			continue
		}
		errorCount++
		fmt.Printf("  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
		if result.ErrorLog != "" {
			fmt.Printf("    see %s\n", result.ErrorLog)
		}
	}

	fmt.Printf("\n=== %s Complete ===\n", title)
	fmt.Printf("Total files:     %d\n", len(inputs))
	fmt.Printf("Successful:      %d\n", len(results)-errorCount)
	fmt.Printf("Errors:          %d\n", errorCount)
	fmt.Printf("Time elapsed:    %s\n", elapsed)
	if dryRun {
		fmt.Println("Dry run: no files written, no control numbers saved.")
	}

	if errorCount > 0 {
		return fmt.Errorf("%d of %d file(s) failed", errorCount, len(inputs))
	}
	return nil
}
