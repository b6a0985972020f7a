// =============================================================================
// EDI Generator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the edigen CLI. It delegates to the cmd
// package.
//
// USAGE:
//   edigen enroll        - Generate 834 enrollment files
//   edigen claim         - Generate 837 claim files
//   edigen ledger show   - Print issued control numbers
//   edigen template      - Write a blank import workbook
//   edigen version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Import, validation, X12 assembly and the ledger
//   - pkg/           : Shared file utilities
//   - profiles/      : Per-source import profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/edi-enrollment/cmd"
)

func main() {
	cmd.Execute()
}
