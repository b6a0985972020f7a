package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/edi-enrollment/internal/config"
	"github.com/ginjaninja78/edi-enrollment/internal/converter"
	"github.com/ginjaninja78/edi-enrollment/internal/xlsxparser"
)

var (
	templateKind  string
	templateOut   string
	templateItems int
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a blank XLSX import workbook",
	Long: `The template command writes a workbook with one column per importable
field: the field address in row 1, then a description, required/optional and
the maximum length. Data goes from row 5.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if templateKind != config.KindEnrollment && templateKind != config.KindClaim {
			return fmt.Errorf("--kind must be %q or %q", config.KindEnrollment, config.KindClaim)
		}
		out := templateOut
		if out == "" {
			out = templateKind + "_template.xlsx"
		}

		columns := converter.TemplateGuidance(templateKind, templateItems)
		if err := xlsxparser.WriteTemplate(out, "Import", columns); err != nil {
			return err
		}
		fmt.Printf("Wrote %d columns to %s\n", len(columns), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)

	templateCmd.Flags().StringVar(&templateKind, "kind", config.KindEnrollment, "enrollment or claim")
	templateCmd.Flags().StringVarP(&templateOut, "output", "o", "", "Workbook to write (default: <kind>_template.xlsx)")
	templateCmd.Flags().IntVar(&templateItems, "items", 2, "Columns per dependent, beneficiary or service")
}
