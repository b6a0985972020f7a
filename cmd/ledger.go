package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/edi-enrollment/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the control number ledger",
}

var ledgerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every control number key and its last issued value",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := ledger.OpenStore(mainConfig.Ledger.Backend, mainConfig.Ledger.Path)
		if err != nil {
			return err
		}
		defer closeStore()

		book, err := ledger.New(store, ledger.WithLogger(logger))
		if err != nil {
			return err
		}

		keys := book.Keys()
		if len(keys) == 0 {
			fmt.Printf("No control numbers issued yet (%s)\n", mainConfig.Ledger.Path)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tLAST ISSUED")
		for _, key := range keys {
			fmt.Fprintf(w, "%s\t%d\n", key, book.Peek(key))
		}
		return w.Flush()
	},
}

func init() {
	ledgerCmd.AddCommand(ledgerShowCmd)
	rootCmd.AddCommand(ledgerCmd)
}
