package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/majorcontext/keepsake/internal/catalog"
	"github.com/majorcontext/keepsake/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List backup slots",
	Long: `List every backup slot under the backup root, newest date first and
newest copy first within a date.

Examples:
  keepsake list          # Table of slots
  keepsake list --json   # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	slots, err := catalog.ListAll(cfg.BackupRoot)
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode([]catalog.Slot{})
		}
		fmt.Printf("No backups in %s\n", shortenPath(cfg.BackupRoot))
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(slots)
	}
	printSlots(slots)
	return nil
}

func printSlots(slots []catalog.Slot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tNAME\tCOPY\tMODIFIED\tSTATUS")
	for _, s := range slots {
		status := "ok"
		if !s.Complete {
			status = "incomplete: " + truncate(s.Problem, 60)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.Bucket,
			s.Item,
			s.Ordinal,
			formatAge(s.ModTime),
			status,
		)
	}
	w.Flush()
	fmt.Printf("\nBackup root: %s\n", ui.Path(shortenPath(cfg.BackupRoot)))
}
