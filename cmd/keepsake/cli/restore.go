package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/majorcontext/keepsake/internal/chooser"
	"github.com/majorcontext/keepsake/internal/engine"
	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/restore"
	"github.com/majorcontext/keepsake/internal/ui"
)

var (
	restoreLatest bool
	restoreTo     string
	restoreSafety bool
	restoreYes    bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore [SLOT_PATH]",
	Short: "Put a backup slot back where it came from",
	Long: `Replace a folder with the contents of a backup slot.

The destination is the original path recorded in the slot's readme. Its
current contents are deleted first, so pass --safety-backup to keep a copy
you can restore to undo.

Without SLOT_PATH you pick a date and then a copy, newest first. --latest
takes the newest of each without asking.

Use --to to put the slot somewhere else instead, for example to compare
two states side by side.

Examples:
  keepsake restore                                   # Pick interactively
  keepsake restore --latest --safety-backup          # Newest copy, keep a safety backup
  keepsake restore ~/.keepsake/backups/2024-01-15/Foo_copy_2
  keepsake restore --to /tmp/recovery ~/.keepsake/backups/2024-01-15/Foo_copy_2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false, "restore the most recent copy without asking")
	restoreCmd.Flags().StringVar(&restoreTo, "to", "", "restore into this directory instead of the original path")
	restoreCmd.Flags().BoolVar(&restoreSafety, "safety-backup", false, "back up the destination before replacing it")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "do not ask for confirmation")
}

func runRestore(cmd *cobra.Command, args []string) error {
	defer log.Operation("restore")()

	e := newEngine()

	var slotPath string
	switch {
	case len(args) == 1:
		slotPath = args[0]
	case restoreLatest:
		p, err := e.SelectSlot(chooser.Latest{})
		if err != nil {
			return err
		}
		slotPath = p
	default:
		if !interactive() {
			return errors.New("no SLOT_PATH given and stdin is not a terminal; pass a slot or --latest")
		}
		p, err := e.SelectSlot(stdioPrompt())
		if err != nil {
			return err
		}
		slotPath = p
	}

	req := engine.RestoreRequest{Slot: slotPath, To: restoreTo, SafetyBackup: restoreSafety}

	if !dryRun && !restoreYes {
		// Resolve first so the question names the real destination.
		plan, err := restore.Resolve(slotPath)
		if err != nil {
			return err
		}
		dest := plan.Destination
		if restoreTo != "" {
			dest = restoreTo
		}
		if !interactive() {
			return errors.New("restore replaces " + dest + "; pass --yes to confirm when not on a terminal")
		}
		ok, err := stdioPrompt().Confirm(fmt.Sprintf("Replace %s with %s?", shortenPath(dest), plan.SlotPath))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Restore cancelled")
			return nil
		}
	}

	res, err := e.Restore(cmd.Context(), req)
	if jsonOut && err == nil {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	if err != nil {
		if res.Safety != nil {
			ui.Warnf("restore failed; the previous contents are in %s", res.Safety.SlotPath)
		}
		return fmt.Errorf("restore failed: %w", err)
	}

	if res.Planned {
		fmt.Printf("Would replace %s with %s\n", ui.Path(res.Plan.Destination), res.Plan.Source())
		return nil
	}
	if res.Safety != nil {
		fmt.Printf("Safety backup: %s\n", ui.Path(res.Safety.SlotPath))
	}
	fmt.Printf("%s Restored %s to %s\n", ui.OKTag(), ui.Bold(res.Plan.Item), ui.Path(res.Plan.Destination))
	if res.Safety != nil {
		fmt.Printf("\nTo undo: keepsake restore --to %s %s\n", res.Plan.Destination, res.Safety.SlotPath)
	}
	return nil
}
