package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/ui"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every slot can be restored",
	Long: `Check every backup slot for exactly one readable readme and the backed-up
folder it points to. Exits non-zero when any slot is incomplete.

Slots are left as they are; remove broken ones by hand.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	defer log.Operation("verify")()

	slots, err := newEngine().Verify()
	if err != nil {
		return err
	}

	bad := 0
	for _, s := range slots {
		if !s.Complete {
			bad++
		}
	}

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(slots); err != nil {
			return err
		}
	} else {
		for _, s := range slots {
			if s.Complete {
				fmt.Printf("%s %s\n", ui.OKTag(), s.Path)
				continue
			}
			fmt.Printf("%s %s\n    %s\n", ui.FailTag(), s.Path, ui.Dim(s.Problem))
		}
		fmt.Printf("\n%d slots checked, %d incomplete\n", len(slots), bad)
	}

	if bad > 0 {
		log.Warn("incomplete slots found", "count", bad)
		return fmt.Errorf("%d incomplete slots", bad)
	}
	return nil
}
