package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/majorcontext/keepsake/internal/catalog"
	"github.com/majorcontext/keepsake/internal/engine"
	"github.com/majorcontext/keepsake/internal/log"
	"github.com/majorcontext/keepsake/internal/ui"
)

var (
	backupName       string
	backupMessage    string
	backupAllSource  string
	backupAllMessage string
)

var backupCmd = &cobra.Command{
	Use:   "backup [SOURCE]",
	Short: "Back up a folder into today's bucket",
	Long: `Back up a folder into the next free slot of today's bucket.

SOURCE is a folder, or a .sln file standing for the folder that holds it.
Without SOURCE you are asked to pick a folder under source_root, most
recently modified first.

Examples:
  keepsake backup ~/src/Foo -m "parser rewrite, next: wire CLI"
  keepsake backup ~/src/Foo/Foo.sln
  keepsake backup --dry-run ~/src/Foo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

var backupAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Back up every folder under the source root",
	Long: `Back up every folder directly under the source root, one after another.

The run stops at the first failure; backups already written are kept.`,
	Args: cobra.NoArgs,
	RunE: runBackupAll,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupAllCmd)

	backupCmd.Flags().StringVar(&backupName, "name", "", "store the backup under this name instead of the folder name")
	backupCmd.Flags().StringVarP(&backupMessage, "message", "m", "", "description of changes and next steps")
	backupAllCmd.Flags().StringVar(&backupAllSource, "source-root", "", "folder whose subfolders are backed up (default: source_root)")
	backupAllCmd.Flags().StringVarP(&backupAllMessage, "message", "m", "", "description stored with every backup")
}

func runBackup(cmd *cobra.Command, args []string) error {
	defer log.Operation("backup")()

	var source string
	if len(args) == 1 {
		source = args[0]
	} else {
		picked, err := pickSource()
		if err != nil {
			return err
		}
		source = picked
	}

	description := backupMessage
	if description == "" && !cmd.Flags().Changed("message") && interactive() && !dryRun {
		_, item, err := engine.ResolveSource(source)
		if err != nil {
			return err
		}
		if backupName != "" {
			item = backupName
		}
		description, err = stdioPrompt().ReadLine(fmt.Sprintf("Description of changes and next steps for %q", item), "")
		if err != nil {
			return err
		}
	}

	e := newEngine()
	res, err := e.Backup(cmd.Context(), engine.BackupRequest{
		Source:      source,
		Item:        backupName,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	printBackup(res)
	return nil
}

func runBackupAll(cmd *cobra.Command, args []string) error {
	defer log.Operation("backup-all")()

	sourceRoot := backupAllSource
	if sourceRoot == "" {
		sourceRoot = cfg.SourceRoot
	}
	if sourceRoot == "" {
		return errors.New("no source root: pass --source-root or set source_root in the config")
	}

	e := newEngine()
	results, err := e.BackupAll(cmd.Context(), sourceRoot, backupAllMessage)
	if jsonOut {
		if encErr := json.NewEncoder(os.Stdout).Encode(results); encErr != nil {
			return encErr
		}
	} else {
		for _, r := range results {
			printBackup(r)
		}
	}
	if err != nil {
		return fmt.Errorf("backup all stopped after %d backups: %w", len(results), err)
	}
	if !jsonOut {
		fmt.Printf("\n%d folders backed up\n", len(results))
	}
	return nil
}

// pickSource asks for a folder under the source root.
func pickSource() (string, error) {
	if !interactive() {
		return "", errors.New("no SOURCE given and stdin is not a terminal")
	}
	p := stdioPrompt()

	root := cfg.SourceRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root, err = p.ReadLine("Source root", cwd)
		if err != nil {
			return "", err
		}
	}

	folders, err := catalog.ListFolders(root)
	if err != nil {
		return "", err
	}
	i, err := p.Choose("Folders in "+shortenPath(root)+":", catalog.Names(folders))
	if err != nil {
		return "", err
	}
	return folders[i].Path, nil
}

func printBackup(r engine.BackupResult) {
	if r.Planned {
		fmt.Printf("Would back up %s to %s\n", shortenPath(r.Source), ui.Path(r.SlotPath))
		return
	}
	fmt.Printf("%s Backed up %s to %s\n", ui.OKTag(), ui.Bold(r.Item), ui.Path(r.SlotPath))
}
