// Package cli implements the keepsake command-line interface using Cobra.
// It provides commands to back up directory trees into dated slots, list
// and verify those slots, and restore one back over its original location.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/majorcontext/keepsake/internal/chooser"
	"github.com/majorcontext/keepsake/internal/config"
	"github.com/majorcontext/keepsake/internal/engine"
	"github.com/majorcontext/keepsake/internal/guard"
	"github.com/majorcontext/keepsake/internal/log"
)

var (
	verbose  bool
	dryRun   bool
	jsonOut  bool
	rootFlag string

	// cfg is loaded once per invocation by the root command.
	cfg *config.Config
	// prompt is shared so consecutive questions read from one buffer.
	prompt *chooser.Prompt
)

var rootCmd = &cobra.Command{
	Use:   "keepsake",
	Short: "Keepsake - dated, versioned folder backups",
	Long: `Keepsake copies a folder into a dated backup slot and can later put any
slot back where it came from.

Each backup lands in <root>/<YYYY-MM-DD>/<name>_copy_<n>/ next to a small
readme that records the original location, so restores need no index.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if rootFlag != "" {
			loaded.BackupRoot = rootFlag
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		if err := log.Init(log.Options{
			Verbose:  verbose,
			JSON:     jsonOut,
			Dir:      config.DebugDir(),
			KeepDays: cfg.Debug.RetentionDays,
		}); err != nil {
			// Not fatal: the default logger still reaches stderr.
			cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "show what would happen without writing anything")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "backup root (env: KEEPSAKE_BACKUP_ROOT)")
}

func interactive() bool {
	return chooser.IsInteractive(os.Stdin)
}

func stdioPrompt() *chooser.Prompt {
	if prompt == nil {
		prompt = chooser.Stdio()
	}
	return prompt
}

// newEngine builds an engine from the loaded config and global flags.
func newEngine() *engine.Engine {
	e := &engine.Engine{
		Root:          cfg.BackupRoot,
		Guard:         cfg.NewGuard(),
		BackupPolicy:  guard.Policy(cfg.Guard.BackupPolicy),
		RestorePolicy: guard.Policy(cfg.Guard.RestorePolicy),
		Wait:          cfg.WaitOptions(),
		Exclude:       cfg.Exclude,
		UseGitignore:  cfg.Gitignore,
		DryRun:        dryRun,
	}
	if interactive() {
		e.Confirm = stdioPrompt().Confirm
	}
	return e
}
