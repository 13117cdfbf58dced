package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/protexis/ogx-gateway/internal/config"
)

var (
	resetIncludeQueue bool
	resetForce        bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the gateway to a clean state",
	Long: `Reset the gateway by removing persistent state files.

By default, only the persisted OGWS bearer token (and its backup) is
removed. On next start, the gateway acquires a fresh token.

Optional flags:
  --include-queue   Also remove the submission queue database.
                    Queued, undelivered messages are LOST.
  --force           Skip confirmation prompt

Examples:
  # Reset token state only (interactive confirmation)
  ogx-gateway reset

  # Reset everything without prompting
  ogx-gateway reset --include-queue --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetIncludeQueue, "include-queue", false, "Also remove the submission queue database")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	tokenPath, queuePath := statePaths()

	type target struct {
		path string
		desc string
	}
	targets := []target{
		{tokenPath, "token state"},
		{tokenPath + ".bak", "token backup"},
		{tokenPath + ".lock", "token lock file"},
	}
	if resetIncludeQueue {
		targets = append(targets,
			target{queuePath, "queue database"},
			target{queuePath + "-wal", "queue WAL"},
			target{queuePath + "-shm", "queue shared memory"},
		)
	}

	var existing []target
	for _, t := range targets {
		if _, err := os.Stat(t.path); err == nil {
			existing = append(existing, t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to reset - no state files found.")
		return nil
	}

	fmt.Fprintln(os.Stderr, "The following will be removed:")
	for _, t := range existing {
		fmt.Fprintf(os.Stderr, "  - %s (%s)\n", t.path, t.desc)
	}

	if !resetForce {
		fmt.Fprint(os.Stderr, "\nProceed? [y/N] ")
		var answer string
		fmt.Scanln(&answer) //nolint:errcheck // interactive prompt, error irrelevant
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}
	}

	var failed int
	for _, t := range existing {
		if err := os.Remove(t.path); err != nil {
			fmt.Fprintf(os.Stderr, "  ERROR removing %s: %v\n", t.path, err)
			failed++
		} else {
			fmt.Fprintf(os.Stderr, "  Removed %s\n", t.path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be removed", failed)
	}

	fmt.Fprintln(os.Stderr, "\nReset complete. The gateway will start fresh on next launch.")
	return nil
}

// statePaths resolves the token and queue paths from config when it
// loads, falling back to the standard locations. Reset must work even
// with a broken or absent config.
func statePaths() (tokenPath, queuePath string) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	tokenPath = filepath.Join(home, ".ogx-gateway", "token.json")
	queuePath = filepath.Join(home, ".ogx-gateway", "queue.db")

	if cfg, err := config.LoadConfig(); err == nil {
		if cfg.OGWS.TokenStatePath != "" {
			tokenPath = cfg.OGWS.TokenStatePath
		}
		if cfg.Queue.DBPath != "" {
			queuePath = cfg.Queue.DBPath
		}
	}
	return tokenPath, queuePath
}
