package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/config"
)

func newInitCommand() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a bankfeed project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "default account for imported transactions")

	return cmd
}

func runInit(cmd *cobra.Command, dir, account string) error {
	for _, d := range []string{"logs", "inbox", filepath.Join("inbox", "processed")} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfgPath := filepath.Join(dir, "bankfeed.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	cfg.Import.DefaultAccount = account
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized bankfeed project in %s\n", dir)
	return nil
}
