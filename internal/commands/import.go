package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/config"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/session"
	"github.com/bankfeed-dev/bankfeed/internal/store/memory"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

func newImportCommand() *cobra.Command {
	var configPath string
	var account string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Run a statement file through the import pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], configPath, account, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "bankfeed.yaml", "path to config file")
	cmd.Flags().StringVar(&account, "account", "", "default account (overrides config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline detail")

	return cmd
}

func runImport(cmd *cobra.Command, file, configPath, account string, verbose bool) error {
	cfg := config.Default()
	if loaded, err := config.Load(configPath); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if account != "" {
		cfg.Import.DefaultAccount = account
	}

	sessCfg, err := sessionConfig(cfg)
	if err != nil {
		return err
	}

	logger := log.New(cmd.ErrOrStderr())
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	st := memory.New()
	sess := session.New(st, sessCfg, logger, nil)
	sess.SetHistoryRoot(filepath.Dir(configPath))

	ctx := cmd.Context()
	if err := sess.SelectFile(file); err != nil {
		return err
	}
	if err := sess.DetectLayout(ctx); err != nil {
		return err
	}
	if err := sess.ConfirmMapping(); err != nil {
		return err
	}
	if err := sess.RunImport(ctx); err != nil {
		return err
	}
	for sess.Step() != session.StepReview {
		if err := sess.ConfirmMappingStep(ctx); err != nil {
			return err
		}
	}

	sum, err := sess.Commit(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Profile:    %s\n", sess.Profile())
	fmt.Fprintf(out, "Staged:     %d\n", sum.Staged)
	fmt.Fprintf(out, "Skipped:    %d\n", sum.Skipped)
	for _, skip := range sum.SkipSamples {
		fmt.Fprintf(out, "  %s\n", skip.String())
	}
	fmt.Fprintf(out, "Duplicates: %d\n", sum.Duplicates)
	fmt.Fprintf(out, "Transfers:  %d\n", sum.Transfers)
	fmt.Fprintf(out, "Committed:  %d\n", sum.Committed)
	return nil
}

func sessionConfig(cfg *config.Config) (session.Config, error) {
	dateFormat, err := cfg.DateFormat()
	if err != nil {
		return session.Config{}, err
	}
	sign, err := cfg.SignConvention()
	if err != nil {
		return session.Config{}, err
	}

	return session.Config{
		Options: model.ProcessingOptions{
			NormalizePayee:        cfg.Processing.NormalizePayee,
			ApplyAutoRules:        cfg.Processing.ApplyAutoRules,
			DetectDuplicates:      cfg.Processing.DetectDuplicates,
			SuggestTransfers:      cfg.Processing.SuggestTransfers,
			SaveProcessingHistory: cfg.Processing.SaveProcessingHistory,
		},
		DateFormat:     dateFormat,
		SignConvention: sign,
		DefaultAccount: cfg.Import.DefaultAccount,
		Duplicates: session.DuplicatesConfig{
			SimilarityThreshold: cfg.Duplicates.SimilarityThreshold,
		},
		Transfers: transfer.Config{
			MaxDaysApart:   cfg.Transfers.MaxDaysApart,
			MaxSuggestions: cfg.Transfers.MaxSuggestions,
			MinScore:       cfg.Transfers.MinScore,
		},
		CommitBatch: cfg.Import.CommitBatch,
	}, nil
}
