package main

import (
	"cashflow_stp/internal/config"
	"cashflow_stp/internal/processor"
	"cashflow_stp/internal/service"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run the STP checks over every STP-allowed cashflow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := openApp(cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.close()

			notifier := newNotificationService(cfg, logger)
			defer notifier.Shutdown(cmd.Context())

			report, err := a.stpProcessor().WithNotifier(notifier).EvaluatePending(cmd.Context(), cfg.STP.Checks)
			if err != nil {
				return fmt.Errorf("failed to evaluate cashflows: %w", err)
			}

			printf(cmd, "evaluated %d cashflows, %d marked NON-STP\n", report.Evaluated, len(report.Flagged))
			for _, id := range report.Flagged {
				printf(cmd, "  %s\n", id)
			}
			return nil
		},
	}
}

func newNetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "net",
		Short: "Net STP-allowed cashflows and print the netting report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			a, err := openApp(cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.close()

			sets, err := a.nettingProcessor().NetAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to net cashflows: %w", err)
			}

			return processor.WriteNettingReport(cmd.OutOrStdout(), sets)
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <rules.yaml>",
		Short: "Load business rules, attributes and operands into the database",
		Long:  `Creates the rules listed in the file. Rules and attributes that already exist are skipped, so seeding is safe to repeat.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.close()

			result, err := seed.Apply(cmd.Context(), a.store.Rules())
			if err != nil {
				return fmt.Errorf("failed to seed rules: %w", err)
			}

			logger.Info("Rules seeded",
				slog.Int("rules", result.Rules),
				slog.Int("attributes", result.Attributes),
				slog.Int("values", result.Values))
			printf(cmd, "created %d rules, %d attributes, %d values\n", result.Rules, result.Attributes, result.Values)
			return nil
		},
	}
}

func newNotificationService(cfg *config.Config, logger *slog.Logger) *service.NotificationService {
	sink := service.NewLogSink(logger)
	return service.NewNotificationService(
		sink,
		sink,
		service.Recipients{
			ReviewEmail:  cfg.Notifications.ReviewEmail,
			SlackChannel: cfg.Notifications.SlackChannel,
		},
		cfg.Notifications.Workers,
		logger,
	)
}
