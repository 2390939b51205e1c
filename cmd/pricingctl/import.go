package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetroad/pricingservice/internal/app"
	"github.com/fleetroad/pricingservice/internal/events"
	"github.com/fleetroad/pricingservice/internal/log"
	"github.com/fleetroad/pricingservice/internal/pricing"
	"github.com/fleetroad/pricingservice/internal/rulefile"
)

func newImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-rules <file>",
		Short: "Validate a rule file and upsert its rules into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := rulefile.Load(args[0])
			if err != nil {
				return err
			}
			if err := pricing.ValidateRules(file.Rules); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d pricing rules from %s\n", len(file.Rules), args[0])
			if dryRun {
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := log.Init(cfg.Log.Level); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := app.OpenRuleStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			publisher := app.NewPublisher(cfg, log.L(ctx))
			defer publisher.Close()

			n, err := importRules(ctx, events.NewNotifyingStore(store, publisher), file.Rules,
				progressbar.NewOptions(len(file.Rules),
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("importing rules"),
					progressbar.OptionShowCount(),
				))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully imported %d pricing rules\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}

// importRules upserts rules in file order and stops at the first failure.
func importRules(ctx context.Context, store pricing.RuleWriter, rules []pricing.PricingRule, bar *progressbar.ProgressBar) (int, error) {
	for i, rule := range rules {
		if _, err := store.Upsert(ctx, rule); err != nil {
			log.Error(ctx, "Failed to import pricing rule", zap.String("rule_id", rule.ID), zap.Error(err))
			return i, fmt.Errorf("failed to import rule %q: %w", rule.ID, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return len(rules), nil
}
