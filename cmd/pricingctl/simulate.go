package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fleetroad/pricingservice/internal/app"
	"github.com/fleetroad/pricingservice/internal/pricing"
	"github.com/fleetroad/pricingservice/internal/rulefile"
	"github.com/fleetroad/pricingservice/internal/scenario"
)

type simulateOptions struct {
	scenarioFile string
	generate     int
	seed         int64
	start        string
	jsonOutput   bool
}

func newSimulateCmd() *cobra.Command {
	opts := simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <rule-file>",
		Short: "Preview a rule file against recorded or generated booking scenarios",
		Long: `simulate evaluates every scenario against the rules in <rule-file> without
touching any store. Scenarios come from the rule file itself, from --scenarios,
or from the synthetic generator with --generate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engineCfg := app.EngineConfig(cfg)
			engineCfg.MaxScenarios = 0
			return runSimulate(cmd, args[0], opts, engineCfg)
		},
	}

	cmd.Flags().StringVar(&opts.scenarioFile, "scenarios", "", "file holding scenarios (defaults to the rule file)")
	cmd.Flags().IntVar(&opts.generate, "generate", 0, "generate this many synthetic scenarios instead of reading them")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed for generated scenarios")
	cmd.Flags().StringVar(&opts.start, "start-date", time.Now().UTC().Format(time.RFC3339), "start of the generated scheduling window")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print every breakdown as a JSON line")
	return cmd
}

func runSimulate(cmd *cobra.Command, rulePath string, opts simulateOptions, engineCfg pricing.Config) error {
	file, err := rulefile.Load(rulePath)
	if err != nil {
		return err
	}

	requests, err := loadScenarios(file, opts)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return fmt.Errorf("no scenarios to evaluate")
	}

	repo, err := pricing.NewStaticRepository(file.Rules)
	if err != nil {
		return err
	}
	engine := pricing.NewEngine(repo, engineCfg)

	results, err := engine.EvaluateBatch(cmd.Context(), requests)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	printSummary(out, summarize(results))
	return nil
}

func loadScenarios(file *rulefile.File, opts simulateOptions) ([]pricing.EvaluationRequest, error) {
	if opts.generate > 0 {
		start, err := time.Parse(time.RFC3339, opts.start)
		if err != nil {
			return nil, fmt.Errorf("invalid start-date: %w", err)
		}
		genOpts := scenario.DefaultOptions(start)
		genOpts.Seed = opts.seed
		return scenario.NewGenerator(genOpts).Generate(opts.generate), nil
	}
	if opts.scenarioFile != "" {
		f, err := rulefile.Load(opts.scenarioFile)
		if err != nil {
			return nil, err
		}
		return f.Requests(), nil
	}
	return file.Requests(), nil
}

type summary struct {
	Count      int
	Total      decimal.Decimal
	Min, Max   decimal.Decimal
	Surge      decimal.Decimal
	Discount   decimal.Decimal
	RuleHits   map[string]int
	Confidence map[pricing.Confidence]int
}

func summarize(results []pricing.PriceBreakdown) summary {
	s := summary{
		Count:      len(results),
		RuleHits:   make(map[string]int),
		Confidence: make(map[pricing.Confidence]int),
	}
	for i, r := range results {
		if i == 0 || r.TotalAmount.LessThan(s.Min) {
			s.Min = r.TotalAmount
		}
		if i == 0 || r.TotalAmount.GreaterThan(s.Max) {
			s.Max = r.TotalAmount
		}
		s.Total = s.Total.Add(r.TotalAmount)
		s.Surge = s.Surge.Add(r.SurgeAmount)
		s.Discount = s.Discount.Add(r.DiscountAmount)
		s.Confidence[r.Confidence]++
		for _, applied := range r.RulesApplied {
			s.RuleHits[applied.RuleID]++
		}
	}
	return s
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "Scenarios:      %d\n", s.Count)
	if s.Count == 0 {
		return
	}
	fmt.Fprintf(w, "Total revenue:  %s\n", s.Total.StringFixed(2))
	fmt.Fprintf(w, "Average total:  %s\n", s.Total.Div(decimal.NewFromInt(int64(s.Count))).StringFixed(2))
	fmt.Fprintf(w, "Min / max:      %s / %s\n", s.Min.StringFixed(2), s.Max.StringFixed(2))
	fmt.Fprintf(w, "Surge added:    %s\n", s.Surge.StringFixed(2))
	fmt.Fprintf(w, "Discount given: %s\n", s.Discount.StringFixed(2))

	for _, c := range []pricing.Confidence{pricing.ConfidenceHigh, pricing.ConfidenceMedium, pricing.ConfidenceLow} {
		fmt.Fprintf(w, "Confidence %-6s %d\n", string(c)+":", s.Confidence[c])
	}

	ids := make([]string, 0, len(s.RuleHits))
	for id := range s.RuleHits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.RuleHits[ids[i]] != s.RuleHits[ids[j]] {
			return s.RuleHits[ids[i]] > s.RuleHits[ids[j]]
		}
		return ids[i] < ids[j]
	})
	fmt.Fprintln(w, "Rules fired:")
	for _, id := range ids {
		fmt.Fprintf(w, "  %-24s %d\n", id, s.RuleHits[id])
	}
}
