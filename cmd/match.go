package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nordcharge/resolve-cli/internal/matcher"
	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/internal/pipeline"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Link unmatched facilities to Salesforce accounts",
	Long:  "Runs the tiered name matcher over facilities without a CRM link and copies the matched account's billing address onto each facility.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		search, err := initCRM()
		if err != nil {
			return err
		}

		m := matcher.New(search, matcher.Config{
			NormalizedThreshold:   cfg.Match.NormalizedThreshold,
			TokenThreshold:        cfg.Match.TokenThreshold,
			TokenResultCutoff:     cfg.Match.TokenResultCutoff,
			NormalizedSearchLimit: cfg.Match.NormalizedSearchLimit,
			TokenSearchRPS:        cfg.Match.TokenSearchRPS,
		})

		stats, err := pipeline.NewMatchRunner(st, m).Run(ctx, opts)
		if err != nil {
			return err
		}
		stats.WriteSummary(os.Stdout)
		return nil
	},
}

// runOptions reads the flags shared by the match and geocode commands.
func runOptions(cmd *cobra.Command) (pipeline.Options, error) {
	countryFlag, _ := cmd.Flags().GetString("country")
	country, err := model.ParseCountry(countryFlag)
	if err != nil {
		return pipeline.Options{}, err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return pipeline.Options{Country: country, Limit: limit, DryRun: dryRun}, nil
}

func init() {
	matchCmd.Flags().String("country", "", "restrict the run to one country code (NO, SE, DK, FI)")
	matchCmd.Flags().Int("limit", 100, "maximum number of facilities to process")
	matchCmd.Flags().Bool("dry-run", false, "perform lookups and scoring but write nothing")
	rootCmd.AddCommand(matchCmd)
}
