package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/internal/pipeline"
	"github.com/nordcharge/resolve-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode facilities with a street address",
	Long:  "Resolves facility addresses to coordinates: Norwegian facilities via the Kartverket address registry, all other markets via Mapbox.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := runOptions(cmd)
		if err != nil {
			return err
		}

		// An explicitly selected non-Norwegian country cannot run at all
		// without a Mapbox token; fail before touching any record. An
		// unset country still runs, the unavailable provider just yields
		// no results for non-Norwegian facilities.
		if opts.Country != "" && opts.Country != model.CountryNorway && cfg.Geocode.MapboxToken == "" {
			return eris.Errorf("mapbox token is required to geocode %s facilities (RESOLVE_GEOCODE_MAPBOX_TOKEN)", opts.Country)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		router := geocode.NewRouter(
			geocode.NewKartverket(geocode.WithKartverketRateLimit(cfg.Geocode.KartverketRPS)),
			geocode.NewMapbox(cfg.Geocode.MapboxToken, geocode.WithMapboxRateLimit(cfg.Geocode.MapboxRPS)),
		)

		stats, err := pipeline.NewGeocodeRunner(st, router).Run(ctx, opts)
		if err != nil {
			return err
		}
		stats.WriteSummary(os.Stdout)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("country", "", "restrict the run to one country code (NO, SE, DK, FI)")
	geocodeCmd.Flags().Int("limit", 100, "maximum number of facilities to process")
	geocodeCmd.Flags().Bool("dry-run", false, "perform lookups but write nothing")
	rootCmd.AddCommand(geocodeCmd)
}
