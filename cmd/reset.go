package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nordcharge/resolve-cli/internal/model"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Return failed facilities to the backlog",
	Long:  "Resets facilities in failed state back to pending so the next run picks them up again, for one stage and optionally one country.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		stage, _ := cmd.Flags().GetString("stage")
		countryFlag, _ := cmd.Flags().GetString("country")
		country, err := model.ParseCountry(countryFlag)
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

		var n int64
		switch stage {
		case "match":
			n, err = st.ResetMatchFailures(ctx, country)
		case "geocode":
			n, err = st.ResetGeocodeFailures(ctx, country)
		default:
			return eris.Errorf("unknown stage %q, expected match or geocode", stage)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Reset %d facilities to pending.\n", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("stage", "", "pipeline stage to reset: match or geocode")
	resetCmd.Flags().String("country", "", "restrict the reset to one country code (NO, SE, DK, FI)")
	_ = resetCmd.MarkFlagRequired("stage")
	rootCmd.AddCommand(resetCmd)
}
