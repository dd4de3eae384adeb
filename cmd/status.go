package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nordcharge/resolve-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolution progress per country",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		counts, err := st.StatusCounts(ctx)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintln(os.Stderr, "No facilities found.")
			return nil
		}

		formatStatusCounts(os.Stdout, counts)
		return nil
	},
}

func formatStatusCounts(w io.Writer, counts []store.StatusCount) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNTRY\tTOTAL\tUNMATCHED\tMATCHED\tMATCH FAILED\tUNGEOCODED\tGEOCODED\tGEOCODE FAILED\tMANUAL")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			c.Country, c.Total,
			c.MatchPending, c.Matched, c.MatchFailed,
			c.GeocodePending, c.Geocoded, c.GeocodeFailed,
			c.MatchManual+c.GeocodeManual,
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
