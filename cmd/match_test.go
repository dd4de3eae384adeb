package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcharge/resolve-cli/internal/model"
)

func newFlagCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("country", "", "")
	cmd.Flags().Int("limit", 100, "")
	cmd.Flags().Bool("dry-run", false, "")
	return cmd
}

func TestRunOptions_Defaults(t *testing.T) {
	opts, err := runOptions(newFlagCmd())
	require.NoError(t, err)
	assert.Equal(t, model.Country(""), opts.Country)
	assert.Equal(t, 100, opts.Limit)
	assert.False(t, opts.DryRun)
}

func TestRunOptions_CountryIsCaseInsensitive(t *testing.T) {
	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("country", "no"))
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))

	opts, err := runOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.CountryNorway, opts.Country)
	assert.True(t, opts.DryRun)
}

func TestRunOptions_RejectsUnsupportedCountry(t *testing.T) {
	cmd := newFlagCmd()
	require.NoError(t, cmd.Flags().Set("country", "DE"))

	_, err := runOptions(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported country")
}
