package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonefit/internal/config"
	"github.com/sells-group/zonefit/internal/metric"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"score", "fetch", "dimensions", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "zonefit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScoreCommand_Flags(t *testing.T) {
	for _, name := range []string{"zones", "prefs", "format", "output", "min-score", "limit", "concurrency"} {
		assert.NotNil(t, scoreCmd.Flags().Lookup(name), "score command should have --%s flag", name)
	}
	assert.Equal(t, "table", scoreCmd.Flags().Lookup("format").DefValue)
}

func TestFetchCommand_Flags(t *testing.T) {
	for _, name := range []string{"zips", "gazetteer", "walkscore", "output", "concurrency"} {
		assert.NotNil(t, fetchCmd.Flags().Lookup(name), "fetch command should have --%s flag", name)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestNewScorer_InvalidMetrics(t *testing.T) {
	c := &config.Config{Metrics: metric.DefaultConfig()}
	c.Metrics.AgeBracket.Interval = -1

	_, err := newScorer(c)
	require.Error(t, err)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"94103", "94110"}, splitAndTrim(" 94103, ,94110 "))
	assert.Nil(t, splitAndTrim(""))
}
