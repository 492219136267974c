package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonefit/internal/metric"
	"github.com/sells-group/zonefit/internal/scorer"
)

func TestWriteDimensions_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDimensions(&buf, scorer.Catalog(metric.Default()), false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 17)
	assert.True(t, strings.HasPrefix(lines[0], "income"))
	assert.Contains(t, buf.String(), "Public Transportation")
}

func TestWriteDimensions_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDimensions(&buf, scorer.Catalog(metric.Default()), true))

	var got []scorer.DimensionInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Len(t, got, 17)
}
