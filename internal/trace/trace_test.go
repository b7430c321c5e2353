package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefetchctl/prefetchctl/internal/metrics"
)

func sampleRow() Row {
	return Row{
		At:             time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TickIndex:      7,
		BandwidthMBs:   12345,
		BandwidthKnown: true,
		IPCMean:        1.25,
		LadderLevel:    2,
		ArmIndex:       3,
		Reward:         0.8,
		MSRValue:       0x1A4,
	}
}

func TestCSVSink_WritesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	s, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteRow(sampleRow()))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "tick_index")
	assert.Contains(t, content, "12345")
	assert.Contains(t, content, "1a4")
}

func TestJSONSink_ProducesValidArrayFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	s, err := NewJSONSink(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteRow(sampleRow()))
	require.NoError(t, s.WriteRow(sampleRow()))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.True(t, strings.HasPrefix(content, "[\n"))
	assert.True(t, strings.HasSuffix(content, "]\n"))
	assert.Equal(t, 1, strings.Count(content, ",\n{"))
}

func TestHTMLSink_RendersOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.html")
	acc := metrics.New()
	acc.Apply(metrics.Sample{IPCMean: 1.25, BandwidthMBs: 12345, BandwidthOK: true})
	s := NewHTMLSink(path, acc)
	require.NoError(t, s.WriteRow(sampleRow()))
	require.NoError(t, s.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.Contains(t, content, "Prefetcher Controller Report")
	assert.Contains(t, content, "0x1a4")
}

func TestMultiSink_FansOutAndAggregatesErrors(t *testing.T) {
	dir := t.TempDir()
	csvS, err := NewCSVSink(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	jsonS, err := NewJSONSink(filepath.Join(dir, "a.json"))
	require.NoError(t, err)

	m := NewMultiSink(csvS, jsonS, nil)
	require.NoError(t, m.WriteRow(sampleRow()))
	require.NoError(t, m.Close())
}
