package armtable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HasSixteenArms(t *testing.T) {
	tbl := Default()
	assert.Len(t, tbl, 16)
}

func TestDefault_Arm0IsMostConservative(t *testing.T) {
	tbl := Default()
	assert.Equal(t, uint64(15), tbl[0].MSRValue, "arm 0 disables all four prefetcher bits")
}

func TestDefault_LastArmIsMostAggressive(t *testing.T) {
	tbl := Default()
	last := tbl[len(tbl)-1]
	assert.Equal(t, uint64(0x30), last.MSRValue, "last arm disables nothing, max streamer distance")
}

func TestDefault_MSRValuesAreDistinct(t *testing.T) {
	tbl := Default()
	seen := map[uint64]bool{}
	for _, a := range tbl {
		assert.False(t, seen[a.MSRValue], "duplicate msr value %#x", a.MSRValue)
		seen[a.MSRValue] = true
	}
}

func TestLoadYAML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arms.yaml")
	content := "arms:\n  - msr_value: 0\n  - msr_value: 3\n  - msr_value: 15\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, tbl, 3)
	assert.Equal(t, uint64(0), tbl[0].MSRValue)
	assert.Equal(t, uint64(3), tbl[1].MSRValue)
	assert.Equal(t, uint64(15), tbl[2].MSRValue)
}

func TestLoadYAML_EmptyArmsIsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("arms: []\n"), 0o644))
	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadYAML_MissingFile(t *testing.T) {
	_, err := LoadYAML("/nonexistent/path/arms.yaml")
	assert.Error(t, err)
}
