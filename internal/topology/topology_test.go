//go:build linux

package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseList(t *testing.T) {
	got, err := ParseList("0-3,8,10-12")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 8, 10, 11, 12}, got)
}

func TestParseList_Empty(t *testing.T) {
	got, err := ParseList("")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseList_Dedup(t *testing.T) {
	got, err := ParseList("2,0-2,1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestParseList_Invalid(t *testing.T) {
	_, err := ParseList("abc")
	assert.Error(t, err)
	_, err = ParseList("1-x")
	assert.Error(t, err)
}

func TestDetectCoreRange_CoversCurrentProcess(t *testing.T) {
	first, last, err := DetectCoreRange()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, last, first)
	assert.GreaterOrEqual(t, first, 0)
}

func TestCPUSetMode_String(t *testing.T) {
	assert.Equal(t, "unconstrained", Unconstrained.String())
	assert.Equal(t, "cgroup v1 cpuset", V1.String())
	assert.Equal(t, "cgroup v2 unified", V2.String())
}
