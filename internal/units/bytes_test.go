package units

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytes_Humanized_Boundaries(t *testing.T) {
	cases := []struct {
		in   Bytes
		want string
	}{
		{Bytes(0), "0 B"},
		{Bytes(1), "1 B"},
		{Bytes(1023), "1023 B"},
		{Bytes(1024), "1.00 KB"},
		{Bytes(1024 * 1024), "1.00 MB"},
		{Bytes(1024 * 1024 * 1024), "1.00 GB"},
		{Bytes(1 << 40), "1.00 TB"},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("case_%d_%d", i, uint64(tc.in)), func(t *testing.T) {
			require.Equal(t, tc.want, tc.in.Humanized())
		})
	}
}

func TestMBs_Humanized(t *testing.T) {
	assert.Equal(t, "512 MB/s", MBs(512).Humanized())
	assert.Equal(t, "1.00 GB/s", MBs(1024).Humanized())
	assert.Equal(t, "9.50 GB/s", MBs(9728).Humanized())
}

func TestBytes_MB(t *testing.T) {
	assert.InDelta(t, 1.0, Bytes(1<<20).MB(), 1e-12)
}
