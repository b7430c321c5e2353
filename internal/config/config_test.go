package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	c.Normalize()
	assert.NoError(t, c.Validate())
}

func TestNormalize_ClampsTickIntervalAndAggressiveness(t *testing.T) {
	c := Default()
	c.TickInterval = 1 * time.Microsecond
	c.Aggressiveness = 50
	c.Normalize()
	assert.Equal(t, minTickInterval, c.TickInterval)
	assert.Equal(t, maxAggr, c.Aggressiveness)

	c.TickInterval = 10 * time.Minute
	c.Aggressiveness = -1
	c.Normalize()
	assert.Equal(t, maxTickInterval, c.TickInterval)
	assert.Equal(t, minAggr, c.Aggressiveness)
}

func TestNormalize_ClampsBanditHyperparameters(t *testing.T) {
	c := Default()
	c.Epsilon = 5
	c.Gamma = -2
	c.C = -1
	c.Normalize()
	assert.Equal(t, 1.0, c.Epsilon)
	assert.Equal(t, 0.0, c.Gamma)
	assert.Equal(t, 0.0, c.C)
}

func TestValidate_RejectsOutOfRangePriority(t *testing.T) {
	c := Default()
	c.Priorities[2] = 150
	var cerr *ConfigError
	require.ErrorAs(t, c.Validate(), &cerr)
	assert.Equal(t, "priority", cerr.Field)
}

func TestValidate_RejectsInvertedCoreRange(t *testing.T) {
	c := Default()
	c.CoreFirst, c.CoreLast = 8, 2
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsUnreadableArmConfigFile(t *testing.T) {
	c := Default()
	c.ArmConfigFile = "/nonexistent/arms.yaml"
	assert.Error(t, c.Validate())
}

func TestPriorityFor_FallsBackToDefault(t *testing.T) {
	c := Default()
	c.Priorities[3] = 90
	assert.Equal(t, 90, c.PriorityFor(3))
	assert.Equal(t, c.DefaultPriority, c.PriorityFor(4))
}
