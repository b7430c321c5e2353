package controlplane

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityWeightedMeanIPC(t *testing.T) {
	cores := []*CoreState{
		{CoreID: 0, Priority: 99, LastIPC: 0.5},
		{CoreID: 1, Priority: 1, LastIPC: 2.0},
	}
	// (99*0.5 + 1*2.0) / 100 = 0.515
	assert.InDelta(t, 0.515, PriorityWeightedMeanIPC(cores), 1e-9)
}

func TestPriorityWeightedMeanIPC_ZeroWeights(t *testing.T) {
	cores := []*CoreState{{CoreID: 0, Priority: 0, LastIPC: 5}}
	assert.Equal(t, 0.0, PriorityWeightedMeanIPC(cores))
}

func TestBuildModules_GroupsAndPicksSmallestPrimary(t *testing.T) {
	cores := []*CoreState{
		{CoreID: 5, ModuleID: 1},
		{CoreID: 4, ModuleID: 1},
		{CoreID: 6, ModuleID: 1},
		{CoreID: 7, ModuleID: 1},
		{CoreID: 0, ModuleID: 0},
		{CoreID: 1, ModuleID: 0},
	}
	mods := BuildModules(cores)
	assert.Len(t, mods, 2)
	assert.Equal(t, 0, mods[0].ModuleID)
	assert.Equal(t, 0, mods[0].PrimaryCoreID)
	assert.Equal(t, 1, mods[1].ModuleID)
	assert.Equal(t, 4, mods[1].PrimaryCoreID)
}

func TestPrimaryCore(t *testing.T) {
	cores := []*CoreState{{CoreID: 0}, {CoreID: 4}}
	mod := &ModuleState{ModuleID: 1, PrimaryCoreID: 4}
	got := PrimaryCore(cores, mod)
	assert.Same(t, cores[1], got)

	missing := &ModuleState{PrimaryCoreID: 99}
	assert.Nil(t, PrimaryCore(cores, missing))
}
