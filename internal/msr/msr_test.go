package msr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_ReadWriteRoundTrip(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.Write(0, PrefetchControl, 0x0F))
	v, err := m.Read(0, PrefetchControl)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0F), v)
}

func TestMock_ReadUnwrittenRegisterIsZero(t *testing.T) {
	m := NewMock()
	v, err := m.Read(3, PrefetchControl)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestMock_ConfigureCountersProgramsAllSevenSelectors(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.ConfigureCounters(0, DefaultEvents()))
	for i := 0; i < NumPMC; i++ {
		v, err := m.Read(0, PerfEvtSel0+Register(i))
		require.NoError(t, err)
		assert.NotZero(t, v, "selector %d should be programmed", i)
		// enable bit must always be set
		assert.NotZero(t, v&uint64(evtSelEnable))
	}
}

func TestMock_ConfigureCounters_UnknownEvent(t *testing.T) {
	m := NewMock()
	err := m.ConfigureCounters(0, []Event{{ID: EventID(999)}})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestMock_EnableFixed(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.EnableFixed(1))
	v, err := m.Read(1, FixedCtrCtrl)
	require.NoError(t, err)
	assert.Equal(t, uint64(fixedCtrCtrlEnableValue), v)
}

func TestMock_FailRead(t *testing.T) {
	m := NewMock()
	m.FailRead = ErrDeviceUnavailable
	_, err := m.Read(0, PrefetchControl)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestEventSelectValue_DefaultRingsWhenUnset(t *testing.T) {
	e := Event{ID: EventInstrRetired}
	v := e.selectValue()
	assert.NotZero(t, v&uint64(evtSelOS))
	assert.NotZero(t, v&uint64(evtSelUsr))
}

func TestCoresAreIndependentInMock(t *testing.T) {
	m := NewMock()
	require.NoError(t, m.Write(0, PrefetchControl, 1))
	require.NoError(t, m.Write(1, PrefetchControl, 2))
	v0, _ := m.Read(0, PrefetchControl)
	v1, _ := m.Read(1, PrefetchControl)
	assert.Equal(t, uint64(1), v0)
	assert.Equal(t, uint64(2), v1)
}
