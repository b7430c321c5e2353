package msr

import "sync"

// Mock is an in-memory Device for tests, letting the controllers and
// sampler be exercised without a real MSR character device.
type Mock struct {
	mu   sync.Mutex
	regs map[int]map[Register]uint64

	// Writes records every Write call in order, for assertions.
	Writes []MockWrite

	// FailRead/FailWrite, if set, are returned instead of performing the
	// operation — used to simulate DeviceError during steady state.
	FailRead  error
	FailWrite error
}

// MockWrite records one Write call observed by a Mock device.
type MockWrite struct {
	Core  int
	Reg   Register
	Value uint64
}

// NewMock returns an empty Mock device; all registers read as 0 until
// written.
func NewMock() *Mock {
	return &Mock{regs: make(map[int]map[Register]uint64)}
}

func (m *Mock) Read(core int, reg Register) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRead != nil {
		return 0, m.FailRead
	}
	coreRegs, ok := m.regs[core]
	if !ok {
		return 0, nil
	}
	return coreRegs[reg], nil
}

func (m *Mock) Write(core int, reg Register, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrite != nil {
		return m.FailWrite
	}
	if m.regs[core] == nil {
		m.regs[core] = make(map[Register]uint64)
	}
	m.regs[core][reg] = value
	m.Writes = append(m.Writes, MockWrite{Core: core, Reg: reg, Value: value})
	return nil
}

func (m *Mock) EnableFixed(core int) error {
	return m.Write(core, FixedCtrCtrl, fixedCtrCtrlEnableValue)
}

func (m *Mock) ConfigureCounters(core int, events []Event) error {
	for i, ev := range events {
		if _, ok := eventEncodings[ev.ID]; !ok {
			return ErrUnknownEvent
		}
		if err := m.Write(core, PerfEvtSel0+Register(i), ev.selectValue()); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mock) Close() error { return nil }

// Set directly pokes a register value, used by tests to script counter
// progressions across ticks.
func (m *Mock) Set(core int, reg Register, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regs[core] == nil {
		m.regs[core] = make(map[Register]uint64)
	}
	m.regs[core][reg] = value
}
