// Package msr provides the MSR/PMU access layer: a uniform, serialized
// interface to per-core model-specific registers, used to enable and read
// performance counters and to program prefetcher-control MSRs.
package msr

// Register is an MSR address.
type Register uint32

// Bit-exact register map (spec.md §6).
const (
	// PerfEvtSel0 is the first of seven contiguous programmable
	// event-select registers: PerfEvtSel0..PerfEvtSel6 occupy
	// 0x186..0x18C.
	PerfEvtSel0 Register = 0x186

	// PMC0 is the first of seven contiguous general-purpose performance
	// counters, paired index-for-index with PerfEvtSel0..6.
	PMC0 Register = 0xC1

	// GlobalCtrl is IA32_PERF_GLOBAL_CTRL. Bits 0-6 (0x7F) enable PMC0..6
	// and bits 32-34 the three fixed counters; the value written is
	// 0x7F|(0x7<<32).
	GlobalCtrl Register = 0x38F

	// FixedCtrCtrl is IA32_FIXED_CTR_CTRL, enabling the fixed counters in
	// both OS and USR rings.
	FixedCtrCtrl Register = 0x38D

	// FixedCtr0 is IA32_FIXED_CTR0 (instructions retired).
	FixedCtr0 Register = 0x309
	// FixedCtr1 is IA32_FIXED_CTR1 (unhalted core cycles).
	FixedCtr1 Register = 0x30A
	// FixedCtr2 is IA32_FIXED_CTR2 (unhalted reference cycles).
	FixedCtr2 Register = 0x30B

	// PrefetchControl is the architecture-specific prefetcher-control
	// MSR, written once per module by that module's primary core.
	PrefetchControl Register = 0x1A4
)

// NumPMC is the number of programmable event-select/counter pairs (seven,
// per spec.md §4.1).
const NumPMC = 7

// globalCtrlEnableValue enables PMC0..NumPMC-1 and the three fixed counters.
const globalCtrlEnableValue = 0x7F | (0x7 << 32)

// fixedCtrCtrlEnableValue enables all three fixed counters in OS+USR rings
// with no PMI, mirroring the bit layout IA32_FIXED_CTR_CTRL expects: each
// counter gets a 4-bit field, bit0=OS, bit1=USR.
const fixedCtrCtrlEnableValue = 0x333

// perfEvtSel bit positions, bit-exact per spec.md §6 and grounded on the
// Intel architectural PMU encoding used by justanotherdot-biscuit's
// intelprof_t._ev2msr.
const (
	evtSelEnable Register = 1 << 22
	evtSelOS     Register = 1 << 17
	evtSelUsr    Register = 1 << 16
)
