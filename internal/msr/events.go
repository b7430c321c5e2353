package msr

// EventID names one of the seven programmable counters the controller
// programs each tick (spec.md §4.1).
type EventID int

const (
	EventAllLoadsRetired EventID = iota
	EventL2HitLoads
	EventLLCHitLoads
	EventDRAMHitLoads
	EventXQPromotion
	EventUnhaltedCycles
	EventInstrRetired
)

// Event pairs an event id with OS/USR ring flags, mirroring pmev_t in the
// reference kernel PMU driver.
type Event struct {
	ID    EventID
	OS    bool
	Usr   bool
}

// encoding is the (event, umask) pair programmed into a PerfEvtSel register's
// low 16 bits.
type encoding struct {
	event uint8
	umask uint8
}

// eventEncodings is the bit-exact event/umask table (spec.md §4.1, §6).
// Architectural events (unhalted cycles, instructions retired) match the
// encodings used by justanotherdot-biscuit's intelprof_t.prof_init; the
// memory-hierarchy events extend that table for prefetcher-aware sampling.
var eventEncodings = map[EventID]encoding{
	EventAllLoadsRetired: {event: 0xD0, umask: 0x81}, // MEM_INST_RETIRED.ALL_LOADS
	EventL2HitLoads:      {event: 0xD1, umask: 0x02}, // MEM_LOAD_RETIRED.L2_HIT
	EventLLCHitLoads:     {event: 0xD1, umask: 0x04}, // MEM_LOAD_RETIRED.L3_HIT
	EventDRAMHitLoads:    {event: 0xD1, umask: 0x80}, // MEM_LOAD_RETIRED.L3_MISS (DRAM-hit proxy)
	EventXQPromotion:     {event: 0x2F, umask: 0x04}, // L2_LINES_IN.XQ_PROMOTION
	EventUnhaltedCycles:  {event: 0x3C, umask: 0x00}, // CPU_CLK_UNHALTED.THREAD
	EventInstrRetired:    {event: 0xC0, umask: 0x00}, // INST_RETIRED.ANY
}

// selectValue packs the event into the perfevtsel bit layout: umask in
// bits[15:8], event in bits[7:0], the enable bit, and the requested ring
// flags (defaulting to both rings when neither is set, per spec.md §4.6's
// convention for pf==0).
func (e Event) selectValue() uint64 {
	enc, ok := eventEncodings[e.ID]
	if !ok {
		return 0
	}
	v := Register(enc.umask)<<8 | Register(enc.event) | evtSelEnable
	if e.OS {
		v |= evtSelOS
	}
	if e.Usr {
		v |= evtSelUsr
	}
	if !e.OS && !e.Usr {
		v |= evtSelOS | evtSelUsr
	}
	return uint64(v)
}

// DefaultEvents returns the seven counters the sampler programs every tick,
// in a fixed order matching Register order PerfEvtSel0..6.
func DefaultEvents() []Event {
	ids := []EventID{
		EventAllLoadsRetired, EventL2HitLoads, EventLLCHitLoads,
		EventDRAMHitLoads, EventXQPromotion, EventUnhaltedCycles,
		EventInstrRetired,
	}
	out := make([]Event, len(ids))
	for i, id := range ids {
		out[i] = Event{ID: id, OS: true, Usr: true}
	}
	return out
}
