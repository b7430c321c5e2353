//go:build linux

package msr

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// linuxDevice talks to /dev/cpu/<n>/msr, the standard Linux character
// device exposing RDMSR/WRMSR as pread(2)/pwrite(2) at the register address
// used as the byte offset. One file descriptor is opened per core and kept
// for the device's lifetime; a per-core mutex serializes the pread/pwrite
// pair so at most one operation is outstanding per core at a time, per
// spec.md §4.1.
type linuxDevice struct {
	mu    sync.Mutex // guards handles (opened lazily, one entry per core)
	files map[int]*coreHandle
}

type coreHandle struct {
	mu sync.Mutex
	f  *os.File
}

// NewLinuxDevice constructs a Device backed by /dev/cpu/N/msr. Handles are
// opened lazily on first use per core so that a run monitoring a narrow
// core range never touches /dev/cpu nodes outside it.
func NewLinuxDevice() Device {
	return &linuxDevice{files: make(map[int]*coreHandle)}
}

func (d *linuxDevice) handle(core int) (*coreHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.files[core]; ok {
		return h, nil
	}
	path := fmt.Sprintf("/dev/cpu/%d/msr", core)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDeviceUnavailable, path, err)
	}
	h := &coreHandle{f: f}
	d.files[core] = h
	return h, nil
}

func (d *linuxDevice) Read(core int, reg Register) (uint64, error) {
	h, err := d.handle(core)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf [8]byte
	n, err := unix.Pread(int(h.f.Fd()), buf[:], int64(reg))
	if err != nil || n != len(buf) {
		return 0, fmt.Errorf("%w: pread core %d reg %#x: %v", ErrDeviceUnavailable, core, reg, err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (d *linuxDevice) Write(core int, reg Register, value uint64) error {
	h, err := d.handle(core)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	n, err := unix.Pwrite(int(h.f.Fd()), buf[:], int64(reg))
	if err != nil || n != len(buf) {
		return fmt.Errorf("%w: pwrite core %d reg %#x: %v", ErrDeviceUnavailable, core, reg, err)
	}
	return nil
}

func (d *linuxDevice) EnableFixed(core int) error {
	if err := d.Write(core, FixedCtrCtrl, fixedCtrCtrlEnableValue); err != nil {
		return err
	}
	return d.Write(core, GlobalCtrl, globalCtrlEnableValue)
}

func (d *linuxDevice) ConfigureCounters(core int, events []Event) error {
	if len(events) > NumPMC {
		return fmt.Errorf("msr: %d events exceeds %d programmable counters", len(events), NumPMC)
	}
	for i, ev := range events {
		if _, ok := eventEncodings[ev.ID]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownEvent, ev.ID)
		}
		sel := PerfEvtSel0 + Register(i)
		pmc := PMC0 + Register(i)
		// Disable and clear before reprogramming, mirroring the
		// canonical RDPMC setup sequence: select=0, counter=0, then
		// select=encoded value.
		if err := d.Write(core, sel, 0); err != nil {
			return err
		}
		if err := d.Write(core, pmc, 0); err != nil {
			return err
		}
		if err := d.Write(core, sel, ev.selectValue()); err != nil {
			return err
		}
	}
	return d.Write(core, GlobalCtrl, globalCtrlEnableValue)
}

func (d *linuxDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var first error
	for core, h := range d.files {
		if err := h.f.Close(); err != nil && first == nil {
			first = fmt.Errorf("close core %d msr handle: %w", core, err)
		}
	}
	return first
}
