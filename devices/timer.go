// Updated devices/timer.go
package devices

import (
	"log"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Core-local timer register offsets, per thead_clint.c.
const (
	clintRegMSIP       uint64 = 0x0
	clintRegTimecmpLo  uint64 = 0x4000
	clintRegTimecmpHi  uint64 = 0x4004
	clintRegTimeLo     uint64 = 0xbff8
	clintRegTimeHi     uint64 = 0xbffc
	clintRegionSize    uint64 = 0xc000
	clintRTCFrequencyHz uint64 = 10_000_000
)

// SoftwareIRQ is the single machine-software-interrupt output line driven
// by a write to msip.
type SoftwareIRQ interface {
	Pulse()
}

// TimerIRQ is the compare-match output line; it is level-sensitive (held
// high until the compare register is reprogrammed past the current RTC
// value), matching cpu_riscv_set_rtc_timer's qemu_irq semantics.
type TimerIRQ interface {
	SetLevel(active bool)
}

// ClockTimer implements the 64-bit free-running real-time counter and its
// compare register described in spec §4.8, grounded on thead_clint.c's
// cpu_riscv_read_rtc/thead_clint_write_timecmp. The counter is derived
// from CLOCK_MONOTONIC via golang.org/x/sys/unix rather than a
// Go-runtime wall clock, so it survives system-clock adjustments the way
// the QEMU original's qemu_clock_get_ns(CLOCK_VIRTUAL) does.
type ClockTimer struct {
	mu sync.Mutex

	epoch unix.Timespec

	timecmp uint64
	msip    uint32

	swirq   SoftwareIRQ
	irq     TimerIRQ
	pending *time.Timer
}

// NewClockTimer constructs a timer whose RTC starts counting from zero at
// the moment of construction.
func NewClockTimer(swirq SoftwareIRQ, irq TimerIRQ) *ClockTimer {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		log.Printf("ClockTimer: clock_gettime failed: %v", err)
	}
	return &ClockTimer{
		epoch:   ts,
		timecmp: ^uint64(0),
		swirq:   swirq,
		irq:     irq,
	}
}

// Size implements devices.Device.
func (c *ClockTimer) Size() uint64 { return clintRegionSize }

func (c *ClockTimer) rtcNow() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		log.Printf("ClockTimer: clock_gettime failed: %v", err)
		return 0
	}
	ns := ts.Nano() - c.epoch.Nano()
	if ns < 0 {
		ns = 0
	}
	return uint64(ns) * clintRTCFrequencyHz / uint64(time.Second)
}

// Read implements devices.Device. Only 4-byte, 4-byte-aligned accesses
// are serviced; anything else is logged and dropped, per thead_clint.c's
// access-size guard.
func (c *ClockTimer) Read(offset uint64, size int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size != 4 || offset%4 != 0 {
		log.Printf("ClockTimer: unsupported access size=%d at offset 0x%x", size, offset)
		return 0, nil
	}

	switch offset {
	case clintRegMSIP:
		return uint64(c.msip), nil
	case clintRegTimecmpLo:
		return c.timecmp & 0xFFFFFFFF, nil
	case clintRegTimecmpHi:
		return c.timecmp >> 32, nil
	case clintRegTimeLo:
		return c.rtcNow() & 0xFFFFFFFF, nil
	case clintRegTimeHi:
		return c.rtcNow() >> 32, nil
	default:
		log.Printf("ClockTimer: read from unmapped offset 0x%x", offset)
		return 0, nil
	}
}

// Write implements devices.Device.
func (c *ClockTimer) Write(offset uint64, size int, value uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if size != 4 || offset%4 != 0 {
		log.Printf("ClockTimer: unsupported access size=%d at offset 0x%x", size, offset)
		return nil
	}

	switch offset {
	case clintRegMSIP:
		c.msip = 1
		if c.swirq != nil {
			c.swirq.Pulse()
		}
	case clintRegTimecmpLo:
		c.timecmp = (c.timecmp &^ 0xFFFFFFFF) | value
		c.applyTimecmp()
	case clintRegTimecmpHi:
		c.timecmp = (c.timecmp & 0xFFFFFFFF) | (value << 32)
		c.applyTimecmp()
	case clintRegTimeLo, clintRegTimeHi:
		// RTC is read-only; the reference implementation logs and
		// drops writes here too.
		log.Printf("ClockTimer: ignored write to read-only RTC register at 0x%x", offset)
	default:
		log.Printf("ClockTimer: write to unmapped offset 0x%x", offset)
	}
	return nil
}

// applyTimecmp reproduces thead_clint_write_timecmp: fire immediately if
// the compare value has already passed, else arm a one-shot pulse for
// the remaining delta.
func (c *ClockTimer) applyTimecmp() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}

	now := c.rtcNow()
	if c.timecmp <= now {
		if c.irq != nil {
			c.irq.SetLevel(true)
		}
		return
	}
	if c.irq != nil {
		c.irq.SetLevel(false)
	}

	deltaTicks := c.timecmp - now
	// Saturate instead of overflowing time.Duration for far-future compares.
	nsPerTick := uint64(time.Second) / clintRTCFrequencyHz
	delay := time.Duration(1<<63 - 1)
	if deltaTicks <= uint64(delay)/nsPerTick {
		delay = time.Duration(deltaTicks * nsPerTick)
	}
	c.pending = time.AfterFunc(delay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.irq != nil {
			c.irq.SetLevel(true)
		}
	})
}
