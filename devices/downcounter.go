// Updated devices/downcounter.go
package devices

import (
	"log"
	"sync"
	"time"
)

const downCounterChannels = 4

// Per-channel register offsets, stride 0x14 bytes, per thead_timer.c's
// thead_timers_read/write (offset / 0x14 selects the channel, offset %
// 0x14 selects the register within it).
const (
	dcChannelStride  uint64 = 0x14
	dcRegLoadCount   uint64 = 0x00
	dcRegCurrentVal  uint64 = 0x08
	dcRegControl     uint64 = 0x10
	dcRegEOI         uint64 = 0x0c
	dcRegIntStatus   uint64 = 0x08 // aliases CurrentValue's offset within a channel block

	// The aggregate status block sits at channel index 8 (stride-0x14
	// past channel 3) and exposes three views of the same four latch
	// bits, per the ctrl_reg case in thead_timers_read.
	dcAggregateChannel       uint64 = 8
	dcAggTimersIntStatus     uint64 = 0x00
	dcAggTimersEOI           uint64 = 0x04
	dcAggTimersRawIntStatus  uint64 = 0x08

	dcRegionSize = 9 * dcChannelStride
)

// Control register bit layout.
const (
	dcCtrlEnable   uint32 = 1 << 0
	dcCtrlModeFree uint32 = 1 << 1 // 0 = free-running/continuous reload, 1 = user (one-shot)
	dcCtrlIEMask   uint32 = 1 << 2 // when SET, suppresses the IRQ line (inverted polarity, preserved as-is)
)

// downChannel holds one channel's register file and the ticker driving
// its countdown.
type downChannel struct {
	load    uint32
	current uint32
	control uint32
	latched bool // internal int_level: underflow latch, independent of the IE mask

	ticker *time.Ticker
	stop   chan struct{}
}

// DownCounter implements the 4-channel down-counting timer block
// described in spec §4.8, adapted from thead_timer.c's thead_timers_read
// /thead_timers_write/thead_timer_update/thead_timer_reload.
//
// The reference source keys its tick rate off a package-level
// thead_timer_freq global; spec §9 flags that as a design smell for a
// multi-instance emulator core, so here it is an explicit per-instance
// constructor parameter instead.
type DownCounter struct {
	mu       sync.Mutex
	freqHz   uint32
	channels [downCounterChannels]downChannel
	irq      [downCounterChannels]TimerIRQ
}

// NewDownCounter constructs a 4-channel down-counter ticking at freqHz,
// with each channel's underflow line wired to irq[n].
func NewDownCounter(freqHz uint32, irq [downCounterChannels]TimerIRQ) *DownCounter {
	return &DownCounter{freqHz: freqHz, irq: irq}
}

// Size implements devices.Device.
func (d *DownCounter) Size() uint64 { return dcRegionSize }

func (d *DownCounter) decode(offset uint64) (channel int, reg uint64) {
	return int(offset / dcChannelStride), offset % dcChannelStride
}

// Read implements devices.Device.
func (d *DownCounter) Read(offset uint64, size int) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, reg := d.decode(offset)
	if uint64(ch) == dcAggregateChannel {
		return uint64(d.readAggregate(reg)), nil
	}
	if ch < 0 || ch >= downCounterChannels {
		log.Printf("DownCounter: read from unmapped offset 0x%x", offset)
		return 0, nil
	}
	c := &d.channels[ch]
	switch reg {
	case dcRegLoadCount:
		return uint64(c.load), nil
	case dcRegCurrentVal:
		return uint64(c.current), nil
	case dcRegControl:
		return uint64(c.control), nil
	case dcRegEOI:
		return uint64(d.maskedStatus(ch)), nil
	default:
		log.Printf("DownCounter: read from unmapped channel register 0x%x", reg)
		return 0, nil
	}
}

// Write implements devices.Device.
func (d *DownCounter) Write(offset uint64, size int, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, reg := d.decode(offset)
	if uint64(ch) == dcAggregateChannel {
		d.writeAggregate(reg, uint32(value))
		return nil
	}
	if ch < 0 || ch >= downCounterChannels {
		log.Printf("DownCounter: write to unmapped offset 0x%x", offset)
		return nil
	}
	c := &d.channels[ch]
	switch reg {
	case dcRegLoadCount:
		c.load = uint32(value)
		c.current = c.load
		d.reload(ch)
	case dcRegControl:
		c.control = uint32(value)
		if c.control&dcCtrlEnable != 0 {
			d.start(ch)
		} else {
			d.haltChannel(ch)
		}
		d.updateIRQ(ch)
	case dcRegEOI:
		c.latched = false
		d.updateIRQ(ch)
	default:
		log.Printf("DownCounter: write to unmapped channel register 0x%x", reg)
	}
	return nil
}

// maskedStatus returns the channel's masked interrupt status: the
// latched underflow bit, gated by the same IE-mask inversion updateIRQ
// applies to the line itself.
func (d *DownCounter) maskedStatus(ch int) uint32 {
	c := &d.channels[ch]
	if c.latched && c.control&dcCtrlIEMask == 0 {
		return 1
	}
	return 0
}

func (d *DownCounter) readAggregate(reg uint64) uint32 {
	switch reg {
	case dcAggTimersIntStatus:
		var status uint32
		for i := range d.channels {
			status |= d.maskedStatus(i) << uint(i)
		}
		return status
	case dcAggTimersRawIntStatus:
		var raw uint32
		for i, c := range d.channels {
			if c.latched {
				raw |= 1 << uint(i)
			}
		}
		return raw
	default:
		log.Printf("DownCounter: read from unmapped aggregate register 0x%x", reg)
		return 0
	}
}

func (d *DownCounter) writeAggregate(reg uint64, value uint32) {
	switch reg {
	case dcAggTimersEOI:
		for i := range d.channels {
			d.channels[i].latched = false
			d.updateIRQ(i)
		}
	default:
		log.Printf("DownCounter: write to read-only aggregate register 0x%x", reg)
	}
}

// updateIRQ reproduces thead_timer_update's inverted polarity: the line
// is raised only when the latch is set AND the IE-mask bit is clear.
func (d *DownCounter) updateIRQ(ch int) {
	c := &d.channels[ch]
	active := c.latched && c.control&dcCtrlIEMask == 0
	if d.irq[ch] != nil {
		d.irq[ch].SetLevel(active)
	}
}

// reload reproduces thead_timer_reload. The reference source branches on
// the mode bit but both arms compute the identical limit — a bug in the
// original that spec §9 directs us to preserve rather than "fix" so this
// core stays bug-compatible with existing guest software.
func (d *DownCounter) reload(ch int) uint32 {
	c := &d.channels[ch]
	if c.control&dcCtrlModeFree != 0 {
		return c.load
	}
	return c.load
}

func (d *DownCounter) start(ch int) {
	d.haltChannel(ch)
	c := &d.channels[ch]
	if d.freqHz == 0 || c.current == 0 {
		return
	}
	period := time.Duration(c.current) * time.Second / time.Duration(d.freqHz)
	c.stop = make(chan struct{})
	c.ticker = time.NewTicker(period)
	stopCh := c.stop
	ticker := c.ticker
	go func() {
		<-ticker.C
		d.mu.Lock()
		defer d.mu.Unlock()
		select {
		case <-stopCh:
			return
		default:
		}
		d.underflow(ch)
	}()
}

func (d *DownCounter) haltChannel(ch int) {
	c := &d.channels[ch]
	if c.ticker != nil {
		c.ticker.Stop()
		close(c.stop)
		c.ticker = nil
		c.stop = nil
	}
}

func (d *DownCounter) underflow(ch int) {
	c := &d.channels[ch]
	c.latched = true
	c.current = d.reload(ch)
	d.updateIRQ(ch)
	if c.control&dcCtrlEnable != 0 {
		d.start(ch)
	}
}
