// Updated clic/record.go
package clic

// Component B: the per-IRQ interrupt record store, plus the global
// configuration registers that aren't part of any one record.
//
// Per spec §9's design note, the per-IRQ quartet (ip, ie, attr, ctl) is
// kept as one record struct per IRQ, not four parallel byte arrays as the
// reference C implementation does it (riscv_clic.h: clicintip/ie/attr/ctl
// are four separate uint8_t* slices). Multi-byte MMIO accesses decompose
// into field writes at the dispatcher (view.go), not at storage.

// record is one interrupt source's configuration/pending state.
type record struct {
	ip   bool
	ie   bool
	mode uint8
	trig uint8
	shv  bool
	ctl  byte // raw, as last written; read-back padding applied on read

	lineLevel bool // last known input-wire level, for edge detection
}

func (r *record) attrByte() byte {
	return encodeAttr(r.mode, r.trig, r.shv)
}

// globalConfig holds the CLIC-wide registers that are not per-IRQ.
type globalConfig struct {
	nmbits  uint8
	mnlbits uint8
	snlbits uint8
	unlbits uint8

	clicinttrig [IntTrigRegs]uint32

	// v0.8 compatibility thresholds; v0.9 keeps these in CPU CSRs instead.
	mintthresh uint32
	sintthresh uint32
	uintthresh uint32
}

func newGlobalConfig(mnlbits, snlbits, unlbits uint8) globalConfig {
	return globalConfig{
		mnlbits: mnlbits,
		snlbits: snlbits,
		unlbits: unlbits,
	}
}

func (g *globalConfig) cliccfg() uint32 {
	return encodeCliccfg(g.nmbits, g.mnlbits, g.snlbits, g.unlbits)
}
