// Updated clic/arbiter.go
package clic

// Component F: arbitration / delivery. Scans the active list (C) against
// the processor's per-mode thresholds and raises the CPU's single
// interrupt line for the highest-priority eligible interrupt, per the
// algorithm in spec §4.6 (mirrors riscv_clic_next_interrupt).

func maxByte(a, b byte) byte {
	if a > b {
		return a
	}
	return b
}

// thresholds returns il[mode] for mode in {U, S, reserved, M}, combining
// the CPU-side mintstatus thresholds with the v0.8-compatibility
// CLIC-resident thresholds. Reserved slot il[2] is always 0 (spec §4.6:
// "reserved slot il[2]=0").
func (s *State) thresholds() [4]byte {
	mil, sil, uil := s.cpu.Thresholds()
	var il [4]byte
	il[ModeU] = uil
	il[ModeS] = sil
	il[2] = 0
	il[ModeM] = mil

	if s.version == VersionV08 {
		il[ModeU] = maxByte(il[ModeU], byte(s.cfg.uintthresh))
		il[ModeS] = maxByte(il[ModeS], byte(s.cfg.sintthresh))
		il[ModeM] = maxByte(il[ModeM], byte(s.cfg.mintthresh))
	}
	return il
}

// arbitrate must be called with mu held. It implements the scan/break
// algorithm verbatim from spec §4.6, including the vectored-edge
// auto-clear and the early-break optimization the sort order enables.
func (s *State) arbitrate() {
	curPriv := s.cpu.CurrentPriv()
	il := s.thresholds()

	for _, e := range s.active.entries {
		mode := uint8((e.cfg & intcfgModeMask) >> intcfgModeShift)
		ctl := byte(e.cfg & intcfgCtlMask)
		level, _ := levelPriority(ctl, s.clicintctlbits, s.nlbitsFor(mode))

		if mode < curPriv {
			break
		}
		if mode == curPriv && level < il[mode] {
			break
		}

		rec := &s.records[e.irq]
		if !rec.ip {
			continue
		}

		if s.shvEnabled && rec.shv && isEdge(rec.trig) {
			rec.ip = false // vectored-edge auto-clear on delivery
		}

		cause := encodeCause(e.irq, mode, level)
		s.cpu.RaiseIRQ(cause)
		return
	}

	s.cpu.LowerIRQ()
}
