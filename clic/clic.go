// Updated clic/clic.go
package clic

import (
	"fmt"
	"log"
	"sync"
)

// State is the CLIC core for a single hart (spec §3: "one CLIC instance
// serves exactly one hart"). It owns the interrupt record store (B), the
// active-sorted list (C), and the global configuration registers. MMIO
// reaches it through its M/S/U Views (E); input lines and the CPU side
// use the exported methods below.
//
// Concurrency: a single big-device lock guards the whole struct, matching
// the teacher's per-device sync.Mutex convention (serial.go, pit.go,
// rtc.go all guard their state with one lock acquired at the start of
// every exported operation).
type State struct {
	mu sync.Mutex

	hartid         uint32
	numSources     uint16
	clicintctlbits uint8
	version        Version
	shvEnabled     bool

	cfg     globalConfig
	records []record
	active  activeList

	cpu CPU

	prvS bool
	prvU bool

	M *View
	S *View
	U *View
}

// Config bundles the construction knobs named in spec §6
// ("Construction knobs").
type Config struct {
	HartID         uint32
	NumSources     uint16 // ≤ 4096
	ClicIntCtlBits uint8  // ≤ 8
	Version        Version

	// Base addresses for each privilege-mode view. A zero base disables
	// that privilege entirely (spec §9 open question: "view exists iff
	// the base address passed at construction was non-zero").
	MBase, SBase, UBase uint64

	ShvEnabled bool

	// Default level-bit widths, one per privilege mode.
	MNLBits, SNLBits, UNLBits uint8
}

// New constructs a CLIC core wired to cpu, with M/S/U views built
// according to cfg. Views whose base address is zero are left nil.
func New(cfg Config, cpu CPU) *State {
	if cfg.NumSources == 0 || cfg.NumSources > MaxIRQCount {
		panic(fmt.Sprintf("clic: invalid num_sources %d", cfg.NumSources))
	}
	if cfg.ClicIntCtlBits > MaxClicIntCtlBits {
		panic(fmt.Sprintf("clic: invalid clicintctlbits %d", cfg.ClicIntCtlBits))
	}

	s := &State{
		hartid:         cfg.HartID,
		numSources:     cfg.NumSources,
		clicintctlbits: cfg.ClicIntCtlBits,
		version:        cfg.Version,
		shvEnabled:     cfg.ShvEnabled,
		cfg:            newGlobalConfig(cfg.MNLBits, cfg.SNLBits, cfg.UNLBits),
		records:        make([]record, cfg.NumSources),
		cpu:            cpu,
		prvS:           cfg.SBase != 0,
		prvU:           cfg.UBase != 0,
	}

	// nmbits defaults to the widest partition the configured privileges
	// support, mirroring riscv_clic_realize's auto-default.
	switch {
	case s.prvS && s.prvU:
		s.cfg.nmbits = 2
	case s.prvS || s.prvU:
		s.cfg.nmbits = 1
	default:
		s.cfg.nmbits = 0
	}

	if cfg.MBase != 0 {
		s.M = &View{clic: s, mode: ModeM, base: cfg.MBase}
	}
	if s.prvS {
		s.S = &View{clic: s, mode: ModeS, base: cfg.SBase}
	}
	if s.prvU {
		s.U = &View{clic: s, mode: ModeU, base: cfg.UBase}
	}
	return s
}

// HartID returns the hart this core is attached to.
func (s *State) HartID() uint32 { return s.hartid }

// UseJumpTable reports whether the v0.9-jmp dialect is in effect (spec
// §6: "use_jump_table()").
func (s *State) UseJumpTable() bool { return s.version == VersionV09Jmp }

// IsEdgeTriggered is the CPU-facing helper from spec §6.
func (s *State) IsEdgeTriggered(irq uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(irq) >= len(s.records) {
		return false
	}
	return isEdge(s.records[irq].trig)
}

// IsSHV is the CPU-facing helper from spec §6.
func (s *State) IsSHV(irq uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(irq) >= len(s.records) {
		return false
	}
	return s.records[irq].shv
}

// CleanPending is the CPU-facing helper from spec §6: clears a pending
// bit outside of the MMIO path (used by the jump-table dialect after it
// has consumed an edge-triggered interrupt through the vector table).
func (s *State) CleanPending(irq uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(irq) >= len(s.records) {
		return
	}
	if s.records[irq].ip {
		s.records[irq].ip = false
		s.arbitrate()
	}
}

// SetLevel drives input line irq to the given level (spec §4.4, the
// trigger state machine's gpio-in). Apart from CleanPending, it is the
// only entry point external to MMIO that mutates pending state.
func (s *State) SetLevel(irq uint16, level bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(irq) >= len(s.records) {
		log.Printf("CLIC: hart %d: SetLevel on out-of-range irq %d", s.hartid, irq)
		return
	}
	rec := &s.records[irq]
	newIP := applyLevel(rec.trig, rec.lineLevel, level, rec.ip)
	rec.lineLevel = level
	if newIP != rec.ip {
		rec.ip = newIP
		s.arbitrate()
	}
}

// Arbitrate re-runs the delivery scan. Exposed so the CPU model can
// invoke it after changing mintstatus thresholds (spec §4.6: "Invoked
// on ... any threshold change (from CPU)").
func (s *State) Arbitrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arbitrate()
}

// visible implements the per-IRQ access-visibility table of spec §4.5
// point 3.
func (s *State) visible(viewMode, attrMode uint8) bool {
	switch s.cfg.nmbits {
	case 0:
		return viewMode == ModeM
	case 1:
		return viewMode == ModeM || attrMode <= ModeS
	case 2:
		return viewMode >= attrMode
	default:
		return false
	}
}

// effectiveMode implements riscv_clic_effective_mode (spec §4.5 point 4):
// the WARL remap applied to an attr.mode write.
func (s *State) effectiveMode(written, prev uint8) uint8 {
	switch s.cfg.nmbits {
	case 0:
		return ModeM
	case 1:
		if written <= ModeS {
			if s.prvS {
				return ModeS
			}
			return ModeU
		}
		return ModeM
	case 2:
		if written == 0b10 {
			return prev // reserved value, field retains its previous value
		}
		return written
	default:
		return prev
	}
}

// validNmbits reports whether writing nmbits=v is legal given the
// configured privileges (spec §4.5 point 2, the M-view's cliccfg write).
func (s *State) validNmbits(v uint8) bool {
	switch {
	case v == 0:
		return true
	case v == 1:
		return s.prvS || s.prvU
	case v == 2:
		return s.prvS && s.prvU
	default:
		return false
	}
}

func (s *State) nlbitsFor(mode uint8) uint8 {
	switch mode {
	case ModeM:
		return s.cfg.mnlbits
	case ModeS:
		return s.cfg.snlbits
	case ModeU:
		return s.cfg.unlbits
	default:
		return 0
	}
}
