// Updated clic/cpu.go
package clic

// Component G: CPU coupling. The CLIC core never owns or constructs the
// CPU model; it holds a non-owning handle to one, per spec §9's note on
// cyclic back-references ("the view stores a borrow-like reference ...
// no ownership cycles because the platform container is the sole owner").

// CPU is the contract the host CPU emulator must satisfy for a CLIC core
// to be attached to it. Implementations live outside this package — the
// platform wiring layer owns both the CPU and the CLIC and connects them.
type CPU interface {
	// CurrentPriv returns the hart's current privilege mode (ModeU/S/M).
	CurrentPriv() uint8

	// Thresholds returns the per-mode interrupt-level thresholds taken
	// from mintstatus (spec §6: "mil, sil, uil threshold bytes").
	Thresholds() (mil, sil, uil byte)

	// RaiseIRQ asserts the single outgoing interrupt line with the given
	// cause word latched for the CPU to sample (spec §3 "CPU coupling").
	RaiseIRQ(cause uint32)

	// LowerIRQ deasserts the interrupt line (arbitration found nothing
	// eligible — the InService→Idle transition of spec §4.6's delivery
	// state machine).
	LowerIRQ()
}

// DecodeCause is the CPU-facing helper named in spec §6:
// "decode_cause(exccode) → (mode, il, irq)".
func DecodeCause(exccode uint32) (mode uint8, level byte, irq uint16) {
	return decodeCause(exccode)
}
