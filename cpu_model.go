// Updated cpu_model.go
package machine

import (
	"sync"

	"example.com/clic-core/clic"
)

// CPUModel is a minimal stand-in for the hart-side half of the CLIC
// coupling contract (clic.CPU): privilege mode, per-mode thresholds, and
// the single outgoing interrupt line. It does not execute instructions —
// this repo emulates the interrupt controller and its peripherals, not a
// RISC-V core — but it gives the CLIC a real collaborator to drive and
// gives tests and the platform wiring layer a place to observe what the
// core asked for.
//
// Grounded on the teacher's VCPU (core_engine/vcpu.go): a small struct
// guarded by its own mutex, exposing getters/setters instead of public
// fields, constructed by the owning Machine.
type CPUModel struct {
	mu sync.Mutex

	priv             uint8
	mil, sil, uil    byte
	irqAsserted      bool
	pendingCause     uint32
	raiseCount       int
	lowerCount       int
}

// NewCPUModel constructs a CPUModel booted into machine mode with all
// thresholds at zero (every pending interrupt is eligible).
func NewCPUModel() *CPUModel {
	return &CPUModel{priv: clic.ModeM}
}

// CurrentPriv implements clic.CPU.
func (c *CPUModel) CurrentPriv() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priv
}

// Thresholds implements clic.CPU.
func (c *CPUModel) Thresholds() (mil, sil, uil byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mil, c.sil, c.uil
}

// RaiseIRQ implements clic.CPU.
func (c *CPUModel) RaiseIRQ(cause uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.irqAsserted = true
	c.pendingCause = cause
	c.raiseCount++
}

// LowerIRQ implements clic.CPU.
func (c *CPUModel) LowerIRQ() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.irqAsserted = false
	c.lowerCount++
}

// SetPriv changes the hart's current privilege mode. Mode-switch paths
// (mret/sret/uret in a full core) call this and then must re-run
// arbitration, since eligibility depends on CurrentPriv.
func (c *CPUModel) SetPriv(mode uint8) {
	c.mu.Lock()
	c.priv = mode
	c.mu.Unlock()
}

// SetThresholds updates the mintstatus-derived per-mode thresholds.
func (c *CPUModel) SetThresholds(mil, sil, uil byte) {
	c.mu.Lock()
	c.mil, c.sil, c.uil = mil, sil, uil
	c.mu.Unlock()
}

// Pending reports whether the interrupt line is currently asserted and,
// if so, the cause word latched for delivery.
func (c *CPUModel) Pending() (asserted bool, cause uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.irqAsserted, c.pendingCause
}
