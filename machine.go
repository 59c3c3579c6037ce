// Updated machine.go
package machine

import (
	"fmt"
	"io"
	"log"

	"example.com/clic-core/clic"
	"example.com/clic-core/devices"
)

// Config describes the MMIO layout and feature set of one hart's CLIC
// plus its attached peripherals. Mirrors the construction-time
// parameters the teacher's NewVirtualMachine takes (memory size, vcpu
// count, debug flag) generalized to this platform's device set.
type Config struct {
	HartID         uint32
	NumSources     uint16
	ClicIntCtlBits uint8
	Version        clic.Version
	ShvEnabled     bool

	CLICMBase uint64
	CLICSBase uint64 // 0 disables the supervisor view
	CLICUBase uint64 // 0 disables the user view
	MNLBits   uint8
	SNLBits   uint8
	UNLBits   uint8

	UARTBase     uint64
	UARTIRQ      uint16
	UARTBackend  io.Writer

	CLINTBase uint64
	MSIPIRQ   uint16
	TimerIRQ  uint16

	DownCounterBase uint64
	DownCounterHz   uint32
	DownCounterIRQs [4]uint16

	Debug bool
}

// Machine wires one hart's CLIC core, its CPU-side collaborator, and its
// UART/timer peripherals onto a shared MMIO bus, the way
// NewVirtualMachine (core_engine/virtual_machine.go) assembles the PIC,
// PIT, serial, RTC, and NE2000 devices onto an IOBus.
type Machine struct {
	Bus  *devices.Bus
	CPU  *CPUModel
	CLIC *clic.State

	UART        *devices.UART
	ClockTimer  *devices.ClockTimer
	DownCounter *devices.DownCounter

	debug bool
}

// clicLine adapts one CLIC input line to the collaborator interfaces
// devices.IRQLine/TimerIRQ/SoftwareIRQ expect, so peripherals never need
// to know they're driving a CLIC rather than a PIC.
type clicLine struct {
	core *clic.State
	irq  uint16
}

func (l clicLine) SetLevel(active bool) { l.core.SetLevel(l.irq, active) }

// Pulse drives a momentary rising edge: the line is raised and then
// lowered again, so every msip write produces a fresh edge. On an
// edge-configured line the pending bit stays set until the guest clears
// it on the CLIC side; on a level-configured line it follows the wire
// back to 0.
func (l clicLine) Pulse() {
	l.core.SetLevel(l.irq, true)
	l.core.SetLevel(l.irq, false)
}

// New constructs a Machine from cfg, registering every device at its
// configured base address.
func New(cfg Config) (*Machine, error) {
	if cfg.NumSources == 0 {
		return nil, fmt.Errorf("machine: NumSources must be non-zero")
	}
	if cfg.UARTBackend == nil {
		return nil, fmt.Errorf("machine: UARTBackend must not be nil")
	}

	cpu := NewCPUModel()
	core := clic.New(clic.Config{
		HartID:         cfg.HartID,
		NumSources:     cfg.NumSources,
		ClicIntCtlBits: cfg.ClicIntCtlBits,
		Version:        cfg.Version,
		MBase:          cfg.CLICMBase,
		SBase:          cfg.CLICSBase,
		UBase:          cfg.CLICUBase,
		ShvEnabled:     cfg.ShvEnabled,
		MNLBits:        cfg.MNLBits,
		SNLBits:        cfg.SNLBits,
		UNLBits:        cfg.UNLBits,
	}, cpu)

	bus := devices.NewBus()
	bus.Register(cfg.CLICMBase, core.M)
	if core.S != nil {
		bus.Register(cfg.CLICSBase, core.S)
	}
	if core.U != nil {
		bus.Register(cfg.CLICUBase, core.U)
	}

	uart := devices.NewUART(cfg.UARTBackend, clicLine{core: core, irq: cfg.UARTIRQ})
	bus.Register(cfg.UARTBase, uart)

	clint := devices.NewClockTimer(
		clicLine{core: core, irq: cfg.MSIPIRQ},
		clicLine{core: core, irq: cfg.TimerIRQ},
	)
	bus.Register(cfg.CLINTBase, clint)

	var dcIRQs [4]devices.TimerIRQ
	for i, irq := range cfg.DownCounterIRQs {
		dcIRQs[i] = clicLine{core: core, irq: irq}
	}
	downCounter := devices.NewDownCounter(cfg.DownCounterHz, dcIRQs)
	bus.Register(cfg.DownCounterBase, downCounter)

	if cfg.Debug {
		log.Printf("machine: hart %d online, %d CLIC sources, ctlbits=%d", cfg.HartID, cfg.NumSources, cfg.ClicIntCtlBits)
	}

	return &Machine{
		Bus:         bus,
		CPU:         cpu,
		CLIC:        core,
		UART:        uart,
		ClockTimer:  clint,
		DownCounter: downCounter,
		debug:       cfg.Debug,
	}, nil
}

// Step re-runs CLIC arbitration after an external change to the CPU
// model's privilege mode or thresholds — the two inputs to eligibility
// that the CLIC cannot observe on its own (spec §4.6: "the CPU must
// re-trigger arbitration on a mode switch or threshold write").
func (m *Machine) Step() {
	m.CLIC.Arbitrate()
}
