// Updated machine_test.go
package machine

import (
	"bytes"
	"testing"

	"example.com/clic-core/clic"
	"example.com/clic-core/devices"
)

func testConfig(backend *bytes.Buffer) Config {
	return Config{
		HartID:          0,
		NumSources:      64,
		ClicIntCtlBits:  8,
		Version:         clic.VersionV09,
		ShvEnabled:      true,
		CLICMBase:       0x0200_0000,
		MNLBits:         8,
		UARTBase:        0x1000_0000,
		UARTIRQ:         10,
		UARTBackend:     backend,
		CLINTBase:       0x0201_0000,
		MSIPIRQ:         3,
		TimerIRQ:        7,
		DownCounterBase: 0x0202_0000,
		DownCounterHz:   1000,
		DownCounterIRQs: [4]uint16{20, 21, 22, 23},
	}
}

func TestMachine_WiresDevicesOntoBus(t *testing.T) {
	var backend bytes.Buffer
	m, err := New(testConfig(&backend))
	if err != nil {
		t.Fatalf("unexpected error constructing machine: %v", err)
	}

	if _, err := m.Bus.Read(0x0200_0000, 4); err != nil {
		t.Fatalf("expected CLIC M-view to be mapped: %v", err)
	}
	if _, err := m.Bus.Read(0x1000_0000+devices.UARTRegLSR<<2, 4); err != nil {
		t.Fatalf("expected UART to be mapped: %v", err)
	}
}

func TestMachine_UARTInterruptReachesCLIC(t *testing.T) {
	var backend bytes.Buffer
	cfg := testConfig(&backend)
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Configure irq 10 for level-triggered machine-mode delivery via the
	// M-view's clicintctl/clicintie/clicintattr/clicintip quartet.
	base := clic.OffsetIntCtlBase + 4*uint64(cfg.UARTIRQ)
	if err := m.Bus.Write(cfg.CLICMBase+base+1, 1, 1); err != nil { // ie=1
		t.Fatalf("unexpected error enabling irq: %v", err)
	}
	if err := m.Bus.Write(cfg.CLICMBase+base+3, 1, 0x80); err != nil { // ctl priority
		t.Fatalf("unexpected error setting ctl: %v", err)
	}
	if err := m.Bus.Write(cfg.CLICMBase+base+2, 1, 0xC0); err != nil { // attr: M, pos-level, no shv
		t.Fatalf("unexpected error setting attr: %v", err)
	}
	// enable the UART's RX-available interrupt (IER bit 0)
	if err := m.Bus.Write(cfg.UARTBase+devices.UARTRegIERDLH<<2, 4, 0x01); err != nil {
		t.Fatalf("unexpected error setting UART IER: %v", err)
	}

	m.UART.Receive('x') // non-FIFO path raises RX immediately, driving the CLIC line via clicLine

	asserted, cause := m.CPU.Pending()
	if !asserted {
		t.Fatal("expected the UART's interrupt to reach the CPU model via the CLIC")
	}
	_, _, irq := clic.DecodeCause(cause)
	if irq != cfg.UARTIRQ {
		t.Fatalf("expected cause to name irq %d, got %d", cfg.UARTIRQ, irq)
	}
}
