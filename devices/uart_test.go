// Updated devices/uart_test.go
package devices

import (
	"bytes"
	"testing"
)

// mockLine is a hand-rolled IRQLine recorder, in the style of
// devices/ne2000_test.go's MockInterruptRaiser.
type mockLine struct {
	level   bool
	changes int
}

func (m *mockLine) SetLevel(active bool) {
	if active != m.level {
		m.changes++
	}
	m.level = active
}

func newTestUART() (*UART, *bytes.Buffer, *mockLine) {
	var buf bytes.Buffer
	line := &mockLine{}
	return NewUART(&buf, line), &buf, line
}

func enableFIFO(u *UART, triggerBits byte) {
	u.Write(UARTRegIIRFCR<<2, 4, uint64(0x1|(triggerBits<<6)))
}

func enableRXInterrupt(u *UART) {
	u.Write(UARTRegIERDLH<<2, 4, uint64(uartIERRXAvail))
}

// Scenario 6 (spec §8): UART FIFO trigger threshold gating.
func TestReceive_FIFOTriggerThreshold(t *testing.T) {
	u, _, line := newTestUART()
	enableFIFO(u, 0x1) // trigger level index 1 -> 4 bytes
	enableRXInterrupt(u)
	u.Read(UARTRegIIRFCR<<2, 4) // consume the TX indication the IER write forces

	u.Receive('a')
	u.Receive('b')
	u.Receive('c')

	if line.level {
		t.Fatalf("expected no RX interrupt before reaching the trigger threshold")
	}
	iir, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(iir) != uartIntNone {
		t.Fatalf("expected IIR to read NONE before threshold, got 0x%x", iir)
	}

	u.Receive('d') // 4th byte reaches the threshold
	if !line.level {
		t.Fatal("expected RX interrupt once the FIFO reaches its trigger threshold")
	}
	iir, _ = u.Read(UARTRegIIRFCR<<2, 4)
	if byte(iir) != uartIntRX {
		t.Fatalf("expected IIR to read RX, got 0x%x", iir)
	}

	for _, want := range []byte{'a', 'b', 'c', 'd'} {
		got, _ := u.Read(UARTRegRBRTHRDLL<<2, 4)
		if byte(got) != want {
			t.Fatalf("expected drained byte %q, got %q", want, byte(got))
		}
	}

	lsr, _ := u.Read(UARTRegLSR<<2, 4)
	if byte(lsr)&uartLSRDR != 0 {
		t.Fatal("expected LSR.DR clear once the FIFO drains")
	}
	iir, _ = u.Read(UARTRegIIRFCR<<2, 4)
	if byte(iir) != uartIntNone {
		t.Fatalf("expected IIR NONE once drained below threshold, got 0x%x", iir)
	}
	if line.level {
		t.Fatal("expected RX interrupt to deassert once the FIFO drains")
	}
}

func TestTransmit_ForwardsToBackendAndRaisesTXInterrupt(t *testing.T) {
	u, buf, line := newTestUART()
	u.Write(UARTRegIERDLH<<2, 4, uint64(uartIERTHRE))

	u.Write(UARTRegRBRTHRDLL<<2, 4, uint64('X'))

	if buf.String() != "X" {
		t.Fatalf("expected backend to receive the transmitted byte, got %q", buf.String())
	}
	if !line.level {
		t.Fatal("expected TX interrupt to assert after a THR write with IER.THRE set")
	}
	iir, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(iir) != uartIntTX {
		t.Fatalf("expected IIR to read TX, got 0x%x", iir)
	}
}

func TestIIRRead_AutoDowngradesTXNotRX(t *testing.T) {
	u, _, _ := newTestUART()
	u.Write(UARTRegIERDLH<<2, 4, uint64(uartIERTHRE))
	u.Write(UARTRegRBRTHRDLL<<2, 4, uint64('Y')) // sets IIR = TX

	first, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(first) != uartIntTX {
		t.Fatalf("expected first IIR read to report TX, got 0x%x", first)
	}
	second, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(second) != uartIntNone {
		t.Fatalf("expected IIR to auto-downgrade to NONE after being read, got 0x%x", second)
	}

	enableRXInterrupt(u)
	u.Receive('z') // non-FIFO path, sets IIR = RX
	r1, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(r1) != uartIntRX {
		t.Fatalf("expected IIR RX, got 0x%x", r1)
	}
	r2, _ := u.Read(UARTRegIIRFCR<<2, 4)
	if byte(r2) != uartIntRX {
		t.Fatalf("RX IIR state must not auto-downgrade on read, got 0x%x", r2)
	}
}

func TestReceive_NonFIFOOverrunSetsOE(t *testing.T) {
	u, _, _ := newTestUART()
	u.Receive('1')
	u.Receive('2') // arrives before '1' was read -> overrun

	lsr, _ := u.Read(UARTRegLSR<<2, 4)
	if byte(lsr)&uartLSROE == 0 {
		t.Fatal("expected LSR.OE set on non-FIFO overrun")
	}
}

func TestDLAB_GatesDivisorLatchAccess(t *testing.T) {
	u, _, _ := newTestUART()

	u.Write(UARTRegIERDLH<<2, 4, 0x55) // DLAB=0: write IER
	u.Write(UARTRegLCR<<2, 4, uint64(uartLCRDLAB))
	u.Write(UARTRegRBRTHRDLL<<2, 4, 0x0C)
	u.Write(UARTRegIERDLH<<2, 4, 0x01)

	dll, _ := u.Read(UARTRegRBRTHRDLL<<2, 4)
	dlh, _ := u.Read(UARTRegIERDLH<<2, 4)
	if byte(dll) != 0x0C || byte(dlh) != 0x01 {
		t.Fatalf("expected DLL=0x0C DLH=0x01 while DLAB set, got DLL=0x%x DLH=0x%x", dll, dlh)
	}

	u.Write(UARTRegLCR<<2, 4, 0x00)
	ier, _ := u.Read(UARTRegIERDLH<<2, 4)
	if byte(ier) != 0x55 {
		t.Fatalf("expected IER to read back as 0x55 once DLAB cleared, got 0x%x", ier)
	}
}

func TestFCR_FIFOEnableToggleResetsRXBuffer(t *testing.T) {
	u, _, _ := newTestUART()
	enableFIFO(u, 0x0) // trigger level 1
	u.Receive('a')
	u.Receive('b')

	// toggling FIFO enable off then on clears the buffer per thead_uart_fcr_update
	u.Write(UARTRegIIRFCR<<2, 4, 0x00)
	enableFIFO(u, 0x0)

	if u.rxCount != 0 {
		t.Fatalf("expected RX FIFO reset on enable toggle, rxCount=%d", u.rxCount)
	}
}

func TestCanReceive_ReflectsMode(t *testing.T) {
	u, _, _ := newTestUART()
	if got := u.CanReceive(); got != 1 {
		t.Fatalf("expected non-FIFO credit 1, got %d", got)
	}
	u.Receive('a')
	if got := u.CanReceive(); got != 0 {
		t.Fatalf("expected non-FIFO credit 0 once occupied, got %d", got)
	}

	u2, _, _ := newTestUART()
	enableFIFO(u2, 0x3) // trigger level 14
	if got := u2.CanReceive(); got != uartFIFODepth {
		t.Fatalf("expected FIFO credit %d, got %d", uartFIFODepth, got)
	}
}
