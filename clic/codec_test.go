// Updated clic/codec_test.go
package clic

import "testing"

func TestCliccfgRoundTrip(t *testing.T) {
	raw := encodeCliccfg(2, 8, 4, 1)
	nmbits, mnlbits, snlbits, unlbits := decodeCliccfg(raw)
	if nmbits != 2 || mnlbits != 8 || snlbits != 4 || unlbits != 1 {
		t.Fatalf("round trip mismatch: nmbits=%d mnlbits=%d snlbits=%d unlbits=%d", nmbits, mnlbits, snlbits, unlbits)
	}
}

func TestAttrRoundTrip(t *testing.T) {
	raw := encodeAttr(ModeS, TrigNegEdge, true)
	mode, trig, shv := decodeAttr(raw)
	if mode != ModeS || trig != TrigNegEdge || !shv {
		t.Fatalf("attr round trip mismatch: mode=%d trig=%d shv=%t", mode, trig, shv)
	}
}

func TestLevelPriority_NLBitsZero(t *testing.T) {
	level, priority := levelPriority(0x80, 8, 0)
	if level != 0xFF {
		t.Fatalf("expected level 0xFF when nlbits=0, got 0x%02X", level)
	}
	if priority != 0x80 {
		t.Fatalf("expected priority to equal ctl when nlbits=0, got 0x%02X", priority)
	}
}

func TestLevelPriority_NLBitsSaturatesPriority(t *testing.T) {
	_, priority := levelPriority(0xFF, 4, 4)
	if priority != 0xFF {
		t.Fatalf("expected priority 0xFF when nlbits >= clicintctlbits, got 0x%02X", priority)
	}
}

func TestIsEdgeAndIPWriteAllowed(t *testing.T) {
	for _, trig := range []uint8{TrigPosLevel, TrigNegLevel} {
		if isEdge(trig) || ipWriteAllowed(trig) {
			t.Errorf("trig 0b%02b: expected level-triggered, edge=false", trig)
		}
	}
	for _, trig := range []uint8{TrigPosEdge, TrigNegEdge} {
		if !isEdge(trig) || !ipWriteAllowed(trig) {
			t.Errorf("trig 0b%02b: expected edge-triggered, edge=true", trig)
		}
	}
}
