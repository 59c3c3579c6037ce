// Updated clic/trigger.go
package clic

// Component D: the trigger state machine. Maps an input-line level change
// onto the pending bit according to the record's trig field, per the
// table in spec §4.4.

// applyLevel computes the new pending bit given the previous wire level,
// the new wire level, the current trig encoding, and the record's
// existing ip (needed for the edge cases, which only set — never clear —
// on the matching edge, and otherwise hold).
func applyLevel(trig uint8, prevLevel, newLevel bool, ip bool) bool {
	rising := !prevLevel && newLevel
	falling := prevLevel && !newLevel

	switch trig {
	case TrigPosLevel:
		return newLevel
	case TrigNegLevel:
		return !newLevel
	case TrigPosEdge:
		if rising {
			return true
		}
		return ip
	case TrigNegEdge:
		if falling {
			return true
		}
		return ip
	default:
		return ip
	}
}

// isEdge reports whether trig is one of the two edge-triggered encodings.
func isEdge(trig uint8) bool {
	return trig&trigEdgeBit != 0
}

// ipWriteAllowed reports whether software may write clicintip for this
// trig encoding. Per spec §4.5 bullet 6: only edge-triggered interrupts
// accept software pending writes; level-triggered ip always follows the
// wire.
func ipWriteAllowed(trig uint8) bool {
	return isEdge(trig)
}
