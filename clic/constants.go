// Updated clic/constants.go
package clic

// Privilege modes, per the CLIC mode encoding (U=0, S=1, M=3; 2 is reserved).
const (
	ModeU uint8 = 0
	ModeS uint8 = 1
	ModeM uint8 = 3
)

// Trigger-type encoding of clicintattr.trig.
const (
	TrigPosLevel uint8 = 0b00
	TrigPosEdge  uint8 = 0b01
	TrigNegLevel uint8 = 0b10
	TrigNegEdge  uint8 = 0b11

	trigEdgeBit = 0b01 // TRIG_TYPE bit 0: edge vs level
	trigInvBit  = 0b10 // TRIG_TYPE bit 1: negative polarity
)

// clicintattr bit layout: mode[7:6] | reserved[5:3] WPRI | trig[2:1] | shv[0].
const (
	attrModeShift = 6
	attrModeMask  = 0xC0
	attrTrigShift = 1
	attrTrigMask  = 0x06
	attrShvMask   = 0x01
	attrRWMask    = attrModeMask | attrTrigMask | attrShvMask
)

// cliccfg bit layout: unlbits[27:24] | snlbits[19:16] | nmbits[5:4] | mnlbits[3:0].
const (
	cfgUnlbitsShift = 24
	cfgUnlbitsMask  = 0x0F << cfgUnlbitsShift
	cfgSnlbitsShift = 16
	cfgSnlbitsMask  = 0x0F << cfgSnlbitsShift
	cfgNmbitsShift  = 4
	cfgNmbitsMask   = 0x03 << cfgNmbitsShift
	cfgMnlbitsShift = 0
	cfgMnlbitsMask  = 0x0F << cfgMnlbitsShift
)

// Sort-key / cause-word layout.
const (
	IRQBits        = 12
	MaxIRQCount    = 1 << IRQBits
	intcfgModeShift = 8
	intcfgModeMask  = 0x300
	intcfgCtlMask   = 0xFF

	MaxClicIntCtlBits = 8

	causeModeShift  = 12 // placed above IRQBits; level occupies the byte above mode
	causeLevelShift = 14
)

// clicinttrig register layout.
const (
	IntTrigRegs     = 32
	IntTrigStart    = 0x10 // word index of the first clicinttrig register within the config region
	IntTrigTrapEna  = 1 << 31
	IntTrigNxtiEna  = 1 << 30
	IntTrigIRQNMask = 0x1FFF
	IntTrigMask     = IntTrigTrapEna | IntTrigNxtiEna | IntTrigIRQNMask
)

// MMIO region layout, relative to a view's base address.
const (
	ConfigRegionSize = 0x1000 // offsets below this are global config; at/above, per-IRQ quartets
	OffsetCliccfg    = 0x0000
	OffsetMintThresh = 0x0008 // v0.8 compatibility only
	OffsetIntTrigLo  = 0x0040
	OffsetIntTrigHi  = 0x00BC
	OffsetIntCtlBase = 0x1000
)

// Version selects the firmware-facing CLIC dialect.
type Version string

const (
	VersionV09    Version = "v0.9"
	VersionV09Jmp Version = "v0.9-jmp"
	VersionV08    Version = "v0.8"
)
