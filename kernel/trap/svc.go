package trap

const (
	// SVCWidth is the size in bytes of the Thumb SVC instruction. The stacked
	// PC points this far past it.
	SVCWidth = 2

	svcOpcode = 0xDF00
	svcMask   = 0xFF00
)

// Fetcher reads instruction memory.
type Fetcher interface {
	Halfword(addr uint32) uint16
}

// EncodeSVC returns the Thumb encoding of "svc #id".
func EncodeSVC(id uint8) uint16 {
	return svcOpcode | uint16(id)
}

// IsSVC reports whether insn is a Thumb SVC instruction.
func IsSVC(insn uint16) bool {
	return insn&svcMask == svcOpcode
}

// RequestID recovers the SVC immediate from the instruction preceding the
// stacked return address.
func RequestID(fetch Fetcher, pc uint32) uint8 {
	insn := fetch.Halfword(pc - SVCWidth)
	return uint8(insn & 0xFF)
}
