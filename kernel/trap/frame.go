// Package trap bridges a supervisor-call exception to the request dispatcher.
package trap

import "unsafe"

// Frame is the basic exception frame the core stacks on exception entry,
// lowest address first.
type Frame struct {
	R0   uint32 // argument 0, result on return
	R1   uint32
	R2   uint32
	R3   uint32 // reserved
	R12  uint32
	LR   uint32 // caller's link register
	PC   uint32 // return address, the instruction after the SVC
	XPSR uint32
}

// FrameWords is the number of machine words in a Frame.
const FrameWords = 8

// FrameBytes is the size of a Frame in memory.
const FrameBytes = FrameWords * 4

var _ [FrameBytes - unsafe.Sizeof(Frame{})]struct{}
var _ [unsafe.Sizeof(Frame{}) - FrameBytes]struct{}

// FrameAt overlays a Frame on the stacked words at sp. sp must point at a
// live exception frame; nothing is copied.
func FrameAt(sp uintptr) *Frame {
	return (*Frame)(unsafe.Pointer(sp))
}

// FrameOf overlays a Frame on the first FrameWords entries of words.
func FrameOf(words []uint32) *Frame {
	_ = words[FrameWords-1]
	return (*Frame)(unsafe.Pointer(&words[0]))
}

// SetResult writes the signed handler result into the return-value slot.
func (f *Frame) SetResult(v int32) {
	f.R0 = uint32(v)
}

// Result returns the return-value slot as a signed value.
func (f *Frame) Result() int32 {
	return int32(f.R0)
}
