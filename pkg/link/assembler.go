package link

// VerifyFunc checks a complete frame, usually its CRC.
type VerifyFunc func([]byte) bool

// AssemblerStats are counters of an Assembler.
type AssemblerStats struct {
	Frames  uint64
	Corrupt uint64
	Resyncs uint64
}

// Assembler builds fixed-size frames from received bytes. There is no
// start marker on the wire: frames are delimited by an idle gap, so a gap
// in the middle of a frame discards what has been received so far.
type Assembler struct {
	Verify VerifyFunc

	buf   []byte
	recv  int
	stats AssemblerStats
}

// NewAssembler creates an Assembler for frames of size bytes.
func NewAssembler(size int, verify VerifyFunc) *Assembler {
	return &Assembler{Verify: verify, buf: make([]byte, size)}
}

// Size returns the frame size.
func (a *Assembler) Size() int {
	return len(a.buf)
}

// Receiving tells if a frame is partially received.
func (a *Assembler) Receiving() bool {
	return a.recv > 0
}

// Stats returns the counters.
func (a *Assembler) Stats() AssemblerStats {
	return a.stats
}

// Push consumes one byte. It returns the frame when it is complete and
// verified. The returned slice is reused by the next frame.
func (a *Assembler) Push(b byte) ([]byte, bool) {
	a.buf[a.recv] = b
	if a.recv++; a.recv < len(a.buf) {
		return nil, false
	}
	a.recv = 0
	if a.Verify != nil && !a.Verify(a.buf) {
		a.stats.Corrupt++
		return nil, false
	}
	a.stats.Frames++
	return a.buf, true
}

// Gap notifies the line has been idle.
func (a *Assembler) Gap() {
	if a.recv > 0 {
		a.recv = 0
		a.stats.Resyncs++
	}
}
