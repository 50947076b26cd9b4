// Package mixing implements the channel mixing codec.
//
// A value produced jointly by both channels is laid out on the wire so that
// the bytes attributable to one channel occupy fixed positions and the twin's
// bytes occupy the complementary positions. Every scheme is a permutation,
// so Unmix(Mix(x)) == x for any length and any content.
package mixing

import (
	"fmt"
	"strings"

	"github.com/robotalks/safeio/pkg/channel"
)

// Scheme selects the byte placement.
type Scheme int

// Schemes.
const (
	// SortedOddEven places even-indexed source bytes ascending followed by
	// odd-indexed source bytes descending:
	//	n=8: s0 s1 s2 s3 s4 s5 s6 s7 -> s0 s2 s4 s6 s7 s5 s3 s1
	//	n=5: s0 s1 s2 s3 s4          -> s0 s2 s4 s3 s1
	SortedOddEven Scheme = iota
	// InterlaceEven puts the first ceil(n/2) source bytes on even positions
	// and the rest on odd positions.
	InterlaceEven
	// InterlaceOdd puts the first floor(n/2) source bytes on odd positions
	// and the rest on even positions.
	InterlaceOdd
	// SplitHalves keeps source order; channel 1 owns the first ceil(n/2)
	// positions.
	SplitHalves
)

var schemeNames = []string{"sorted-odd-even", "interlace-even", "interlace-odd", "split-halves"}

// String implements fmt.Stringer.
func (s Scheme) String() string {
	if s >= 0 && int(s) < len(schemeNames) {
		return schemeNames[s]
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme parses the name returned by String.
func ParseScheme(name string) (Scheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for n, str := range schemeNames {
		if str == name {
			return Scheme(n), nil
		}
	}
	return SortedOddEven, fmt.Errorf("unknown mixing scheme: %q", name)
}

// position returns the output position of source byte i.
func (s Scheme) position(i, n int) int {
	hi := (n + 1) / 2
	lo := n / 2
	switch s {
	case SortedOddEven:
		if i%2 == 0 {
			return i / 2
		}
		return n - 1 - i/2
	case InterlaceEven:
		if i < hi {
			return i * 2
		}
		return (i-hi)*2 + 1
	case InterlaceOdd:
		if i < lo {
			return i*2 + 1
		}
		return (i - lo) * 2
	}
	return i
}

// Mix writes the mixed form of src into dst. Only min(len(dst), len(src))
// bytes are processed; dst and src must not overlap.
func (s Scheme) Mix(dst, src []byte) {
	n := length(dst, src)
	for i := 0; i < n; i++ {
		dst[s.position(i, n)] = src[i]
	}
}

// Unmix reverses Mix.
func (s Scheme) Unmix(dst, src []byte) {
	n := length(dst, src)
	for i := 0; i < n; i++ {
		dst[i] = src[s.position(i, n)]
	}
}

// Owner tells which channel contributes the mixed byte at pos.
func (s Scheme) Owner(pos, n int) channel.ID {
	switch s {
	case InterlaceEven:
		if pos%2 == 0 {
			return channel.Ch1
		}
		return channel.Ch2
	case InterlaceOdd:
		if pos%2 == 1 {
			return channel.Ch1
		}
		return channel.Ch2
	}
	// SortedOddEven and SplitHalves: the first ceil(n/2) positions.
	if pos < (n+1)/2 {
		return channel.Ch1
	}
	return channel.Ch2
}

// Half mixes src into dst and zeroes every position not owned by ch,
// producing one channel's contribution.
func (s Scheme) Half(ch channel.ID, dst, src []byte) {
	s.Mix(dst, src)
	n := length(dst, src)
	for pos := 0; pos < n; pos++ {
		if s.Owner(pos, n) != ch {
			dst[pos] = 0
		}
	}
}

// Combine merges two complementary halves into dst.
func Combine(dst, a, b []byte) {
	n := length(dst, a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dst[i] = a[i] | b[i]
	}
}

func length(a, b []byte) int {
	if len(a) < len(b) {
		return len(a)
	}
	return len(b)
}
