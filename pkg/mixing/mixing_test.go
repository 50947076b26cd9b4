package mixing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/channel"
)

var allSchemes = []Scheme{SortedOddEven, InterlaceEven, InterlaceOdd, SplitHalves}

func seq(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return b
}

func TestMixLayout(t *testing.T) {
	testCases := []struct {
		name   string
		scheme Scheme
		n      int
		expect []byte
	}{
		{"sorted even length", SortedOddEven, 8, []byte{1, 3, 5, 7, 8, 6, 4, 2}},
		{"sorted odd length", SortedOddEven, 5, []byte{1, 3, 5, 4, 2}},
		{"interlace even", InterlaceEven, 6, []byte{1, 4, 2, 5, 3, 6}},
		{"interlace even odd length", InterlaceEven, 5, []byte{1, 4, 2, 5, 3}},
		{"interlace odd", InterlaceOdd, 6, []byte{4, 1, 5, 2, 6, 3}},
		{"interlace odd odd length", InterlaceOdd, 5, []byte{3, 1, 4, 2, 5}},
		{"split halves", SplitHalves, 4, []byte{1, 2, 3, 4}},
		{"single byte", SortedOddEven, 1, []byte{1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := make([]byte, tc.n)
			tc.scheme.Mix(out, seq(tc.n))
			require.Equal(t, tc.expect, out)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, s := range allSchemes {
		t.Run(s.String(), func(t *testing.T) {
			for n := 0; n <= 33; n++ {
				src := make([]byte, n)
				rnd.Read(src)
				mixed, back := make([]byte, n), make([]byte, n)
				s.Mix(mixed, src)
				s.Unmix(back, mixed)
				require.Equal(t, src, back, "n=%d", n)
			}
		})
	}
}

func TestHalvesCombine(t *testing.T) {
	for _, s := range allSchemes {
		t.Run(s.String(), func(t *testing.T) {
			for _, n := range []int{1, 6, 7, 16} {
				src := seq(n)
				h1, h2, merged, full := make([]byte, n), make([]byte, n), make([]byte, n), make([]byte, n)
				s.Half(channel.Ch1, h1, src)
				s.Half(channel.Ch2, h2, src)
				for pos := 0; pos < n; pos++ {
					require.False(t, h1[pos] != 0 && h2[pos] != 0, "overlap at %d", pos)
				}
				Combine(merged, h1, h2)
				s.Mix(full, src)
				require.Equal(t, full, merged)
			}
		})
	}
}

func TestParseScheme(t *testing.T) {
	for _, s := range allSchemes {
		parsed, err := ParseScheme(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
	_, err := ParseScheme("zigzag")
	require.Error(t, err)
}
