package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/fault"
)

func sampleFields() *Fields {
	f := &Fields{
		Control: ControlRunning | ControlToggle,
		NonSafety: NonSafety{
			Command:  CmdStatus,
			Fragment: 0,
			Length:   0x0302,
		},
		SPDU: SPDU{
			IOData:       IODataMsg{Length: IODataPayloadSize, Address: 0x1234},
			TimeCoord:    TimeCoordMsg{Address: 0xabcd},
			IODataDUI:    3,
			TimeCoordDUI: 9,
		},
		SideIO: SideIO{Inputs: 0x0f, InputQualifiers: 0x0e, OutputQualifiers: 0x03, RampDown: 0x01},
	}
	for i := range f.NonSafety.Data {
		f.NonSafety.Data[i] = byte(0x40 + i)
	}
	for i := range f.SPDU.IOData.Payload {
		f.SPDU.IOData.Payload[i] = byte(0x80 + i)
	}
	for i := range f.SPDU.TimeCoord.Payload {
		f.SPDU.TimeCoord.Payload[i] = byte(0xc0 + i)
	}
	return f
}

func TestLayout(t *testing.T) {
	require.Equal(t, 65, Size)
	require.Equal(t, 17, StartupSize)
	require.Equal(t, Size-CRCSize, CRCOffset)
}

func TestMergeLayout(t *testing.T) {
	var tg Telegram
	Merge(&tg, sampleFields())
	require.Equal(t, ControlRunning|ControlToggle, tg[0])
	require.Equal(t, []byte{CmdStatus, 0, 0x02, 0x03}, tg[1:5])
	require.Equal(t, byte(0x40), tg[5])
	require.Equal(t, []byte{IODataPayloadSize, 0, 0x34, 0x12}, tg[29:33])
	require.Equal(t, byte(0x80), tg[33])
	require.Equal(t, []byte{0xcd, 0xab}, tg[49:51])
	require.Equal(t, byte(0xc0), tg[51])
	require.Equal(t, []byte{3, 9}, tg[57:59])
	require.Equal(t, []byte{0x0f, 0x0e, 0x03, 0x01}, tg[59:63])
	crc := Checksum(tg[:CRCOffset])
	require.Equal(t, []byte{byte(crc), byte(crc >> 8)}, tg[63:65])
	require.Equal(t, crc, tg.CRC())
}

func TestMergeSplit(t *testing.T) {
	var tg Telegram
	f := sampleFields()
	Merge(&tg, f)
	require.True(t, tg.Verify())
	require.Equal(t, *f, Split(&tg))
}

func TestSingleBitFlip(t *testing.T) {
	var tg Telegram
	Merge(&tg, sampleFields())
	for i := 0; i < CRCOffset; i++ {
		for bit := uint(0); bit < 8; bit++ {
			flipped := tg
			flipped[i] ^= 1 << bit
			require.False(t, flipped.Verify(), "byte %d bit %d", i, bit)
		}
	}
}

func TestChecksumKnownValue(t *testing.T) {
	// CRC-16/CCITT-FALSE check value.
	require.Equal(t, uint16(0x29b1), Checksum([]byte("123456789")))
}

func TestFromBytes(t *testing.T) {
	_, ok := FromBytes(make([]byte, Size-1))
	require.False(t, ok)
	var tg Telegram
	Merge(&tg, sampleFields())
	parsed, ok := FromBytes(tg[:])
	require.True(t, ok)
	require.Equal(t, tg, *parsed)
}

func TestStartup(t *testing.T) {
	id := Identity{
		VendorID: 0x011b,
		ModuleID: 0x0042,
		Firmware: [3]byte{1, 2, 3},
		Serial:   0xdeadbeef,
	}
	id.SetLayoutSizes()
	var s Startup
	BuildStartup(&s, &id)
	require.True(t, s.Verify())
	require.Equal(t, []byte{0x1b, 0x01, 0x42, 0x00, 1, 2, 3, 0xef, 0xbe, 0xad, 0xde}, s[:11])
	require.Equal(t, []byte{SPDUSize, IODataPayloadSize, SPDUSize, IODataPayloadSize}, s[11:15])
	require.Equal(t, id, ParseStartup(&s))
	s[3] ^= 0x10
	require.False(t, s.Verify())
}

func TestReassembler(t *testing.T) {
	msg := ConfigMessage{ConfigID: 0x01020304, Timestamp: 77}
	msg.Delays[0], msg.Delays[3] = 250, 5
	msg.Guards[0], msg.Guards[1] = 0x03, 0x0c
	encoded := make([]byte, ConfigSize)
	EncodeConfig(encoded, &msg)

	var r Reassembler
	for round := 0; round < 2; round++ {
		for i := 0; i < ConfigFragments; i++ {
			var ns NonSafety
			ConfigFragment(&ns, i, encoded)
			require.Equal(t, CmdConfigFragment, ns.Command)
			require.Equal(t, uint16(FragmentSizes[i]), ns.Length)
			out, done := r.PushFragment(int(ns.Fragment), ns.Data[:ns.Length])
			if i < ConfigFragments-1 {
				require.False(t, done)
				require.Nil(t, out)
				require.Equal(t, i+1, r.Counter())
			} else {
				require.True(t, done)
				require.Equal(t, msg, *out)
				require.Equal(t, 0, r.Counter())
			}
		}
	}
}

func TestReassemblerRestart(t *testing.T) {
	var r Reassembler
	_, done := r.PushFragment(0, make([]byte, 12))
	require.False(t, done)
	_, done = r.PushFragment(0, make([]byte, 12))
	require.False(t, done)
	require.Equal(t, 1, r.Counter())
	r.Reset()
	require.Equal(t, 0, r.Counter())
}

func TestReassemblerDropsPartialValue(t *testing.T) {
	testCases := []struct {
		name   string
		pushes []int
		size   int
	}{
		{"skipped fragment", []int{0, 2}, 16},
		{"missing first", []int{1}, 16},
		{"short", []int{0}, 4},
		{"repeated", []int{0, 1, 1}, 16},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var r Reassembler
			for _, idx := range tc.pushes {
				out, done := r.PushFragment(idx, make([]byte, tc.size))
				require.False(t, done)
				require.Nil(t, out)
			}
			require.Equal(t, uint64(1), r.Dropped())
			require.Equal(t, 0, r.Counter())
		})
	}

	var r Reassembler
	r.PushFragment(0, make([]byte, 12))
	r.PushFragment(2, make([]byte, 8))
	for i := 0; i < ConfigFragments; i++ {
		_, done := r.PushFragment(i, make([]byte, FragmentSizes[i]))
		require.Equal(t, i == ConfigFragments-1, done)
	}
	require.Equal(t, uint64(1), r.Dropped())
}

func TestReassemblerFaults(t *testing.T) {
	restore := fault.SetHandler(fault.HandleFaultFunc(func(*fault.Error) {}))
	defer restore()

	testCases := []struct {
		name   string
		pushes []int
		size   int
		code   fault.Code
	}{
		{"negative", []int{-1}, 16, fault.FragmentCounter},
		{"too large", []int{3}, 16, fault.FragmentCounter},
		{"after valid", []int{0, 1, 4}, 16, fault.FragmentCounter},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var r Reassembler
			e := fault.Catch(func() {
				for _, idx := range tc.pushes {
					r.PushFragment(idx, make([]byte, tc.size))
				}
			})
			require.NotNil(t, e)
			require.Equal(t, tc.code, e.Code)
		})
	}
}
