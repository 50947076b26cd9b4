package stream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
}

func TestPacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.Equal(t, ErrPacketTooLarge, rw.WritePacket(make([]byte, MaxPacketSize+1)))
	buf.Write([]byte{0xff, 0xff, 0, 0})
	_, err := rw.ReadPacket()
	require.Equal(t, ErrPacketTooLarge, err)
}
