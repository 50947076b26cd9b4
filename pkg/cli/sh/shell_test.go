package sh

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robotalks/safeio/pkg/channel"
)

func TestChannelArg(t *testing.T) {
	ch, err := ChannelArg("2")
	assert.NoError(t, err)
	assert.Equal(t, channel.Ch2, ch)
	for _, arg := range []string{"0", "3", "x", ""} {
		_, err := ChannelArg(arg)
		assert.Error(t, err, arg)
	}
}

func TestByteArg(t *testing.T) {
	cases := []struct {
		arg string
		val byte
		ok  bool
	}{
		{"3", 3, true},
		{"0x0f", 0x0f, true},
		{"0b101", 5, true},
		{"256", 0, false},
		{"-1", 0, false},
	}
	for _, c := range cases {
		val, err := ByteArg(c.arg)
		if c.ok {
			assert.NoError(t, err, c.arg)
			assert.Equal(t, c.val, val, c.arg)
		} else {
			assert.Error(t, err, c.arg)
		}
	}
}
