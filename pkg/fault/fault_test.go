package fault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRaiseNeverReturns(t *testing.T) {
	var got *Error
	restore := SetHandler(HandleFaultFunc(func(e *Error) { got = e }))
	defer restore()

	returned := false
	e := Catch(func() {
		Raise(InvalidIndex, "index %d", 9)
		returned = true
	})
	require.False(t, returned)
	require.NotNil(t, e)
	require.Equal(t, e, got)
	require.Equal(t, InvalidIndex, e.Code)
	require.Equal(t, "fail-safe: invalid index: index 9", e.Error())
}

func TestCatchPassesOtherPanics(t *testing.T) {
	require.PanicsWithValue(t, "boom", func() {
		Catch(func() { panic("boom") })
	})
	require.Nil(t, Catch(func() {}))
}

func TestCodeString(t *testing.T) {
	require.Equal(t, "fragment counter out of range", FragmentCounter.String())
	require.Equal(t, "fault(42)", Code(42).String())
}
