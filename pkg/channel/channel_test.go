package channel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/safeio/pkg/fault"
)

func TestRole(t *testing.T) {
	p := Pair{First: 2, Second: 3}
	r1, r2 := NewRole(Ch1), NewRole(Ch2)
	require.Equal(t, 2, r1.SelfIndex(p))
	require.Equal(t, 3, r1.TwinIndex(p))
	require.Equal(t, 3, r2.SelfIndex(p))
	require.Equal(t, 2, r2.TwinIndex(p))

	s := Single(5)
	require.True(t, s.IsSingle())
	require.Equal(t, 5, r1.SelfIndex(s))
	require.Equal(t, 5, r2.TwinIndex(s))
}

func TestTwin(t *testing.T) {
	require.Equal(t, Ch2, Ch1.Twin())
	require.Equal(t, Ch1, Ch2.Twin())
	require.False(t, ID(0).IsValid())
	require.Equal(t, "ch2", Ch2.String())
}

func TestInvalidRole(t *testing.T) {
	restore := fault.SetHandler(fault.HandleFaultFunc(func(*fault.Error) {}))
	defer restore()
	e := fault.Catch(func() { NewRole(ID(3)) })
	require.NotNil(t, e)
	require.Equal(t, fault.InvalidChannel, e.Code)
}
