package value_test

import (
	"testing"

	"github.com/momentics/flowcore/core/value"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveEquality(t *testing.T) {
	require.True(t, value.Int64(42).Equal(value.Int64(42)))
	require.False(t, value.Int64(42).Equal(value.Int64(43)))
	require.False(t, value.Int64(42).Equal(value.Uint64(42)))
}

func TestBytesAreCopiedAndCompared(t *testing.T) {
	src := []byte{1, 2, 3}
	v := value.Bytes(src)
	src[0] = 0xFF
	got, ok := v.AsBytes()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, got)
}

type point struct{ x, y int }

func TestObjectEqualityRequiresRegisteredComparator(t *testing.T) {
	a := value.Object(point{1, 2})
	b := value.Object(point{1, 2})
	require.False(t, a.Equal(b), "unregistered object type must not compare equal")

	value.RegisterComparator("value_test.point", func(x, y any) bool {
		return x.(point) == y.(point)
	})
	require.True(t, a.Equal(b))
}

func TestInvalidValueIsZero(t *testing.T) {
	require.Equal(t, value.KindInvalid, value.Invalid.Kind())
}
