package errs_test

import (
	"errors"
	"testing"

	"github.com/momentics/flowcore/core/errs"
	"github.com/stretchr/testify/require"
)

func TestErrorCarriesBlockAndPort(t *testing.T) {
	err := errs.New(errs.KindPortNotFound, "no such port").
		WithBlock("fir_filter").
		WithPort("in0")

	require.ErrorIs(t, err, errs.PortNotFound)
	require.Contains(t, err.Error(), "fir_filter")
	require.Contains(t, err.Error(), "in0")
}

func TestErrorIsMatchesKindNotMessage(t *testing.T) {
	a := errs.New(errs.KindResourceExhausted, "pool exhausted")
	b := errs.New(errs.KindResourceExhausted, "a different message entirely")

	require.True(t, errors.Is(a, errs.ResourceExhausted))
	require.True(t, errors.Is(b, errs.ResourceExhausted))
	require.False(t, errors.Is(a, errs.NotActive))
}

func TestWithContextAccumulates(t *testing.T) {
	err := errs.New(errs.KindContractViolation, "reserve violated").
		WithContext("required", 16).
		WithContext("available", 4)

	require.Len(t, err.Context, 2)
	require.Equal(t, 16, err.Context["required"])
}
