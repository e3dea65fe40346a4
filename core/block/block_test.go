package block_test

import (
	"testing"

	"github.com/momentics/flowcore/core/block"
	"github.com/momentics/flowcore/core/buffer"
	"github.com/momentics/flowcore/core/port"
	"github.com/momentics/flowcore/core/value"
	"github.com/stretchr/testify/require"
)

func TestBlockPortRegistrationPreservesOrder(t *testing.T) {
	b := block.New("blk")
	b.AddInput("in0", 4)
	b.AddInput("in1", 4)
	b.AddOutput("out0", 4, buffer.NewGenericPool(64, 1, -1))

	inputs := b.Inputs()
	require.Len(t, inputs, 2)
	require.Equal(t, "in0", inputs[0].Name())
	require.Equal(t, "in1", inputs[1].Name())

	outputs := b.Outputs()
	require.Len(t, outputs, 1)
	require.Equal(t, "out0", outputs[0].Name())
}

func TestBlockCallableRegistryMediatesThroughActor(t *testing.T) {
	b := block.New("blk")
	b.RegisterCallable("get_rate", func(args []value.Value) (value.Value, error) {
		return value.Float64(48000), nil
	})

	v, err := b.Call("get_rate", nil)
	require.NoError(t, err)
	f, ok := v.AsFloat64()
	require.True(t, ok)
	require.Equal(t, float64(48000), f)
}

func TestBlockCallUnknownCallableErrors(t *testing.T) {
	b := block.New("blk")
	_, err := b.Call("missing", nil)
	require.Error(t, err)
}

func TestBlockWorkInvokesInstalledFunc(t *testing.T) {
	b := block.New("blk")
	called := false
	b.SetWork(func(bl *block.Block, info block.WorkInfo) error {
		called = true
		return nil
	})
	require.NoError(t, b.Work(block.WorkInfo{}))
	require.True(t, called)
}

func TestBlockDefaultPropagateLabelsRescalesToEveryOutput(t *testing.T) {
	b := block.New("blk")
	b.SetLabelRatio(1, 2) // decimate by 2
	pool := buffer.NewGenericPool(64, 1, -1)
	out := b.AddOutput("out0", 4, pool)

	b.PropagateLabels(nil, []port.Label{{ID: "tag", Index: 6}})

	// drain via a downstream subscriber to observe what FinalizeWork sent
	in := port.NewInputPort("downstream", "in0", 4)
	out.Subscribe(in)
	_ = out.Buffer() // ensure a write buffer exists before finalize
	out.FinalizeWork()

	idx, ok := in.PeekLabelIndex()
	require.True(t, ok)
	require.Equal(t, uint64(3), idx, "index 6 rescaled by interp=1/decim=2 must floor to 3")
}
