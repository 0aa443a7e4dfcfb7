package pass_test

import (
	"testing"

	"github.com/oliverbestmann/treads/render/pass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	pass.Manager

	begins []begin
	ends   int
}

type begin struct {
	target uint32
	action pass.Action
}

func newRecorder() *recorder {
	r := &recorder{}

	r.Begin = func(target uint32, action pass.Action) {
		r.begins = append(r.begins, begin{target, action})
	}
	r.End = func() {
		r.ends++
	}

	return r
}

func TestClearsCoalesceIntoOnePass(t *testing.T) {
	r := newRecorder()

	r.ClearColor(1, 0, 0, 1)
	r.ClearDepth(0.5)
	r.Ensure()

	require.Len(t, r.begins, 1)
	assert.True(t, r.Active())

	action := r.begins[0].action
	assert.Equal(t, pass.Clear, action.ColorOp)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, action.Color)
	assert.Equal(t, pass.Clear, action.DepthOp)
	assert.Equal(t, float32(0.5), action.Depth)
}

func TestEnsureIsIdempotent(t *testing.T) {
	r := newRecorder()

	r.ClearAll(0, 0, 0, 1, 1)
	r.Ensure()
	r.Ensure()
	r.Ensure()

	assert.Len(t, r.begins, 1)
	assert.Zero(t, r.ends)
}

func TestClearConsumedByFirstPass(t *testing.T) {
	r := newRecorder()

	r.ClearAll(0, 0, 0, 1, 1)
	r.Ensure()
	r.Finish()

	// the next pass on the same target loads instead of clearing
	r.Ensure()
	require.Len(t, r.begins, 2)
	assert.Equal(t, pass.Load, r.begins[1].action.ColorOp)
	assert.Equal(t, pass.Load, r.begins[1].action.DepthOp)
}

func TestClearDuringPassStartsNewPass(t *testing.T) {
	r := newRecorder()

	r.Ensure()
	r.ClearColor(0, 1, 0, 1)

	assert.Equal(t, 1, r.ends)
	assert.False(t, r.Active())

	r.Ensure()
	require.Len(t, r.begins, 2)
	assert.Equal(t, pass.Clear, r.begins[1].action.ColorOp)
}

func TestSetTargetFlushesPass(t *testing.T) {
	r := newRecorder()

	r.Ensure()
	r.SetTarget(3)

	assert.Equal(t, 1, r.ends)
	assert.Equal(t, uint32(3), r.Target())

	r.Ensure()
	require.Len(t, r.begins, 2)
	assert.Equal(t, uint32(3), r.begins[1].target)
}

func TestFinishRunsUnconsumedClear(t *testing.T) {
	r := newRecorder()

	r.ClearAll(0, 0, 1, 1, 1)
	r.Finish()

	// the clear still happened even though nothing was drawn
	require.Len(t, r.begins, 1)
	assert.Equal(t, 1, r.ends)
	assert.Equal(t, pass.Clear, r.begins[0].action.ColorOp)
}

func TestFinishWithoutWorkDoesNothing(t *testing.T) {
	r := newRecorder()

	r.Finish()

	assert.Empty(t, r.begins)
	assert.Zero(t, r.ends)
}
