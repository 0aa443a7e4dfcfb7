package slot_test

import (
	"testing"

	"github.com/oliverbestmann/treads/render/slot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummy struct {
	Value int
}

func TestTableAllocRelease(t *testing.T) {
	table := slot.NewTable[dummy]("dummies", 4)

	id, ptr := table.Alloc()
	require.NotNil(t, ptr)
	assert.Equal(t, uint32(1), id)
	assert.True(t, table.Used(id))

	ptr.Value = 42
	assert.Equal(t, 42, table.Get(id).Value)

	table.Release(id)
	assert.False(t, table.Used(id))
	assert.Nil(t, table.Get(id))

	// the slot is reused and comes back zeroed
	again, ptr := table.Alloc()
	require.NotNil(t, ptr)
	assert.Equal(t, id, again)
	assert.Equal(t, 0, ptr.Value)
}

func TestTableZeroIdInvalid(t *testing.T) {
	table := slot.NewTable[dummy]("dummies", 4)

	assert.False(t, table.Used(0))
	assert.Nil(t, table.Get(0))

	// releasing invalid ids must not panic
	table.Release(0)
	table.Release(99)
}

func TestTableExhaustion(t *testing.T) {
	table := slot.NewTable[dummy]("dummies", 2)

	one, _ := table.Alloc()
	two, _ := table.Alloc()
	require.Equal(t, uint32(1), one)
	require.Equal(t, uint32(2), two)

	table.Get(one).Value = 1
	table.Get(two).Value = 2

	id, ptr := table.Alloc()
	assert.Equal(t, uint32(0), id)
	assert.Nil(t, ptr)

	// existing slots are untouched by the failed allocation
	assert.Equal(t, 1, table.Get(one).Value)
	assert.Equal(t, 2, table.Get(two).Value)
	assert.Equal(t, 2, table.Count())
}

func TestTableDoubleRelease(t *testing.T) {
	table := slot.NewTable[dummy]("dummies", 2)

	a, _ := table.Alloc()
	b, _ := table.Alloc()

	table.Release(a)
	table.Release(a)

	assert.False(t, table.Used(a))
	assert.True(t, table.Used(b))
	assert.Equal(t, 1, table.Count())
}

func TestTableEach(t *testing.T) {
	table := slot.NewTable[dummy]("dummies", 4)

	a, _ := table.Alloc()
	b, _ := table.Alloc()
	c, _ := table.Alloc()
	table.Release(b)

	var seen []uint32
	table.Each(func(id uint32, _ *dummy) {
		seen = append(seen, id)
	})

	assert.Equal(t, []uint32{a, c}, seen)
}
