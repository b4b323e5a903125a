package pipecheck

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStreamSpecExpand(t *testing.T) {
	spec := StreamSpec{Name: "orders", Partitions: 3}
	parts := spec.Expand()

	assert.Equal(t, []StreamPartition{
		{Stream: "orders", Partition: 0},
		{Stream: "orders", Partition: 1},
		{Stream: "orders", Partition: 2},
	}, parts)
}

func TestExpandAll(t *testing.T) {
	parts := ExpandAll([]StreamSpec{
		{Name: "orders", Partitions: 2},
		{Name: "clicks", Partitions: 1},
	})
	assert.Equal(t, 3, len(parts))
	assert.Equal(t, StreamPartition{Stream: "clicks", Partition: 0}, parts[2])
}

func TestNewTransformScriptUniqueIDs(t *testing.T) {
	a := NewTransformScript(nil, []string{"out"}, "identity_transform")
	b := NewTransformScript(nil, []string{"out"}, "identity_transform")
	assert.NotEqual(t, a.ID, b.ID)
}
