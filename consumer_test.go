package pipecheck

import (
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestConsumerZeroExpectedIsFinishedBeforeStart(t *testing.T) {
	c, err := NewConsumer([]string{"localhost:9092"},
		[]StreamPartition{{Stream: "orders", Partition: 0}}, 0, NullLogger())
	assert.NoError(t, err)

	// No Start: a consumer expecting nothing is done from the outset.
	assert.True(t, c.Finished())
	assert.Equal(t, 0, c.NumRecords())
	assert.NoError(t, c.Join(time.Second))
}

func TestConsumerFinishedThreshold(t *testing.T) {
	c, err := NewConsumer([]string{"localhost:9092"},
		[]StreamPartition{{Stream: "orders", Partition: 0}}, 3, NullLogger())
	assert.NoError(t, err)
	defer c.Join(time.Second)

	assert.False(t, c.Finished())
	c.count.Add(2)
	assert.False(t, c.Finished())
	c.count.Add(1)
	assert.True(t, c.Finished())
}

func TestConsumerFinishedConcurrentReads(t *testing.T) {
	c, err := NewConsumer([]string{"localhost:9092"},
		[]StreamPartition{{Stream: "orders", Partition: 0}}, 1000, NullLogger())
	assert.NoError(t, err)
	defer c.Join(time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.count.Add(1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Finished()
			_ = c.NumRecords()
		}
	}()
	wg.Wait()

	assert.True(t, c.Finished())
}
