package pipecheck

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestRecordKeyStable(t *testing.T) {
	assert.Equal(t, recordKey("orders", 7), recordKey("orders", 7))
	assert.NotEqual(t, recordKey("orders", 7), recordKey("orders", 8))
	assert.NotEqual(t, recordKey("orders", 7), recordKey("clicks", 7))
}

func TestProducerConstruction(t *testing.T) {
	p, err := NewProducer([]string{"localhost:9092"}, "orders", 10, 128, NullLogger())
	assert.NoError(t, err)

	// Never started: join returns immediately and releases the client.
	assert.NoError(t, p.Join(time.Second))
}
