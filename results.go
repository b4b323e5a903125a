package pipecheck

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Record is the harness-level view of one consumed record.
type Record struct {
	Stream    string
	Partition int32
	Key       []byte
	Value     []byte
}

// ResultSet accumulates records consumed from a set of stream partitions.
// The owning consumer appends; the poller and the test read the count
// concurrently, so it is kept in an atomic alongside the guarded map.
type ResultSet struct {
	mu   sync.Mutex
	recs map[StreamPartition][]Record

	count atomic.Int64
}

func NewResultSet() *ResultSet {
	return &ResultSet{recs: make(map[StreamPartition][]Record)}
}

func (rs *ResultSet) append(r *kgo.Record) {
	sp := StreamPartition{Stream: r.Topic, Partition: r.Partition}
	rs.mu.Lock()
	rs.recs[sp] = append(rs.recs[sp], Record{
		Stream:    r.Topic,
		Partition: r.Partition,
		Key:       r.Key,
		Value:     r.Value,
	})
	rs.mu.Unlock()
	rs.count.Add(1)
}

// NumRecords is the total number of records received so far. Safe for
// concurrent use while the consumer is still appending.
func (rs *ResultSet) NumRecords() int {
	return int(rs.count.Load())
}

// Partitions lists every stream partition that received at least one record.
func (rs *ResultSet) Partitions() []StreamPartition {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	parts := make([]StreamPartition, 0, len(rs.recs))
	for sp := range rs.recs {
		parts = append(parts, sp)
	}
	return parts
}

// Records returns the records received on one partition, in consume order.
func (rs *ResultSet) Records(sp StreamPartition) []Record {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	recs := make([]Record, len(rs.recs[sp]))
	copy(recs, rs.recs[sp])
	return recs
}

// Filter returns a new set holding only the partitions passing pred.
func (rs *ResultSet) Filter(pred func(StreamPartition) bool) *ResultSet {
	out := NewResultSet()
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for sp, recs := range rs.recs {
		if pred(sp) {
			out.recs[sp] = recs
			out.count.Add(int64(len(recs)))
		}
	}
	return out
}

// CompareMaterialized checks that outputs is an exact materialized image of
// inputs: same partition count, same total, and for every materialized
// partition the records match its source partition key- and value-wise, in
// order. outputs must contain only materialized streams.
func CompareMaterialized(inputs, outputs *ResultSet) bool {
	if len(inputs.Partitions()) != len(outputs.Partitions()) {
		return false
	}
	if inputs.NumRecords() != outputs.NumRecords() {
		return false
	}
	for _, sp := range outputs.Partitions() {
		src, ok := SourceStream(sp.Stream)
		if !ok {
			return false
		}
		want := inputs.Records(StreamPartition{Stream: src, Partition: sp.Partition})
		got := outputs.Records(sp)
		if len(want) != len(got) {
			return false
		}
		for i := range want {
			if !bytes.Equal(want[i].Key, got[i].Key) || !bytes.Equal(want[i].Value, got[i].Value) {
				return false
			}
		}
	}
	return true
}
