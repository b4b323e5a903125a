package pipecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// quietBudget is how many consecutive empty polls the consumer tolerates
// before concluding the streams have gone silent.
const quietBudget = 10

// Consumer subscribes to an explicit set of stream partitions and counts
// every record it receives. Finished reports whether the expected count has
// been reached; it is lock-free and safe to call while consumption is in
// flight.
type Consumer struct {
	client   *kgo.Client
	parts    []StreamPartition
	expected int
	log      *slog.Logger

	task    *task
	count   atomic.Int64
	results *ResultSet
}

// NewConsumer creates a consumer assigned to parts, reading each partition
// from the beginning. Construction errors surface synchronously.
func NewConsumer(brokers []string, parts []StreamPartition, expected int, log *slog.Logger) (*Consumer, error) {
	offsets := make(map[string]map[int32]kgo.Offset)
	for _, sp := range parts {
		if offsets[sp.Stream] == nil {
			offsets[sp.Stream] = make(map[int32]kgo.Offset)
		}
		offsets[sp.Stream][sp.Partition] = kgo.NewOffset().AtStart()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumePartitions(offsets),
	)
	if err != nil {
		return nil, fmt.Errorf("create consumer client: %w", err)
	}

	return &Consumer{
		client:   client,
		parts:    parts,
		expected: expected,
		log:      log.With("partitions", len(parts), "expected", expected),
		task:     newTask("consumer"),
		results:  NewResultSet(),
	}, nil
}

// Start begins background consumption across all assigned partitions.
func (c *Consumer) Start() {
	c.task.start(c.run)
}

// Stop asks the consumer to wind down.
func (c *Consumer) Stop() {
	c.task.requestStop()
}

// Join blocks until background consumption terminates and propagates any
// deferred error, bounded by timeout.
func (c *Consumer) Join(timeout time.Duration) error {
	err := c.task.join(timeout)
	c.client.Close()
	return err
}

// Finished reports whether the consumer has received at least the expected
// number of records. A consumer expecting zero records is finished before it
// ever starts.
func (c *Consumer) Finished() bool {
	return c.count.Load() >= int64(c.expected)
}

// NumRecords is the live record count.
func (c *Consumer) NumRecords() int {
	return int(c.count.Load())
}

// Results exposes the accumulated records. Only read it after Join.
func (c *Consumer) Results() *ResultSet {
	return c.results
}

func (c *Consumer) run(stop <-chan struct{}) error {
	quiet := quietBudget
	for !c.Finished() && quiet > 0 {
		select {
		case <-stop:
			return nil
		default:
		}

		pollCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		fetches := c.client.PollFetches(pollCtx)
		cancel()

		if fetches.IsClientClosed() {
			return nil
		}
		if err := c.fetchErr(fetches); err != nil {
			return err
		}

		polled := 0
		fetches.EachRecord(func(r *kgo.Record) {
			c.results.append(r)
			c.count.Add(1)
			polled++
		})

		if polled == 0 {
			quiet--
			select {
			case <-stop:
				return nil
			case <-time.After(time.Second):
			}
		} else {
			quiet = quietBudget
		}
	}
	c.log.Debug("consumption done", "records", c.count.Load(), "expected", c.expected)
	return nil
}

// fetchErr surfaces real fetch errors while ignoring the poll deadline,
// which only means the brokers had nothing for us.
func (c *Consumer) fetchErr(fetches kgo.Fetches) error {
	for _, fe := range fetches.Errors() {
		if errors.Is(fe.Err, context.DeadlineExceeded) || errors.Is(fe.Err, context.Canceled) {
			continue
		}
		return fmt.Errorf("fetch error on %s/%d: %w", fe.Topic, fe.Partition, fe.Err)
	}
	return nil
}
