package pipecheck

import (
	"context"
	"crypto/rand"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer emits a fixed number of synthetic records of a given size into a
// single target stream. It is fire-and-forget once started: completion and
// any deferred error are observable only via Join.
type Producer struct {
	client     *kgo.Client
	stream     string
	records    int
	recordSize int
	log        *slog.Logger

	task *task

	errMu    sync.Mutex
	asyncErr error
}

// NewProducer creates a producer for the given stream. Construction errors
// (bad options, unresolvable brokers) surface here synchronously; the driver
// must not start consumers if any producer fails to construct.
func NewProducer(brokers []string, stream string, records, recordSize int, log *slog.Logger) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.LeaderAck()),
		kgo.DisableIdempotentWrite(),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(10),
	)
	if err != nil {
		return nil, fmt.Errorf("create producer client for %q: %w", stream, err)
	}
	return &Producer{
		client:     client,
		stream:     stream,
		records:    records,
		recordSize: recordSize,
		log:        log.With("producer", stream),
		task:       newTask("producer-" + stream),
	}, nil
}

// Start begins emitting records in the background.
func (p *Producer) Start() {
	p.task.start(p.run)
}

// Stop asks the producer to wind down before all records are emitted.
func (p *Producer) Stop() {
	p.task.requestStop()
}

// Join blocks until the background emission terminates and returns its
// deferred error, bounded by timeout.
func (p *Producer) Join(timeout time.Duration) error {
	err := p.task.join(timeout)
	p.client.Close()
	return err
}

func (p *Producer) run(stop <-chan struct{}) error {
	p.log.Debug("producing", "records", p.records, "record_size", p.recordSize)
	value := make([]byte, p.recordSize)
	for i := 0; i < p.records; i++ {
		select {
		case <-stop:
			return p.flush()
		default:
		}
		if _, err := rand.Read(value); err != nil {
			return fmt.Errorf("generate record payload: %w", err)
		}
		rec := &kgo.Record{
			Topic: p.stream,
			Key:   []byte(recordKey(p.stream, i)),
			Value: append([]byte(nil), value...),
		}
		p.client.Produce(context.Background(), rec, func(_ *kgo.Record, err error) {
			if err != nil {
				p.recordErr(err)
			}
		})
	}
	return p.flush()
}

func (p *Producer) flush() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush producer for %q: %w", p.stream, err)
	}
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.asyncErr
}

// recordErr keeps the first asynchronous produce error for Join.
func (p *Producer) recordErr(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.asyncErr == nil {
		p.asyncErr = fmt.Errorf("produce to %q: %w", p.stream, err)
	}
}

// recordKey derives a stable per-index key, so identity pipelines can be
// compared record-for-record.
func recordKey(stream string, i int) string {
	h := fnv.New64a()
	h.Write([]byte(strconv.Itoa(i)))
	h.Write([]byte(stream))
	return strconv.FormatUint(h.Sum64(), 10)
}
