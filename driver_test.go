package pipecheck

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

type fakeProducer struct {
	started atomic.Bool
	stopped atomic.Bool
	joinErr error
}

func (f *fakeProducer) Start()                     { f.started.Store(true) }
func (f *fakeProducer) Stop()                      { f.stopped.Store(true) }
func (f *fakeProducer) Join(_ time.Duration) error { return f.joinErr }

type fakeConsumer struct {
	fakeProducer
	finished func() bool
	count    int
	results  *ResultSet
}

func (f *fakeConsumer) Finished() bool      { return f.finished() }
func (f *fakeConsumer) NumRecords() int     { return f.count }
func (f *fakeConsumer) Results() *ResultSet { return f.results }

type fakeBuilder struct {
	err    error
	builds int
}

func (f *fakeBuilder) Build(_ context.Context, _ *TransformScript) (string, error) {
	f.builds++
	return "/tmp/artifact.js", f.err
}

type fakeDeployer struct {
	err     error
	deploys int
}

func (f *fakeDeployer) Deploy(_ context.Context, _, _ string) error {
	f.deploys++
	return f.err
}

func testTopology(records int) ([]StreamSpec, []*TransformScript) {
	streams := []StreamSpec{{
		Name:          "orders",
		Partitions:    3,
		Replicas:      1,
		CleanupPolicy: CleanupDelete,
		Records:       records,
		RecordSize:    128,
	}}
	scripts := []*TransformScript{
		NewTransformScript(streams, []string{"audit"}, "identity_transform"),
	}
	return streams, scripts
}

// fakeDriver wires a driver whose actors are in-memory fakes. done consumers
// report finished immediately; producers do nothing.
func fakeDriver(t *testing.T, streams []StreamSpec, scripts []*TransformScript, opts ...Option) (*Driver, *[]*fakeProducer, *[]*fakeConsumer) {
	t.Helper()
	opts = append([]Option{
		WithoutProvisioning(),
		WithTimeout(200 * time.Millisecond),
		WithBackoff(10 * time.Millisecond),
	}, opts...)
	d := NewDriver(streams, scripts, opts...)

	producers := &[]*fakeProducer{}
	consumers := &[]*fakeConsumer{}
	d.newProducer = func(_ []string, _ string, _, _ int, _ *slog.Logger) (streamProducer, error) {
		p := &fakeProducer{}
		*producers = append(*producers, p)
		return p, nil
	}
	d.newConsumer = func(_ []string, _ []StreamPartition, expected int, _ *slog.Logger) (streamConsumer, error) {
		c := &fakeConsumer{results: NewResultSet()}
		c.count = expected
		c.finished = func() bool { return true }
		*consumers = append(*consumers, c)
		return c, nil
	}
	return d, producers, consumers
}

func TestDriverCompletes(t *testing.T) {
	streams, scripts := testTopology(10)
	d, producers, consumers := fakeDriver(t, streams, scripts)

	result, err := d.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, StateCompleted, d.State())
	assert.Equal(t, ExpectedCounts{Inputs: 10, Outputs: 10}, result.Expected)

	assert.Equal(t, 1, len(*producers))
	assert.True(t, (*producers)[0].started.Load())
	assert.Equal(t, 2, len(*consumers))
	for _, c := range *consumers {
		assert.True(t, c.started.Load())
	}
}

func TestDriverZeroRecordsCompletesWithoutTimeout(t *testing.T) {
	streams, scripts := testTopology(0)
	// Zero expected everywhere; backoff so large that any poll iteration
	// would blow the timeout.
	d, _, _ := fakeDriver(t, streams, scripts, WithBackoff(time.Hour), WithTimeout(time.Second))

	start := time.Now()
	result, err := d.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, StateCompleted, result.State)
	assert.True(t, time.Since(start) < time.Second)
}

func TestDriverBuildFailureAbortsBeforeActors(t *testing.T) {
	streams, scripts := testTopology(10)
	builder := &fakeBuilder{err: errors.New("compile error")}
	d, producers, consumers := fakeDriver(t, streams, scripts, WithBuildTool(builder, &fakeDeployer{}))

	_, err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "compile error")
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, 0, len(*producers))
	assert.Equal(t, 0, len(*consumers))
}

func TestDriverDeployFailureAbortsBeforeActors(t *testing.T) {
	streams, scripts := testTopology(10)
	deployer := &fakeDeployer{err: errors.New("cluster rejected artifact")}
	d, producers, consumers := fakeDriver(t, streams, scripts, WithBuildTool(&fakeBuilder{}, deployer))

	_, err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, 0, len(*producers))
	assert.Equal(t, 0, len(*consumers))
}

func TestDriverProducerConstructionFailureStartsNoConsumer(t *testing.T) {
	streams, scripts := testTopology(10)
	d, _, consumers := fakeDriver(t, streams, scripts)
	d.newProducer = func(_ []string, _ string, _, _ int, _ *slog.Logger) (streamProducer, error) {
		return nil, errors.New("brokers unreachable")
	}

	_, err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "brokers unreachable")
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, 0, len(*consumers))
}

func TestDriverConsumerConstructionFailureStopsProducers(t *testing.T) {
	streams, scripts := testTopology(10)
	d, producers, _ := fakeDriver(t, streams, scripts)
	d.newConsumer = func(_ []string, _ []StreamPartition, _ int, _ *slog.Logger) (streamConsumer, error) {
		return nil, errors.New("brokers unreachable")
	}

	_, err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateFailed, d.State())
	// No partial actors left running.
	for _, p := range *producers {
		assert.True(t, p.stopped.Load())
	}
}

func TestDriverTimeout(t *testing.T) {
	streams, scripts := testTopology(10)
	d, _, consumers := fakeDriver(t, streams, scripts)

	calls := 0
	d.newConsumer = func(_ []string, _ []StreamPartition, expected int, _ *slog.Logger) (streamConsumer, error) {
		calls++
		c := &fakeConsumer{results: NewResultSet()}
		if calls == 1 {
			// Input side keeps up.
			c.count = expected
			c.finished = func() bool { return true }
		} else {
			// Output side never reaches the expected count.
			c.count = 3
			c.finished = func() bool { return false }
		}
		*consumers = append(*consumers, c)
		return c, nil
	}

	result, err := d.Run(context.Background())
	assert.Equal(t, StateTimedOut, d.State())
	assert.Equal(t, StateTimedOut, result.State)

	var timeout *TimeoutError
	assert.True(t, errors.As(err, &timeout))
	assert.Equal(t, 10, timeout.Expected.Outputs)
	assert.Equal(t, 3, timeout.OutputsObserved)
	assert.True(t, timeout.OutputsObserved < timeout.Expected.Outputs)
}

func TestDriverJoinErrorOverridesCompletion(t *testing.T) {
	streams, scripts := testTopology(10)
	d, producers, _ := fakeDriver(t, streams, scripts)

	orig := d.newProducer
	d.newProducer = func(brokers []string, stream string, records, size int, log *slog.Logger) (streamProducer, error) {
		p, err := orig(brokers, stream, records, size, log)
		p.(*fakeProducer).joinErr = errors.New("connection reset mid-produce")
		return p, err
	}

	result, err := d.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset mid-produce")
	assert.Equal(t, StateFailed, d.State())
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 1, len(*producers))
}

func TestDriverSingleUse(t *testing.T) {
	streams, scripts := testTopology(0)
	d, _, _ := fakeDriver(t, streams, scripts)

	_, err := d.Run(context.Background())
	assert.NoError(t, err)

	_, err = d.Run(context.Background())
	assert.True(t, errors.Is(err, ErrDriverUsed))
}

func TestDriverBuildsAndDeploysEachScript(t *testing.T) {
	streams, _ := testTopology(0)
	scripts := []*TransformScript{
		NewTransformScript(streams, []string{"a"}, "identity_transform"),
		NewTransformScript(streams, []string{"b"}, "identity_transform"),
	}
	builder := &fakeBuilder{}
	deployer := &fakeDeployer{}
	d, _, _ := fakeDriver(t, streams, scripts, WithBuildTool(builder, deployer))

	_, err := d.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, builder.builds)
	assert.Equal(t, 2, deployer.deploys)
}
