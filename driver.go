package pipecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// RunState is the driver's position in its lifecycle. Terminal states are
// final; a driver is single use.
type RunState string

const (
	StateBuilding  RunState = "BUILDING"
	StateRunning   RunState = "RUNNING"
	StateCompleted RunState = "COMPLETED"
	StateTimedOut  RunState = "TIMED_OUT"
	StateFailed    RunState = "FAILED"
)

// streamProducer and streamConsumer are the driver's view of its actors.
type streamProducer interface {
	Start()
	Stop()
	Join(timeout time.Duration) error
}

type streamConsumer interface {
	streamProducer
	Finished() bool
	NumRecords() int
	Results() *ResultSet
}

// RunResult is the read-only outcome of one verification run.
type RunResult struct {
	State    RunState
	Expected ExpectedCounts
	Inputs   *ResultSet
	Outputs  *ResultSet
}

// Driver orchestrates one end-to-end verification run: it builds and deploys
// the transform scripts, drives producers into every input stream, consumes
// both the input and the materialized output streams, and polls until both
// sides saw every expected record or the timeout elapses.
type Driver struct {
	streams []StreamSpec
	scripts []*TransformScript

	brokers     []string
	fanOut      int
	timeout     time.Duration
	backoff     time.Duration
	joinTimeout time.Duration
	builder     Builder
	deployer    Deployer
	deployLabel string
	log         *slog.Logger

	state RunState

	// Factories and the provisioning hook are swappable in tests.
	newProducer func(brokers []string, stream string, records, size int, log *slog.Logger) (streamProducer, error)
	newConsumer func(brokers []string, parts []StreamPartition, expected int, log *slog.Logger) (streamConsumer, error)
	provision   func(ctx context.Context) error
}

// NewDriver creates a driver for the given topology.
func NewDriver(streams []StreamSpec, scripts []*TransformScript, opts ...Option) *Driver {
	d := &Driver{
		streams:     streams,
		scripts:     scripts,
		brokers:     []string{"localhost:9092"},
		fanOut:      1,
		timeout:     time.Second * 180,
		backoff:     time.Second,
		joinTimeout: time.Second * 30,
		deployLabel: "pipecheck",
		log:         NullLogger(),
	}
	d.newProducer = func(brokers []string, stream string, records, size int, log *slog.Logger) (streamProducer, error) {
		return NewProducer(brokers, stream, records, size, log)
	}
	d.newConsumer = func(brokers []string, parts []StreamPartition, expected int, log *slog.Logger) (streamConsumer, error) {
		return NewConsumer(brokers, parts, expected, log)
	}
	d.provision = d.createInputStreams

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the driver's current run state.
func (d *Driver) State() RunState {
	return d.state
}

func (d *Driver) changeState(newState RunState) {
	d.log.Info("Change state", "from", d.state, "to", newState)
	d.state = newState
}

// Run executes the verification. It returns a TimeoutError when the
// completion predicate was not met in time, and any build or actor error
// otherwise; an error surfaced at join takes priority over a satisfied
// predicate. The result carries final counts whenever actors ran.
func (d *Driver) Run(ctx context.Context) (*RunResult, error) {
	if d.state != "" {
		return nil, ErrDriverUsed
	}

	d.changeState(StateBuilding)
	if d.builder == nil && len(d.scripts) > 0 {
		d.log.Debug("no build tool configured, assuming scripts are deployed")
	}
	if d.builder != nil {
		for _, script := range d.scripts {
			artifact, err := d.builder.Build(ctx, script)
			if err != nil {
				d.changeState(StateFailed)
				return nil, fmt.Errorf("build script %s: %w", script.ID, err)
			}
			if d.deployer != nil {
				if err := d.deployer.Deploy(ctx, artifact, d.deployLabel); err != nil {
					d.changeState(StateFailed)
					return nil, fmt.Errorf("deploy script %s: %w", script.ID, err)
				}
			}
		}
	}

	expected := CalcExpected(d.streams, d.scripts, d.fanOut)
	inputParts := ExpandAll(d.streams)
	outputParts := ExpandAll(MaterializedSpecs(d.streams, d.scripts))
	d.log.Info("Input consumer assignment", "partitions", inputParts)
	d.log.Info("Output consumer assignment", "partitions", outputParts)

	d.changeState(StateRunning)

	if d.provision != nil {
		if err := d.provision(ctx); err != nil {
			d.changeState(StateFailed)
			return nil, fmt.Errorf("provision input streams: %w", err)
		}
	}

	// Producers are constructed and started one by one; a construction
	// failure aborts before any consumer exists.
	var producers []streamProducer
	abort := func(err error) (*RunResult, error) {
		for _, p := range producers {
			p.Stop()
			_ = p.Join(d.joinTimeout)
		}
		d.changeState(StateFailed)
		return nil, err
	}

	for _, s := range d.streams {
		p, err := d.newProducer(d.brokers, s.Name, s.Records, s.RecordSize, d.log)
		if err != nil {
			return abort(fmt.Errorf("create producer for %q: %w", s.Name, err))
		}
		producers = append(producers, p)
		p.Start()
	}

	inConsumer, err := d.newConsumer(d.brokers, inputParts, expected.Inputs, d.log)
	if err != nil {
		return abort(fmt.Errorf("create input consumer: %w", err))
	}
	outConsumer, err := d.newConsumer(d.brokers, outputParts, expected.Outputs, d.log)
	if err != nil {
		inConsumer.Stop()
		_ = inConsumer.Join(d.joinTimeout)
		return abort(fmt.Errorf("create output consumer: %w", err))
	}

	d.log.Info("Waiting for records", "expected_inputs", expected.Inputs, "expected_outputs", expected.Outputs)
	inConsumer.Start()
	outConsumer.Start()

	waitErr := WaitUntil(ctx, d.timeout, d.backoff, func() bool {
		return inConsumer.Finished() && outConsumer.Finished()
	})

	// Join everything regardless of the wait outcome: final counts and
	// latent actor failures only surface here.
	inConsumer.Stop()
	outConsumer.Stop()
	joinErr := multierr.Append(
		inConsumer.Join(d.joinTimeout),
		outConsumer.Join(d.joinTimeout),
	)
	grp := errgroup.Group{}
	for _, p := range producers {
		p := p
		grp.Go(func() error {
			p.Stop()
			return p.Join(d.joinTimeout)
		})
	}
	joinErr = multierr.Append(joinErr, grp.Wait())

	result := &RunResult{
		Expected: expected,
		Inputs:   inConsumer.Results(),
		Outputs:  outConsumer.Results(),
	}
	d.log.Info("Run finished",
		"inputs", inConsumer.NumRecords(), "expected_inputs", expected.Inputs,
		"outputs", outConsumer.NumRecords(), "expected_outputs", expected.Outputs)

	switch {
	case joinErr != nil:
		d.changeState(StateFailed)
		result.State = StateFailed
		return result, joinErr
	case errors.Is(waitErr, ErrWaitTimeout):
		d.changeState(StateTimedOut)
		result.State = StateTimedOut
		return result, &TimeoutError{
			Expected:        expected,
			InputsObserved:  inConsumer.NumRecords(),
			OutputsObserved: outConsumer.NumRecords(),
		}
	case waitErr != nil:
		d.changeState(StateFailed)
		result.State = StateFailed
		return result, waitErr
	default:
		d.changeState(StateCompleted)
		result.State = StateCompleted
		return result, nil
	}
}

// createInputStreams provisions the input topics via the admin API. The
// pipeline engine owns the materialized outputs. Already-existing topics are
// fine.
func (d *Driver) createInputStreams(ctx context.Context) error {
	client, err := kgo.NewClient(kgo.SeedBrokers(d.brokers...))
	if err != nil {
		return err
	}
	defer client.Close()
	adm := kadm.NewClient(client)

	for _, s := range d.streams {
		policy := string(s.CleanupPolicy)
		configs := map[string]*string{}
		if policy != "" {
			configs["cleanup.policy"] = &policy
		}
		resp, err := adm.CreateTopics(ctx, s.Partitions, s.Replicas, configs, s.Name)
		if err != nil {
			return fmt.Errorf("create topic %q: %w", s.Name, err)
		}
		for _, res := range resp.Sorted() {
			if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
				return fmt.Errorf("create topic %q: %w", res.Topic, res.Err)
			}
		}
	}
	return nil
}
