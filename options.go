package pipecheck

import (
	"log/slog"
	"time"
)

// Option is a function that configures a Driver.
type Option func(*Driver)

// WithBrokers sets the Kafka broker addresses.
var WithBrokers = func(brokers []string) Option {
	return func(d *Driver) {
		d.brokers = brokers
	}
}

// WithLog sets the logger for the driver and the actors it spawns.
var WithLog = func(log *slog.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// WithTimeout sets the completion poll timeout.
var WithTimeout = func(timeout time.Duration) Option {
	return func(d *Driver) {
		d.timeout = timeout
	}
}

// WithBackoff sets the interval between completion predicate checks.
var WithBackoff = func(backoff time.Duration) Option {
	return func(d *Driver) {
		d.backoff = backoff
	}
}

// WithJoinTimeout bounds how long the driver waits for each actor at join
// time.
var WithJoinTimeout = func(timeout time.Duration) Option {
	return func(d *Driver) {
		d.joinTimeout = timeout
	}
}

// WithFanOut sets the pipeline's fan-out multiplier on expected output
// volume. Defaults to 1.
var WithFanOut = func(fanOut int) Option {
	return func(d *Driver) {
		d.fanOut = fanOut
	}
}

// WithBuildTool sets the collaborators that build and deploy each transform
// script. Without a builder the build phase is skipped and scripts are
// assumed to be deployed already.
var WithBuildTool = func(builder Builder, deployer Deployer) Option {
	return func(d *Driver) {
		d.builder = builder
		d.deployer = deployer
	}
}

// WithDeployLabel sets the label scripts are deployed under.
var WithDeployLabel = func(label string) Option {
	return func(d *Driver) {
		d.deployLabel = label
	}
}

// WithoutProvisioning disables input stream creation. Use when the streams
// under test already exist.
var WithoutProvisioning = func() Option {
	return func(d *Driver) {
		d.provision = nil
	}
}

// NullWriter is a writer that discards all data.
type NullWriter struct{}

func (NullWriter) Write([]byte) (int, error) { return 0, nil }

// NullLogger creates a logger that discards all output.
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
