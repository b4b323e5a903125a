// Package pipecheck verifies streaming transform pipelines end to end: it
// drives synthetic records into a pipeline's input streams, consumes both the
// inputs and the materialized output streams, and checks that every expected
// record arrived, exactly once per expected fan-out, within a bounded time.
//
// The entry point is the Driver. Given the topology (input StreamSpecs and
// the TransformScripts attached to the pipeline), it builds and deploys each
// script, computes the exact number of records expected on each side, starts
// one producer per input stream plus one consumer over all input partitions
// and one over all materialized output partitions, and polls until both
// consumers report completion or the timeout elapses.
//
//	streams := []pipecheck.StreamSpec{{Name: "orders", Partitions: 3, Replicas: 1, Records: 1024, RecordSize: 1024}}
//	scripts := []*pipecheck.TransformScript{pipecheck.NewTransformScript(streams, []string{"audit"}, "identity_transform")}
//
//	driver := pipecheck.NewDriver(streams, scripts, pipecheck.WithBrokers(brokers))
//	result, err := driver.Run(ctx)
//
// A *TimeoutError reports an incomplete pipeline with expected and observed
// counts; any other error is a build or actor failure. On success the
// RunResult's ResultSets hold the full record sets for content-level
// assertions such as CompareMaterialized.
package pipecheck
