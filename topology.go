package pipecheck

import (
	"github.com/google/uuid"
)

// CleanupPolicy is the retention mode of a stream under test.
type CleanupPolicy string

const (
	CleanupDelete  CleanupPolicy = "delete"
	CleanupCompact CleanupPolicy = "compact"
)

// StreamSpec describes one input stream of the pipeline under test: its
// physical layout plus the synthetic load the harness drives into it.
// Immutable once constructed.
type StreamSpec struct {
	Name          string
	Partitions    int32
	Replicas      int16
	CleanupPolicy CleanupPolicy

	// Synthetic load driven into the stream.
	Records    int
	RecordSize int
}

// StreamPartition addresses a single partition of a named stream.
type StreamPartition struct {
	Stream    string
	Partition int32
}

// Expand returns one StreamPartition per partition, indices [0, Partitions).
func (s StreamSpec) Expand() []StreamPartition {
	parts := make([]StreamPartition, 0, s.Partitions)
	for i := int32(0); i < s.Partitions; i++ {
		parts = append(parts, StreamPartition{Stream: s.Name, Partition: i})
	}
	return parts
}

// ExpandAll flattens a set of stream specs into the full partition list.
func ExpandAll(specs []StreamSpec) []StreamPartition {
	var parts []StreamPartition
	for _, s := range specs {
		parts = append(parts, s.Expand()...)
	}
	return parts
}

// TransformScript is one external compute unit attached to the pipeline. ID
// is generated once at construction and namespaces the script's build
// output; it is never reused across scripts. Artifact names the script
// template to build and deploy.
type TransformScript struct {
	ID       uuid.UUID
	Inputs   []StreamSpec
	Outputs  []string
	Artifact string
}

// NewTransformScript creates a script with a fresh unique ID.
func NewTransformScript(inputs []StreamSpec, outputs []string, artifact string) *TransformScript {
	return &TransformScript{
		ID:       uuid.New(),
		Inputs:   inputs,
		Outputs:  outputs,
		Artifact: artifact,
	}
}
