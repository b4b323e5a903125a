package pipecheck

import "strings"

// Materialize returns the name of the output stream the pipeline writes to
// for records flowing from source into the given destination label. The
// "{source}-{dest}" form is a wire-level convention; downstream consumers
// parse it, so it must not change.
func Materialize(source, dest string) string {
	return source + "-" + dest
}

// IsMaterialized reports whether name is of the materialized "{source}-{dest}"
// form.
func IsMaterialized(name string) bool {
	return strings.Contains(name, "-")
}

// SourceStream extracts the source stream from a materialized stream name.
// The source itself never contains '-', so the first separator splits
// unambiguously.
func SourceStream(materialized string) (string, bool) {
	src, _, ok := strings.Cut(materialized, "-")
	if !ok || src == "" {
		return "", false
	}
	return src, true
}

// MaterializedSpecs enumerates every physical output stream for the given
// topology: the image of {(src, label) : src in streams, label in
// script.Outputs} over all scripts. Each materialized stream inherits
// partitions, replicas and cleanup policy from its source. The harness does
// not know which scripts read which inputs, so every input is paired with
// every output label.
func MaterializedSpecs(streams []StreamSpec, scripts []*TransformScript) []StreamSpec {
	var labels []string
	for _, script := range scripts {
		labels = append(labels, script.Outputs...)
	}

	var specs []StreamSpec
	for _, src := range streams {
		for _, label := range labels {
			specs = append(specs, StreamSpec{
				Name:          Materialize(src.Name, label),
				Partitions:    src.Partitions,
				Replicas:      src.Replicas,
				CleanupPolicy: src.CleanupPolicy,
			})
		}
	}
	return specs
}
