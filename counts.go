package pipecheck

// ExpectedCounts holds the exact number of records the harness expects to
// observe on the input and output sides of a run. Derived once, never
// mutated.
type ExpectedCounts struct {
	Inputs  int
	Outputs int
}

// CalcExpected computes the expected record counts for a run. Every record
// written to an input stream is expected to yield, per attached script,
// len(Outputs) materialized records, scaled by the pipeline's fan-out
// multiplier. Any deviation from these totals is a pipeline correctness bug.
func CalcExpected(streams []StreamSpec, scripts []*TransformScript, fanOut int) ExpectedCounts {
	outputsPerRecord := 0
	for _, script := range scripts {
		outputsPerRecord += len(script.Outputs)
	}

	var counts ExpectedCounts
	for _, s := range streams {
		counts.Inputs += s.Records
		counts.Outputs += s.Records * outputsPerRecord * fanOut
	}
	return counts
}
