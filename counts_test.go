package pipecheck

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestCalcExpected(t *testing.T) {
	stream := func(name string, records int) StreamSpec {
		return StreamSpec{Name: name, Partitions: 3, Replicas: 1, Records: records}
	}
	script := func(outputs ...string) *TransformScript {
		return NewTransformScript(nil, outputs, "identity_transform")
	}

	tests := []struct {
		name    string
		streams []StreamSpec
		scripts []*TransformScript
		fanOut  int
		want    ExpectedCounts
	}{
		{
			name:    "single stream two single-output scripts",
			streams: []StreamSpec{stream("orders", 100)},
			scripts: []*TransformScript{script("a"), script("b")},
			fanOut:  1,
			want:    ExpectedCounts{Inputs: 100, Outputs: 200},
		},
		{
			name:    "no scripts",
			streams: []StreamSpec{stream("orders", 100)},
			fanOut:  1,
			want:    ExpectedCounts{Inputs: 100, Outputs: 0},
		},
		{
			name:    "script without outputs",
			streams: []StreamSpec{stream("orders", 50)},
			scripts: []*TransformScript{script()},
			fanOut:  1,
			want:    ExpectedCounts{Inputs: 50, Outputs: 0},
		},
		{
			name:    "fan-out multiplier scales outputs only",
			streams: []StreamSpec{stream("orders", 10)},
			scripts: []*TransformScript{script("a", "b")},
			fanOut:  3,
			want:    ExpectedCounts{Inputs: 10, Outputs: 60},
		},
		{
			name:    "zero fan-out",
			streams: []StreamSpec{stream("orders", 10)},
			scripts: []*TransformScript{script("a")},
			fanOut:  0,
			want:    ExpectedCounts{Inputs: 10, Outputs: 0},
		},
		{
			name:    "multiple streams sum per stream",
			streams: []StreamSpec{stream("orders", 10), stream("clicks", 5)},
			scripts: []*TransformScript{script("a"), script("b", "c")},
			fanOut:  2,
			want:    ExpectedCounts{Inputs: 15, Outputs: 90},
		},
		{
			name: "empty topology",
			want: ExpectedCounts{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalcExpected(tc.streams, tc.scripts, tc.fanOut))
		})
	}
}
