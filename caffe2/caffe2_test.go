package caffe2_test

import (
	"errors"
	"testing"

	"github.com/hedgefair/glow/caffe2"
	"github.com/hedgefair/glow/graph"
	"github.com/hedgefair/glow/tensor"
)

// TestLoad runs a miniature model end to end through the public API.
func TestLoad(t *testing.T) {
	net := &caffe2.NetDef{
		Name: "tiny",
		Ops: []*caffe2.OperatorDef{
			{
				Outputs: []string{"conv_w"},
				Type:    "GivenTensorFill",
				Args: []*caffe2.Argument{
					{Name: "shape", Ints: []int64{1, 1, 2, 2}},
					{Name: "values", Floats: []float32{1, 2, 3, 4}},
				},
			},
			{
				Inputs:  []string{"data", "conv_w"},
				Outputs: []string{"conv1"},
				Type:    "Conv",
				Args:    []*caffe2.Argument{{Name: "kernel", I: 2, HasI: true}},
			},
			{
				Inputs:  []string{"conv1"},
				Outputs: []string{"relu1"},
				Type:    "Relu",
			},
		},
		ExternalInput:  []string{"data"},
		ExternalOutput: []string{"relu1"},
	}

	data, err := tensor.New(tensor.Shape{1, 1, 4, 4}, tensor.Float32)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	g := graph.New("tiny")
	root, err := caffe2.Load(net, map[string]*tensor.Tensor{"data": data}, g)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.Kind() != graph.KindSave {
		t.Errorf("Kind() = %v, want save", root.Kind())
	}
	if !root.Dims().Equal(tensor.Shape{1, 1, 3, 3}) {
		t.Errorf("Dims() = %v, want [1 1 3 3]", root.Dims())
	}
}

func TestParseText(t *testing.T) {
	net, err := caffe2.ParseText([]byte(`
name: "tiny"
op {
  input: "data"
  output: "relu1"
  type: "Relu"
}
external_output: "relu1"
`))
	if err != nil {
		t.Fatalf("ParseText failed: %v", err)
	}
	if net.Name != "tiny" || len(net.Ops) != 1 || net.Ops[0].Type != "Relu" {
		t.Errorf("Unexpected parse result: %+v", net)
	}

	if _, err := caffe2.ParseText([]byte(`op {`)); !errors.Is(err, caffe2.ErrParseData) {
		t.Errorf("Expected ErrParseData, got %v", err)
	}
}

// TestUnsupportedOperator checks the sentinel errors survive the package
// boundary.
func TestUnsupportedOperator(t *testing.T) {
	net := &caffe2.NetDef{
		Ops:            []*caffe2.OperatorDef{{Outputs: []string{"y"}, Type: "FooBar"}},
		ExternalOutput: []string{"y"},
	}
	_, err := caffe2.Load(net, nil, graph.New("tiny"))
	if !errors.Is(err, caffe2.ErrUnsupportedOperator) {
		t.Errorf("Expected ErrUnsupportedOperator, got %v", err)
	}
}
