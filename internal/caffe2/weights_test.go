package caffe2

import (
	"errors"
	"strings"
	"testing"

	"github.com/hedgefair/glow/internal/graph"
	"github.com/hedgefair/glow/internal/tensor"
)

func intArg(name string, v int64) *Argument {
	return &Argument{Name: name, I: v, HasI: true}
}

func floatArg(name string, v float32) *Argument {
	return &Argument{Name: name, F: v, HasF: true}
}

func strArg(name, v string) *Argument {
	return &Argument{Name: name, S: []byte(v), HasS: true}
}

func intsArg(name string, vs ...int64) *Argument {
	return &Argument{Name: name, Ints: vs}
}

func floatsArg(name string, vs ...float32) *Argument {
	return &Argument{Name: name, Floats: vs}
}

func givenTensorFill(name string, shape []int64, values ...float32) *OperatorDef {
	return &OperatorDef{
		Outputs: []string{name},
		Type:    "GivenTensorFill",
		Args:    []*Argument{intsArg("shape", shape...), floatsArg("values", values...)},
	}
}

func constantFill(name string, shape ...int64) *OperatorDef {
	return &OperatorDef{
		Outputs: []string{name},
		Type:    "ConstantFill",
		Args:    []*Argument{intsArg("shape", shape...)},
	}
}

func mustTensor(t *testing.T, shape tensor.Shape, values ...float32) *tensor.Tensor {
	t.Helper()
	tn, err := tensor.FromFloat32(shape, values)
	if err != nil {
		t.Fatalf("FromFloat32 failed: %v", err)
	}
	return tn
}

func TestLoadGivenTensorFill(t *testing.T) {
	l := NewLoader(graph.New("test"))
	net := &NetDef{Ops: []*OperatorDef{
		givenTensorFill("w", []int64{2, 2}, 1, 2, 3, 4),
	}}
	if err := l.LoadWeights(net); err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	w, err := l.TensorByName("w")
	if err != nil {
		t.Fatalf("TensorByName failed: %v", err)
	}
	if !w.Shape().Equal(tensor.Shape{2, 2}) {
		t.Errorf("Expected shape [2 2], got %v", w.Shape())
	}
	vals := w.AsFloat32()
	for i, want := range []float32{1, 2, 3, 4} {
		if vals[i] != want {
			t.Errorf("values[%d]: expected %v, got %v", i, want, vals[i])
		}
	}
}

func TestGivenTensorFillAliasesOutputs(t *testing.T) {
	l := NewLoader(graph.New("test"))
	op := givenTensorFill("w", []int64{2}, 1, 2)
	op.Outputs = append(op.Outputs, "w_alias")
	if err := l.LoadWeights(&NetDef{Ops: []*OperatorDef{op}}); err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	a, _ := l.TensorByName("w")
	b, _ := l.TensorByName("w_alias")
	if a != b {
		t.Error("Expected both output names to alias one tensor")
	}
}

func TestGivenTensorFillCountMismatch(t *testing.T) {
	l := NewLoader(graph.New("test"))
	net := &NetDef{Ops: []*OperatorDef{
		givenTensorFill("w", []int64{2, 2}, 1, 2, 3),
	}}
	err := l.LoadWeights(net)
	if !errors.Is(err, ErrParseData) {
		t.Fatalf("Expected ErrParseData, got %v", err)
	}
	if !strings.Contains(err.Error(), `"w"`) {
		t.Errorf("Expected the record name in the error, got %q", err)
	}
}

func TestGivenTensorFillMissingArgs(t *testing.T) {
	l := NewLoader(graph.New("test"))

	op := &OperatorDef{
		Outputs: []string{"w"},
		Type:    "GivenTensorFill",
		Args:    []*Argument{floatsArg("values", 1, 2)},
	}
	err := l.LoadWeights(&NetDef{Ops: []*OperatorDef{op}})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Expected ErrMissingArgument without shape, got %v", err)
	}

	op = &OperatorDef{
		Outputs: []string{"w"},
		Type:    "GivenTensorFill",
		Args:    []*Argument{intsArg("shape", 2)},
	}
	err = l.LoadWeights(&NetDef{Ops: []*OperatorDef{op}})
	if !errors.Is(err, ErrMissingArgument) {
		t.Errorf("Expected ErrMissingArgument without values, got %v", err)
	}
}

func TestLoadConstantFill(t *testing.T) {
	l := NewLoader(graph.New("test"))
	net := &NetDef{Ops: []*OperatorDef{
		constantFill("zeros", 2, 3),
	}}
	if err := l.LoadWeights(net); err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	z, err := l.TensorByName("zeros")
	if err != nil {
		t.Fatalf("TensorByName failed: %v", err)
	}
	if !z.Shape().Equal(tensor.Shape{2, 3}) {
		t.Errorf("Expected shape [2 3], got %v", z.Shape())
	}
	if z.DType() != tensor.Float32 {
		t.Errorf("Expected float32, got %v", z.DType())
	}
	for i, v := range z.AsFloat32() {
		if v != 0 {
			t.Errorf("values[%d]: expected 0, got %v", i, v)
		}
	}
}

func TestConstantFillKeepsRegistered(t *testing.T) {
	g := graph.New("test")
	l := NewLoader(g)
	l.RegisterInput("data", mustTensor(t, tensor.Shape{1, 2}, 5, 6))

	// The zero fill for a bound input must not clobber the binding.
	net := &NetDef{Ops: []*OperatorDef{
		constantFill("data", 1),
	}}
	if err := l.LoadWeights(net); err != nil {
		t.Fatalf("LoadWeights failed: %v", err)
	}

	d, _ := l.TensorByName("data")
	if !d.Shape().Equal(tensor.Shape{1, 2}) {
		t.Errorf("Expected the pre-seeded shape [1 2], got %v", d.Shape())
	}
	vals := d.AsFloat32()
	if vals[0] != 5 || vals[1] != 6 {
		t.Errorf("Expected the pre-seeded values, got %v", vals)
	}
}

func TestConstantFillNoOutputs(t *testing.T) {
	l := NewLoader(graph.New("test"))
	op := &OperatorDef{Type: "ConstantFill", Args: []*Argument{intsArg("shape", 1)}}
	err := l.LoadWeights(&NetDef{Ops: []*OperatorDef{op}})
	if !errors.Is(err, ErrParseData) {
		t.Errorf("Expected ErrParseData, got %v", err)
	}
}

func TestLoadWeightsUnknownKind(t *testing.T) {
	l := NewLoader(graph.New("test"))
	op := &OperatorDef{
		Outputs: []string{"w"},
		Type:    "FooFill",
		Args:    []*Argument{intsArg("shape", 1)},
	}
	err := l.LoadWeights(&NetDef{Ops: []*OperatorDef{op}})
	if !errors.Is(err, ErrUnsupportedOperator) {
		t.Fatalf("Expected ErrUnsupportedOperator, got %v", err)
	}
	// The record itself is dumped for debugging.
	if !strings.Contains(err.Error(), `type: "FooFill"`) {
		t.Errorf("Expected the record dump in the error, got %q", err)
	}
}

func TestLoadWeightsSkipsComputeKinds(t *testing.T) {
	l := NewLoader(graph.New("test"))
	net := &NetDef{Ops: []*OperatorDef{
		{Inputs: []string{"data"}, Outputs: []string{"relu1"}, Type: "Relu"},
		givenTensorFill("w", []int64{2}, 1, 2),
	}}
	if err := l.LoadWeights(net); err != nil {
		t.Fatalf("Expected compute kinds to be skipped, got %v", err)
	}
	if _, err := l.TensorByName("w"); err != nil {
		t.Errorf("Expected the fill after the compute record to register, got %v", err)
	}
	if _, err := l.TensorByName("relu1"); !errors.Is(err, ErrUnknownTensor) {
		t.Errorf("Expected no tensor for the compute record, got %v", err)
	}
}
