package caffe2

import (
	"fmt"

	"github.com/hedgefair/glow/internal/tensor"
)

// LoadWeights runs the weight materialization pass: every fill operator in
// net registers a constant tensor, available to the compute pass by name.
// Compute operators are passed over; a kind that is neither a fill nor a
// known compute kind aborts the import.
func (l *Loader) LoadWeights(net *NetDef) error {
	for _, op := range net.Ops {
		if err := l.loadWeight(op); err != nil {
			return fmt.Errorf("weight %q (%s): %w", opName(op), op.Type, err)
		}
	}
	return nil
}

func (l *Loader) loadWeight(op *OperatorDef) error {
	switch kindOf(op.Type) {
	case kindGivenTensorFill:
		return l.loadGivenTensorFill(op)
	case kindConstantFill:
		return l.loadConstantFill(op)
	case kindUnknown:
		return fmt.Errorf("%w: unsupported weight kind %q\n%s", ErrUnsupportedOperator, op.Type, op)
	default:
		// Compute kinds belong to the network pass.
		return nil
	}
}

// loadGivenTensorFill materializes an explicit fill, shape and values both
// given. Every declared output name aliases the one tensor.
//
//	output: "conv1_w"
//	type: "GivenTensorFill"
//	arg {
//	  name: "shape"
//	  ints: 96
//	  ints: 3
//	  ints: 11
//	  ints: 11
//	}
//	arg {
//	  name: "values"
//	  floats: -0.028315347
//	  ...
//	}
func (l *Loader) loadGivenTensorFill(op *OperatorDef) error {
	dict := op.ArgumentMap()
	shape, err := dict.Shape("shape")
	if err != nil {
		return err
	}
	values, err := dict.Floats("values")
	if err != nil {
		return err
	}
	t, err := tensor.FromFloat32(shape, values)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParseData, err)
	}
	for _, out := range op.Outputs {
		l.tensors[out] = t
	}
	return nil
}

// loadConstantFill materializes a zero fill, shape only.
//
//	output: "data"
//	type: "ConstantFill"
//	arg {
//	  name: "shape"
//	  ints: 1
//	}
//
// A name registered before this record keeps its tensor; in particular
// caller pre-seeded inputs are never overwritten.
func (l *Loader) loadConstantFill(op *OperatorDef) error {
	if len(op.Outputs) == 0 {
		return fmt.Errorf("%w: fill declares no outputs", ErrParseData)
	}
	name := op.Outputs[0]
	if _, ok := l.tensors[name]; ok {
		return nil
	}
	dict := op.ArgumentMap()
	shape, err := dict.Shape("shape")
	if err != nil {
		return err
	}
	t, err := tensor.New(shape, tensor.Float32)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParseData, err)
	}
	l.tensors[name] = t
	return nil
}
