package caffe2

import (
	"fmt"

	"github.com/hedgefair/glow/internal/tensor"
)

// ArgumentDictionary provides random access lookup over an operator's
// argument list.
type ArgumentDictionary map[string]*Argument

// ArgumentMap collects the operator's arguments into a dictionary. A name
// repeated in the record keeps the last occurrence.
func (op *OperatorDef) ArgumentMap() ArgumentDictionary {
	dict := make(ArgumentDictionary, len(op.Args))
	for _, arg := range op.Args {
		dict[arg.Name] = arg
	}
	return dict
}

// Has reports whether an argument with the given name is present.
func (d ArgumentDictionary) Has(name string) bool {
	_, ok := d[name]
	return ok
}

// Int reads a required integer argument.
func (d ArgumentDictionary) Int(name string) (int, error) {
	arg, ok := d[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	if !arg.HasI {
		return 0, fmt.Errorf("%w: argument %q has no int value", ErrTypeMismatch, name)
	}
	return int(arg.I), nil
}

// IntOr reads an optional integer argument, falling back to def when absent.
func (d ArgumentDictionary) IntOr(name string, def int) (int, error) {
	if !d.Has(name) {
		return def, nil
	}
	return d.Int(name)
}

// Float reads a required float argument.
func (d ArgumentDictionary) Float(name string) (float32, error) {
	arg, ok := d[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	if !arg.HasF {
		return 0, fmt.Errorf("%w: argument %q has no float value", ErrTypeMismatch, name)
	}
	return arg.F, nil
}

// FloatOr reads an optional float argument, falling back to def when absent.
func (d ArgumentDictionary) FloatOr(name string, def float32) (float32, error) {
	if !d.Has(name) {
		return def, nil
	}
	return d.Float(name)
}

// Str reads a required string argument.
func (d ArgumentDictionary) Str(name string) (string, error) {
	arg, ok := d[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	if !arg.HasS {
		return "", fmt.Errorf("%w: argument %q has no string value", ErrTypeMismatch, name)
	}
	return string(arg.S), nil
}

// StrOr reads an optional string argument, falling back to def when absent.
func (d ArgumentDictionary) StrOr(name, def string) (string, error) {
	if !d.Has(name) {
		return def, nil
	}
	return d.Str(name)
}

// Shape reads a required int list argument as tensor dimensions.
func (d ArgumentDictionary) Shape(name string) (tensor.Shape, error) {
	arg, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	dims := make(tensor.Shape, len(arg.Ints))
	for i, v := range arg.Ints {
		dims[i] = int(v)
	}
	return dims, nil
}

// Floats reads a required float list argument.
func (d ArgumentDictionary) Floats(name string) ([]float32, error) {
	arg, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	return arg.Floats, nil
}
