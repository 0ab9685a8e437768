package tensor

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Tensor is a contiguous, typed n-dimensional value buffer. The model
// importer materializes weights into Tensors and copies them into graph
// node payloads; after that a Tensor is treated as immutable.
type Tensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// New creates a zero-initialized tensor with the given shape and type.
func New(shape Shape, dtype DataType) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &Tensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromFloat32 creates a float32 tensor holding the given values.
// The value count must match the shape's element count exactly.
func FromFloat32(shape Shape, values []float32) (*Tensor, error) {
	t, err := New(shape, Float32)
	if err != nil {
		return nil, err
	}
	if len(values) != t.NumElements() {
		return nil, fmt.Errorf("got %d values for shape %v (%d elements)",
			len(values), shape, t.NumElements())
	}
	copy(t.AsFloat32(), values)
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// DType returns the tensor's data type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int {
	return len(t.data)
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (t *Tensor) Data() []byte {
	return t.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (t *Tensor) AsFloat32() []float32 {
	if t.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", t.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (t *Tensor) AsInt64() []int64 {
	if t.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", t.dtype))
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&t.data[0])), t.NumElements())
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	clone := &Tensor{
		data:  make([]byte, len(t.data)),
		shape: t.shape.Clone(),
		dtype: t.dtype,
	}
	copy(clone.data, t.data)
	return clone
}

// CopyFrom copies the contents of src into t. The shapes and data types
// must agree.
func (t *Tensor) CopyFrom(src *Tensor) error {
	if t.dtype != src.dtype {
		return fmt.Errorf("dtype mismatch: %s vs %s", t.dtype, src.dtype)
	}
	if !t.shape.Equal(src.shape) {
		return fmt.Errorf("shape mismatch: %v vs %v", t.shape, src.shape)
	}
	copy(t.data, src.data)
	return nil
}

// Equal reports whether two tensors have the same type, shape and contents.
func (t *Tensor) Equal(other *Tensor) bool {
	return t.dtype == other.dtype &&
		t.shape.Equal(other.shape) &&
		bytes.Equal(t.data, other.data)
}

// Transpose returns a new tensor with the dimensions permuted by perm.
// perm must hold each axis index exactly once.
func (t *Tensor) Transpose(perm ...int) (*Tensor, error) {
	if len(perm) != len(t.shape) {
		return nil, fmt.Errorf("permutation %v does not match rank %d", perm, len(t.shape))
	}
	seen := make([]bool, len(perm))
	for _, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			return nil, fmt.Errorf("invalid permutation %v", perm)
		}
		seen[p] = true
	}

	outShape := make(Shape, len(perm))
	for i, p := range perm {
		outShape[i] = t.shape[p]
	}
	out, err := New(outShape, t.dtype)
	if err != nil {
		return nil, err
	}

	elemSize := t.dtype.Size()
	srcStrides := t.shape.ComputeStrides()
	dstStrides := outShape.ComputeStrides()
	coords := make([]int, len(t.shape))
	for flat := 0; flat < t.NumElements(); flat++ {
		rem := flat
		for i, s := range srcStrides {
			coords[i] = rem / s
			rem %= s
		}
		dst := 0
		for i, p := range perm {
			dst += coords[p] * dstStrides[i]
		}
		copy(out.data[dst*elemSize:(dst+1)*elemSize], t.data[flat*elemSize:(flat+1)*elemSize])
	}
	return out, nil
}
