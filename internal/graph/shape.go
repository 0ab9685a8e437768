package graph

import (
	"fmt"

	"github.com/hedgefair/glow/internal/tensor"
)

// Layout permutations between channel-first and channel-last order.
var (
	NCHW2NHWC = []int{0, 2, 3, 1}
	NHWC2NCHW = []int{0, 3, 1, 2}
)

// ShapeNHWC names the dimensions of a rank-4 channel-last value.
type ShapeNHWC struct {
	N int
	H int
	W int
	C int
}

// NHWC views a rank-4 dimension list as channel-last.
func NHWC(dims tensor.Shape) ShapeNHWC {
	if len(dims) != 4 {
		panic(fmt.Sprintf("expected rank-4 dims, got %v", dims))
	}
	return ShapeNHWC{N: dims[0], H: dims[1], W: dims[2], C: dims[3]}
}

// ConvOutputDims computes the spatial output size of a convolution or
// pooling window slid over an h by w input.
func ConvOutputDims(h, w, kernel, stride, pad int) (outH, outW int) {
	outH = (h+2*pad-kernel)/stride + 1
	outW = (w+2*pad-kernel)/stride + 1
	return outH, outW
}

// FlattenCdr collapses all trailing dimensions into one, returning the
// leading dimension and the product of the rest.
func FlattenCdr(dims tensor.Shape) (first, rest int) {
	if len(dims) == 0 {
		panic("cannot flatten a scalar shape")
	}
	rest = 1
	for _, d := range dims[1:] {
		rest *= d
	}
	return dims[0], rest
}
