package graph

import (
	"fmt"
	"strings"

	"github.com/hedgefair/glow/internal/tensor"
)

// Graph owns the nodes produced during one model import. Factory methods
// compute result dimensions and never return errors: the importer validates
// operator records before calling them, so a malformed argument is a caller
// bug and panics.
type Graph struct {
	name  string
	nodes []*Node
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Nodes returns every node in creation order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// String renders the graph one node per line, in creation order.
func (g *Graph) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %q {\n", g.name)
	for _, n := range g.nodes {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	b.WriteString("}\n")
	return b.String()
}

func (g *Graph) add(n *Node) *Node {
	g.nodes = append(g.nodes, n)
	return n
}

// CreateInput creates an input node carrying a zero-initialized payload
// tensor, which the caller fills in.
func (g *Graph) CreateInput(name string, dtype tensor.DataType, dims tensor.Shape, vis Visibility, train TrainKind) *Node {
	payload, err := tensor.New(dims, dtype)
	if err != nil {
		panic(fmt.Sprintf("input %q: %v", name, err))
	}
	return g.add(&Node{
		kind:       KindInput,
		name:       name,
		dims:       dims.Clone(),
		dtype:      dtype,
		visibility: vis,
		train:      train,
		payload:    payload,
	})
}

// CreateRelu creates an elementwise max(x, 0) node.
func (g *Graph) CreateRelu(name string, in *Node) *Node {
	return g.add(&Node{
		kind:   KindRelu,
		name:   name,
		dims:   in.dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
	})
}

// CreateConv creates a 2D convolution over a channel-last input. filter
// holds the kernel weights in output-channel-last-major (OHWC) order and
// bias one value per output channel. outDims is the precomputed NHWC
// result shape.
func (g *Graph) CreateConv(name string, in, filter, bias *Node, outDims tensor.Shape, kernel, stride, pad, group int) *Node {
	if len(in.dims) != 4 || len(outDims) != 4 {
		panic(fmt.Sprintf("conv %q: input %v and output %v must be rank 4", name, in.dims, outDims))
	}
	if len(filter.dims) != 4 || filter.dims[1] != kernel || filter.dims[2] != kernel {
		panic(fmt.Sprintf("conv %q: filter %v does not match kernel %d", name, filter.dims, kernel))
	}
	if len(bias.dims) != 1 || bias.dims[0] != outDims[3] {
		panic(fmt.Sprintf("conv %q: bias %v does not match depth %d", name, bias.dims, outDims[3]))
	}
	return g.add(&Node{
		kind:   KindConv,
		name:   name,
		dims:   outDims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in, filter, bias},
		kernel: kernel,
		stride: stride,
		pad:    pad,
		group:  group,
	})
}

// CreateMaxPool creates a max pooling node over a channel-last input.
func (g *Graph) CreateMaxPool(name string, in *Node, kernel, stride, pad int) *Node {
	return g.pool(KindMaxPool, name, in, kernel, stride, pad)
}

// CreateAvgPool creates an average pooling node over a channel-last input.
func (g *Graph) CreateAvgPool(name string, in *Node, kernel, stride, pad int) *Node {
	return g.pool(KindAvgPool, name, in, kernel, stride, pad)
}

func (g *Graph) pool(kind Kind, name string, in *Node, kernel, stride, pad int) *Node {
	idim := NHWC(in.dims)
	outH, outW := ConvOutputDims(idim.H, idim.W, kernel, stride, pad)
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("pool %q: window %d stride %d pad %d does not fit input %v", name, kernel, stride, pad, in.dims))
	}
	return g.add(&Node{
		kind:   kind,
		name:   name,
		dims:   tensor.Shape{idim.N, outH, outW, idim.C},
		dtype:  in.dtype,
		inputs: []*Node{in},
		kernel: kernel,
		stride: stride,
		pad:    pad,
	})
}

// CreateBatchNorm creates a batch normalization node over the given channel
// axis. The scale, bias, mean and variance parameter slots are allocated
// zero-filled, one value per channel, for the caller to fill in.
func (g *Graph) CreateBatchNorm(name string, in *Node, channelAxis int, epsilon float32) *Node {
	if channelAxis < 0 || channelAxis >= len(in.dims) {
		panic(fmt.Sprintf("batchnorm %q: channel axis %d out of range for %v", name, channelAxis, in.dims))
	}
	channels := tensor.Shape{in.dims[channelAxis]}
	param := func() *tensor.Tensor {
		t, err := tensor.New(channels, tensor.Float32)
		if err != nil {
			panic(fmt.Sprintf("batchnorm %q: %v", name, err))
		}
		return t
	}
	return g.add(&Node{
		kind:     KindBatchNorm,
		name:     name,
		dims:     in.dims.Clone(),
		dtype:    in.dtype,
		inputs:   []*Node{in},
		axis:     channelAxis,
		epsilon:  epsilon,
		scale:    param(),
		bias:     param(),
		mean:     param(),
		variance: param(),
	})
}

// CreateConcat creates a concatenation of inputs along axis. All inputs
// must share rank and agree on every dimension except axis.
func (g *Graph) CreateConcat(name string, inputs []*Node, axis int) *Node {
	if len(inputs) == 0 {
		panic(fmt.Sprintf("concat %q: no inputs", name))
	}
	first := inputs[0].dims
	if axis < 0 || axis >= len(first) {
		panic(fmt.Sprintf("concat %q: axis %d out of range for %v", name, axis, first))
	}
	out := first.Clone()
	for _, in := range inputs[1:] {
		if len(in.dims) != len(first) {
			panic(fmt.Sprintf("concat %q: rank mismatch %v vs %v", name, in.dims, first))
		}
		for i := range in.dims {
			if i != axis && in.dims[i] != first[i] {
				panic(fmt.Sprintf("concat %q: dimension %d mismatch %v vs %v", name, i, in.dims, first))
			}
		}
		out[axis] += in.dims[axis]
	}
	ins := make([]*Node, len(inputs))
	copy(ins, inputs)
	return g.add(&Node{
		kind:   KindConcat,
		name:   name,
		dims:   out,
		dtype:  inputs[0].dtype,
		inputs: ins,
		axis:   axis,
	})
}

// CreateAdd creates an elementwise addition. Operand dimensions must match.
func (g *Graph) CreateAdd(name string, lhs, rhs *Node) *Node {
	return g.eltwise(KindAdd, name, lhs, rhs)
}

// CreateMul creates an elementwise multiplication. Operand dimensions must match.
func (g *Graph) CreateMul(name string, lhs, rhs *Node) *Node {
	return g.eltwise(KindMul, name, lhs, rhs)
}

func (g *Graph) eltwise(kind Kind, name string, lhs, rhs *Node) *Node {
	if !lhs.dims.Equal(rhs.dims) {
		panic(fmt.Sprintf("%s %q: operand dims %v vs %v", kind, name, lhs.dims, rhs.dims))
	}
	return g.add(&Node{
		kind:   kind,
		name:   name,
		dims:   lhs.dims.Clone(),
		dtype:  lhs.dtype,
		inputs: []*Node{lhs, rhs},
	})
}

// CreateSoftmax creates a softmax over the trailing dimension of a rank-2
// input. expected carries the label operand used by downstream training.
func (g *Graph) CreateSoftmax(name string, in, expected *Node) *Node {
	return g.add(&Node{
		kind:   KindSoftmax,
		name:   name,
		dims:   in.dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in, expected},
	})
}

// CreateFullyConnected creates a batched x*W+b node. The input's trailing
// dimensions are flattened; weights is (in, out) and bias is (out).
func (g *Graph) CreateFullyConnected(name string, in, weights, bias *Node) *Node {
	first, rest := FlattenCdr(in.dims)
	if len(weights.dims) != 2 || weights.dims[0] != rest {
		panic(fmt.Sprintf("fullyconnected %q: weights %v do not match flattened input (%d, %d)", name, weights.dims, first, rest))
	}
	if len(bias.dims) != 1 || bias.dims[0] != weights.dims[1] {
		panic(fmt.Sprintf("fullyconnected %q: bias %v does not match weights %v", name, bias.dims, weights.dims))
	}
	return g.add(&Node{
		kind:   KindFullyConnected,
		name:   name,
		dims:   tensor.Shape{first, weights.dims[1]},
		dtype:  in.dtype,
		inputs: []*Node{in, weights, bias},
	})
}

// CreateLocalResponseNormalization creates an LRN node over a channel-last
// input. halfWindow counts neighboring channels on each side.
func (g *Graph) CreateLocalResponseNormalization(name string, in *Node, halfWindow int, alpha, beta, k float32) *Node {
	if len(in.dims) != 4 {
		panic(fmt.Sprintf("lrn %q: input %v must be rank 4", name, in.dims))
	}
	return g.add(&Node{
		kind:   KindLRN,
		name:   name,
		dims:   in.dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
		kernel: halfWindow,
		alpha:  alpha,
		beta:   beta,
		k:      k,
	})
}

// CreateBroadcast creates a node that expands in to dims, aligning the
// input's first dimension with the target's axis.
func (g *Graph) CreateBroadcast(name string, in *Node, dims tensor.Shape, axis int) *Node {
	if axis < 0 || axis+len(in.dims) > len(dims) {
		panic(fmt.Sprintf("broadcast %q: axis %d out of range for %v into %v", name, axis, in.dims, dims))
	}
	for i, d := range in.dims {
		if td := dims[axis+i]; d != td && d != 1 {
			panic(fmt.Sprintf("broadcast %q: cannot expand %v into %v at axis %d", name, in.dims, dims, axis))
		}
	}
	return g.add(&Node{
		kind:   KindBroadcast,
		name:   name,
		dims:   dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
		axis:   axis,
	})
}

// CreateTranspose creates an axis permutation node.
func (g *Graph) CreateTranspose(name string, in *Node, perm []int) *Node {
	if len(perm) != len(in.dims) {
		panic(fmt.Sprintf("transpose %q: permutation %v does not match rank %d", name, perm, len(in.dims)))
	}
	out := make(tensor.Shape, len(perm))
	seen := make([]bool, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			panic(fmt.Sprintf("transpose %q: invalid permutation %v", name, perm))
		}
		seen[p] = true
		out[i] = in.dims[p]
	}
	return g.add(&Node{
		kind:   KindTranspose,
		name:   name,
		dims:   out,
		dtype:  in.dtype,
		inputs: []*Node{in},
		perm:   append([]int(nil), perm...),
	})
}

// CreateReshape creates a reinterpretation of in with the given dimensions.
// Element counts must agree.
func (g *Graph) CreateReshape(name string, in *Node, dims tensor.Shape) *Node {
	if dims.NumElements() != in.dims.NumElements() {
		panic(fmt.Sprintf("reshape %q: %v and %v differ in element count", name, in.dims, dims))
	}
	return g.add(&Node{
		kind:   KindReshape,
		name:   name,
		dims:   dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
	})
}

// CreateChannelShuffle creates a node that interleaves the groups of the
// dimension at axis. The dimension must divide evenly into group parts.
func (g *Graph) CreateChannelShuffle(name string, in *Node, group, axis int) *Node {
	if axis < 0 || axis >= len(in.dims) {
		panic(fmt.Sprintf("channelshuffle %q: axis %d out of range for %v", name, axis, in.dims))
	}
	if group <= 0 || in.dims[axis]%group != 0 {
		panic(fmt.Sprintf("channelshuffle %q: dimension %d not divisible into %d groups", name, in.dims[axis], group))
	}
	return g.add(&Node{
		kind:   KindChannelShuffle,
		name:   name,
		dims:   in.dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
		group:  group,
		axis:   axis,
	})
}

// CreateSqueeze creates a node that removes the listed size-1 axes.
func (g *Graph) CreateSqueeze(name string, in *Node, axes []int) *Node {
	drop := make(map[int]bool, len(axes))
	for _, axis := range axes {
		if axis < 0 || axis >= len(in.dims) {
			panic(fmt.Sprintf("squeeze %q: axis %d out of range for %v", name, axis, in.dims))
		}
		if in.dims[axis] != 1 {
			panic(fmt.Sprintf("squeeze %q: axis %d has size %d", name, axis, in.dims[axis]))
		}
		drop[axis] = true
	}
	out := make(tensor.Shape, 0, len(in.dims)-len(drop))
	for i, d := range in.dims {
		if !drop[i] {
			out = append(out, d)
		}
	}
	return g.add(&Node{
		kind:   KindSqueeze,
		name:   name,
		dims:   out,
		dtype:  in.dtype,
		inputs: []*Node{in},
		axes:   append([]int(nil), axes...),
	})
}

// CreateSave creates the terminal node marking in as a network result.
func (g *Graph) CreateSave(name string, in *Node) *Node {
	return g.add(&Node{
		kind:   KindSave,
		name:   name,
		dims:   in.dims.Clone(),
		dtype:  in.dtype,
		inputs: []*Node{in},
	})
}
