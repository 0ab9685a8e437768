// Package graph provides the computation graph the model importer lowers into.
package graph

import (
	"fmt"
	"strings"

	"github.com/hedgefair/glow/internal/tensor"
)

// Kind identifies the operation a node performs.
type Kind int

// Node kinds.
const (
	KindInput Kind = iota
	KindRelu
	KindConv
	KindMaxPool
	KindAvgPool
	KindBatchNorm
	KindConcat
	KindAdd
	KindMul
	KindSoftmax
	KindFullyConnected
	KindLRN
	KindBroadcast
	KindTranspose
	KindReshape
	KindChannelShuffle
	KindSqueeze
	KindSave
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindRelu:
		return "relu"
	case KindConv:
		return "conv"
	case KindMaxPool:
		return "maxpool"
	case KindAvgPool:
		return "avgpool"
	case KindBatchNorm:
		return "batchnorm"
	case KindConcat:
		return "concat"
	case KindAdd:
		return "add"
	case KindMul:
		return "mul"
	case KindSoftmax:
		return "softmax"
	case KindFullyConnected:
		return "fullyconnected"
	case KindLRN:
		return "lrn"
	case KindBroadcast:
		return "broadcast"
	case KindTranspose:
		return "transpose"
	case KindReshape:
		return "reshape"
	case KindChannelShuffle:
		return "channelshuffle"
	case KindSqueeze:
		return "squeeze"
	case KindSave:
		return "save"
	default:
		return "unknown"
	}
}

// Visibility says whether an input node belongs to the graph's public
// interface or is an internal constant.
type Visibility int

// Input node visibility.
const (
	Public Visibility = iota
	Private
)

// String returns a human-readable visibility name.
func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// TrainKind marks how an input node participates in training.
type TrainKind int

// Input node training modes.
const (
	TrainNone TrainKind = iota
	TrainBroadcast
)

// Node is a single operation in a Graph. Nodes are created only through
// the Graph factory methods and are immutable afterwards, except for
// payload and parameter tensors, whose contents the importer fills in.
type Node struct {
	kind   Kind
	name   string
	dims   tensor.Shape
	dtype  tensor.DataType
	inputs []*Node

	visibility Visibility
	train      TrainKind
	payload    *tensor.Tensor

	kernel  int
	stride  int
	pad     int
	group   int
	axis    int
	epsilon float32
	alpha   float32
	beta    float32
	k       float32
	perm    []int
	axes    []int

	scale    *tensor.Tensor
	bias     *tensor.Tensor
	mean     *tensor.Tensor
	variance *tensor.Tensor
}

// Kind returns the node's operation kind.
func (n *Node) Kind() Kind { return n.kind }

// Name returns the node's name. Names are labels, not identities; several
// nodes lowered from one operator record share its name.
func (n *Node) Name() string { return n.name }

// Dims returns the node's result dimensions.
func (n *Node) Dims() tensor.Shape { return n.dims }

// DType returns the node's result element type.
func (n *Node) DType() tensor.DataType { return n.dtype }

// Inputs returns the node's operands in order.
func (n *Node) Inputs() []*Node { return n.inputs }

// Input returns the i-th operand.
func (n *Node) Input(i int) *Node { return n.inputs[i] }

// Payload returns the value buffer of an input node, nil for other kinds.
func (n *Node) Payload() *tensor.Tensor { return n.payload }

// Visibility returns an input node's visibility.
func (n *Node) Visibility() Visibility { return n.visibility }

// Train returns an input node's training mode.
func (n *Node) Train() TrainKind { return n.train }

// Kernel returns the window size of a conv or pool node.
func (n *Node) Kernel() int { return n.kernel }

// Stride returns the window stride of a conv or pool node.
func (n *Node) Stride() int { return n.stride }

// Pad returns the padding of a conv or pool node.
func (n *Node) Pad() int { return n.pad }

// Group returns the channel group count of a conv node.
func (n *Node) Group() int { return n.group }

// Axis returns the dimension index of a batch norm, concat, broadcast or
// channel shuffle node.
func (n *Node) Axis() int { return n.axis }

// Epsilon returns the numeric stabilizer of a batch norm node.
func (n *Node) Epsilon() float32 { return n.epsilon }

// Alpha returns the LRN scale parameter.
func (n *Node) Alpha() float32 { return n.alpha }

// Beta returns the LRN exponent parameter.
func (n *Node) Beta() float32 { return n.beta }

// K returns the LRN additive bias parameter.
func (n *Node) K() float32 { return n.k }

// HalfWindow returns the one-sided window size of an LRN node.
func (n *Node) HalfWindow() int { return n.kernel }

// Perm returns the axis permutation of a transpose node.
func (n *Node) Perm() []int { return n.perm }

// Axes returns the squeezed axes of a squeeze node.
func (n *Node) Axes() []int { return n.axes }

// Scale returns the per-channel scale slot of a batch norm node.
func (n *Node) Scale() *tensor.Tensor { return n.scale }

// Bias returns the per-channel bias slot of a batch norm node.
func (n *Node) Bias() *tensor.Tensor { return n.bias }

// Mean returns the running mean slot of a batch norm node.
func (n *Node) Mean() *tensor.Tensor { return n.mean }

// Variance returns the running variance slot of a batch norm node.
func (n *Node) Variance() *tensor.Tensor { return n.variance }

// String renders the node as a one-line summary.
func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s) %v", n.name, n.kind, n.dims)
	if len(n.inputs) > 0 {
		names := make([]string, len(n.inputs))
		for i, in := range n.inputs {
			names[i] = in.name
		}
		fmt.Fprintf(&b, " <- %s", strings.Join(names, ", "))
	}
	return b.String()
}
