package caffe2

import (
	"fmt"

	"github.com/hedgefair/glow/internal/graph"
	"github.com/hedgefair/glow/internal/tensor"
)

// opKind enumerates the operator kinds this importer understands.
type opKind int

const (
	kindUnknown opKind = iota
	kindGivenTensorFill
	kindConstantFill
	kindRelu
	kindConv
	kindMaxPool
	kindAvgPool
	kindDropout
	kindSpatialBN
	kindConcat
	kindSum
	kindSoftmax
	kindFC
	kindLRN
	kindMul
	kindAdd
	kindChannelShuffle
	kindSqueeze
)

var opKinds = map[string]opKind{
	"GivenTensorFill": kindGivenTensorFill,
	"ConstantFill":    kindConstantFill,
	"Relu":            kindRelu,
	"Conv":            kindConv,
	"MaxPool":         kindMaxPool,
	"AveragePool":     kindAvgPool,
	"Dropout":         kindDropout,
	"SpatialBN":       kindSpatialBN,
	"Concat":          kindConcat,
	"Sum":             kindSum,
	"Softmax":         kindSoftmax,
	"FC":              kindFC,
	"LRN":             kindLRN,
	"Mul":             kindMul,
	"Add":             kindAdd,
	"ChannelShuffle":  kindChannelShuffle,
	"Squeeze":         kindSqueeze,
}

func kindOf(typeName string) opKind {
	return opKinds[typeName]
}

func (k opKind) isFill() bool {
	return k == kindGivenTensorFill || k == kindConstantFill
}

// lowerings dispatches a compute operator kind to its lowering rule.
var lowerings = map[opKind]func(*Loader, *OperatorDef, ArgumentDictionary) (*graph.Node, error){
	kindRelu:           (*Loader).lowerRelu,
	kindConv:           (*Loader).lowerConv,
	kindMaxPool:        (*Loader).lowerMaxPool,
	kindAvgPool:        (*Loader).lowerAvgPool,
	kindDropout:        (*Loader).lowerDropout,
	kindSpatialBN:      (*Loader).lowerSpatialBN,
	kindConcat:         (*Loader).lowerConcat,
	kindSum:            (*Loader).lowerSum,
	kindSoftmax:        (*Loader).lowerSoftmax,
	kindFC:             (*Loader).lowerFullyConnected,
	kindLRN:            (*Loader).lowerLRN,
	kindMul:            (*Loader).lowerMul,
	kindAdd:            (*Loader).lowerAdd,
	kindChannelShuffle: (*Loader).lowerChannelShuffle,
	kindSqueeze:        (*Loader).lowerSqueeze,
}

// loadOperator lowers one compute operator and registers every declared
// output name to the resulting node.
func (l *Loader) loadOperator(op *OperatorDef) error {
	lower, ok := lowerings[kindOf(op.Type)]
	if !ok {
		return fmt.Errorf("%w: %q\n%s", ErrUnsupportedOperator, op.Type, op)
	}
	node, err := lower(l, op, op.ArgumentMap())
	if err != nil {
		return err
	}
	for _, out := range op.Outputs {
		l.nodeByName[out] = node
	}
	return nil
}

// opName returns the record's display name: the name field when set, the
// first output otherwise.
func opName(op *OperatorDef) string {
	if op.Name != "" {
		return op.Name
	}
	if len(op.Outputs) > 0 {
		return op.Outputs[0]
	}
	return op.Type
}

// operand resolves the i-th input name to a graph node.
func (l *Loader) operand(op *OperatorDef, i int) (*graph.Node, error) {
	if i >= len(op.Inputs) {
		return nil, fmt.Errorf("%w: operator needs input %d but has %d", ErrParseData, i, len(op.Inputs))
	}
	return l.resolve(op.Inputs[i])
}

// inputTensor fetches the registered tensor named by the i-th operand.
func (l *Loader) inputTensor(op *OperatorDef, i int) (*tensor.Tensor, error) {
	if i >= len(op.Inputs) {
		return nil, fmt.Errorf("%w: operator needs input %d but has %d", ErrParseData, i, len(op.Inputs))
	}
	return l.TensorByName(op.Inputs[i])
}

// channelAxis translates the "order" layout argument into the channel
// dimension index.
func channelAxis(dict ArgumentDictionary) (int, error) {
	order, err := dict.StrOr("order", "NCHW")
	if err != nil {
		return 0, err
	}
	switch order {
	case "NHWC":
		return 3, nil
	case "NCHW":
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: invalid order field %q", ErrUnsupportedOperator, order)
	}
}

func wantRank4(n *graph.Node) error {
	if len(n.Dims()) != 4 {
		return fmt.Errorf("%w: input %v must be rank 4", ErrParseData, n.Dims())
	}
	return nil
}

func (l *Loader) lowerRelu(op *OperatorDef, _ ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	return l.g.CreateRelu(opName(op), in), nil
}

//nolint:gocognit // Convolution lowering touches every part of the record.
func (l *Loader) lowerConv(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	stride, err := dict.IntOr("stride", 1)
	if err != nil {
		return nil, err
	}
	pad, err := dict.IntOr("pad", 0)
	if err != nil {
		return nil, err
	}
	kernel, err := dict.Int("kernel")
	if err != nil {
		return nil, err
	}
	group, err := dict.IntOr("group", 1)
	if err != nil {
		return nil, err
	}
	if kernel <= 0 || stride <= 0 {
		return nil, fmt.Errorf("%w: kernel %d stride %d", ErrParseData, kernel, stride)
	}

	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	w, err := l.inputTensor(op, 1)
	if err != nil {
		return nil, err
	}

	// The convolution reads channel-last filters; the model stores them
	// output-major channel-second (O,C,H,W).
	wtag, err := w.Transpose(0, 2, 3, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: weights: %v", ErrParseData, err)
	}
	if wtag.Shape()[1] != kernel || wtag.Shape()[2] != kernel {
		return nil, fmt.Errorf("%w: weights %v do not match kernel %d", ErrParseData, w.Shape(), kernel)
	}

	// The filter depth gives the output channel count, which also sizes
	// the default bias.
	depth := wtag.Shape()[0]

	filter := l.g.CreateInput("conv.filter", wtag.DType(), wtag.Shape(), graph.Private, graph.TrainBroadcast)
	if err := filter.Payload().CopyFrom(wtag); err != nil {
		return nil, fmt.Errorf("%w: weights: %v", ErrParseData, err)
	}

	bias := l.g.CreateInput("conv.bias", tensor.Float32, tensor.Shape{depth}, graph.Private, graph.TrainBroadcast)
	// A serialized bias vector is optional; the zero fill stands otherwise.
	if len(op.Inputs) > 2 {
		if b, ok := l.tensors[op.Inputs[2]]; ok {
			if err := bias.Payload().CopyFrom(b); err != nil {
				return nil, fmt.Errorf("%w: bias: %v", ErrParseData, err)
			}
		}
	}

	if err := wantRank4(in); err != nil {
		return nil, err
	}

	// Activations arrive channel-first; convolve channel-last and
	// transpose the result back.
	name := opName(op)
	tr := l.g.CreateTranspose(name, in, graph.NCHW2NHWC)
	idim := graph.NHWC(tr.Dims())
	outH, outW := graph.ConvOutputDims(idim.H, idim.W, kernel, stride, pad)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: window %d stride %d pad %d does not fit input %v", ErrParseData, kernel, stride, pad, in.Dims())
	}
	outDims := tensor.Shape{idim.N, outH, outW, depth}

	node := l.g.CreateConv(name, tr, filter, bias, outDims, kernel, stride, pad, group)
	return l.g.CreateTranspose(name, node, graph.NHWC2NCHW), nil
}

func (l *Loader) lowerMaxPool(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	return l.lowerPool(op, dict, true)
}

func (l *Loader) lowerAvgPool(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	return l.lowerPool(op, dict, false)
}

func (l *Loader) lowerPool(op *OperatorDef, dict ArgumentDictionary, max bool) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	stride, err := dict.Int("stride")
	if err != nil {
		return nil, err
	}
	pad, err := dict.IntOr("pad", 0)
	if err != nil {
		return nil, err
	}
	if !dict.Has("pad") {
		for _, edge := range []string{"pad_l", "pad_r", "pad_t", "pad_b"} {
			if dict.Has(edge) {
				return nil, fmt.Errorf("%w: per-edge padding %q\n%s", ErrUnsupportedOperator, edge, op)
			}
		}
	}

	if err := wantRank4(in); err != nil {
		return nil, err
	}

	// Global pooling reduces each channel plane to one value by widening
	// the window to the input size.
	var kernel int
	if dict.Has("global_pooling") {
		kernel = in.Dims()[3]
	} else if kernel, err = dict.Int("kernel"); err != nil {
		return nil, err
	}
	if kernel <= 0 || stride <= 0 {
		return nil, fmt.Errorf("%w: kernel %d stride %d", ErrParseData, kernel, stride)
	}

	name := opName(op)
	tr := l.g.CreateTranspose(name, in, graph.NCHW2NHWC)
	idim := graph.NHWC(tr.Dims())
	outH, outW := graph.ConvOutputDims(idim.H, idim.W, kernel, stride, pad)
	if outH <= 0 || outW <= 0 {
		return nil, fmt.Errorf("%w: window %d stride %d pad %d does not fit input %v", ErrParseData, kernel, stride, pad, in.Dims())
	}

	var node *graph.Node
	if max {
		node = l.g.CreateMaxPool(name, tr, kernel, stride, pad)
	} else {
		node = l.g.CreateAvgPool(name, tr, kernel, stride, pad)
	}
	return l.g.CreateTranspose(name, node, graph.NHWC2NCHW), nil
}

// lowerDropout forwards its input unchanged; inference drops nothing.
func (l *Loader) lowerDropout(op *OperatorDef, _ ArgumentDictionary) (*graph.Node, error) {
	return l.operand(op, 0)
}

func (l *Loader) lowerSpatialBN(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	scale, err := l.inputTensor(op, 1)
	if err != nil {
		return nil, err
	}
	bias, err := l.inputTensor(op, 2)
	if err != nil {
		return nil, err
	}
	mean, err := l.inputTensor(op, 3)
	if err != nil {
		return nil, err
	}
	variance, err := l.inputTensor(op, 4)
	if err != nil {
		return nil, err
	}
	epsilon, err := dict.FloatOr("epsilon", 1e-5)
	if err != nil {
		return nil, err
	}
	channel, err := channelAxis(dict)
	if err != nil {
		return nil, err
	}
	if channel >= len(in.Dims()) {
		return nil, fmt.Errorf("%w: channel axis %d out of range for %v", ErrParseData, channel, in.Dims())
	}

	node := l.g.CreateBatchNorm(opName(op), in, channel, epsilon)
	if err := node.Scale().CopyFrom(scale); err != nil {
		return nil, fmt.Errorf("%w: scale: %v", ErrParseData, err)
	}
	if err := node.Bias().CopyFrom(bias); err != nil {
		return nil, fmt.Errorf("%w: bias: %v", ErrParseData, err)
	}
	if err := node.Mean().CopyFrom(mean); err != nil {
		return nil, fmt.Errorf("%w: mean: %v", ErrParseData, err)
	}
	if err := node.Variance().CopyFrom(variance); err != nil {
		return nil, fmt.Errorf("%w: var: %v", ErrParseData, err)
	}
	return node, nil
}

func (l *Loader) lowerConcat(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	if len(op.Inputs) == 0 {
		return nil, fmt.Errorf("%w: concat needs inputs", ErrParseData)
	}
	inputs := make([]*graph.Node, len(op.Inputs))
	for i := range op.Inputs {
		in, err := l.operand(op, i)
		if err != nil {
			return nil, err
		}
		inputs[i] = in
	}
	channel, err := channelAxis(dict)
	if err != nil {
		return nil, err
	}

	first := inputs[0].Dims()
	if channel >= len(first) {
		return nil, fmt.Errorf("%w: channel axis %d out of range for %v", ErrParseData, channel, first)
	}
	for _, in := range inputs[1:] {
		dims := in.Dims()
		if len(dims) != len(first) {
			return nil, fmt.Errorf("%w: concat inputs disagree on rank: %v vs %v", ErrParseData, dims, first)
		}
		for i := range dims {
			if i != channel && dims[i] != first[i] {
				return nil, fmt.Errorf("%w: concat inputs disagree on dimension %d: %v vs %v", ErrParseData, i, dims, first)
			}
		}
	}
	return l.g.CreateConcat(opName(op), inputs, channel), nil
}

// lowerSum adds the first two operands. Records declaring more are
// accepted; the extras are ignored.
func (l *Loader) lowerSum(op *OperatorDef, _ ArgumentDictionary) (*graph.Node, error) {
	in0, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	in1, err := l.operand(op, 1)
	if err != nil {
		return nil, err
	}
	return l.g.CreateAdd(opName(op), in0, in1), nil
}

func (l *Loader) lowerSoftmax(op *OperatorDef, _ ArgumentDictionary) (*graph.Node, error) {
	// The label operand is bound under a reserved registry name and
	// resolved before the data operand.
	expected, err := l.resolve("softmax_expected")
	if err != nil {
		return nil, err
	}
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	if len(in.Dims()) == 0 {
		return nil, fmt.Errorf("%w: input has no dimensions", ErrParseData)
	}

	// Shapes like <N x 10 x 1 x 1> are accepted. Flatten the input to two
	// dimensions, similar to a bitcast.
	first, rest := graph.FlattenCdr(in.Dims())
	in = l.g.CreateReshape("reshape", in, tensor.Shape{first, rest})
	return l.g.CreateSoftmax(opName(op), in, expected), nil
}

func (l *Loader) lowerFullyConnected(op *OperatorDef, _ ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	w, err := l.inputTensor(op, 1)
	if err != nil {
		return nil, err
	}
	b, err := l.inputTensor(op, 2)
	if err != nil {
		return nil, err
	}

	// The weight matrix is stored transposed; transpose it back.
	wtag, err := w.Transpose(1, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: weights: %v", ErrParseData, err)
	}

	if len(in.Dims()) == 0 {
		return nil, fmt.Errorf("%w: input has no dimensions", ErrParseData)
	}
	_, rest := graph.FlattenCdr(in.Dims())
	if wtag.Shape()[0] != rest {
		return nil, fmt.Errorf("%w: weights %v do not match input %v", ErrParseData, w.Shape(), in.Dims())
	}
	if len(b.Shape()) != 1 || b.Shape()[0] != wtag.Shape()[1] {
		return nil, fmt.Errorf("%w: bias %v does not match weights %v", ErrParseData, b.Shape(), w.Shape())
	}

	weights := l.g.CreateInput("weights", wtag.DType(), wtag.Shape(), graph.Private, graph.TrainNone)
	if err := weights.Payload().CopyFrom(wtag); err != nil {
		return nil, fmt.Errorf("%w: weights: %v", ErrParseData, err)
	}
	biases := l.g.CreateInput("biases", b.DType(), b.Shape(), graph.Private, graph.TrainNone)
	if err := biases.Payload().CopyFrom(b); err != nil {
		return nil, fmt.Errorf("%w: bias: %v", ErrParseData, err)
	}
	return l.g.CreateFullyConnected(opName(op), in, weights, biases), nil
}

func (l *Loader) lowerLRN(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	size, err := dict.Int("size")
	if err != nil {
		return nil, err
	}
	alpha, err := dict.Float("alpha")
	if err != nil {
		return nil, err
	}
	beta, err := dict.Float("beta")
	if err != nil {
		return nil, err
	}
	k, err := dict.Float("bias")
	if err != nil {
		return nil, err
	}
	if err := wantRank4(in); err != nil {
		return nil, err
	}

	// The size argument counts the full window; the node wants the
	// one-sided half.
	name := opName(op)
	tr := l.g.CreateTranspose(name, in, graph.NCHW2NHWC)
	node := l.g.CreateLocalResponseNormalization(name, tr, size/2, alpha, beta, k)
	return l.g.CreateTranspose(name, node, graph.NHWC2NCHW), nil
}

func (l *Loader) lowerMul(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	return l.lowerEltwise(op, dict, true)
}

func (l *Loader) lowerAdd(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	return l.lowerEltwise(op, dict, false)
}

func (l *Loader) lowerEltwise(op *OperatorDef, dict ArgumentDictionary, mul bool) (*graph.Node, error) {
	in0, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	in1, err := l.operand(op, 1)
	if err != nil {
		return nil, err
	}
	broadcast, err := dict.Int("broadcast")
	if err != nil {
		return nil, err
	}

	name := opName(op)
	finalIn1 := in1
	if broadcast == 1 {
		axis, err := dict.Int("axis")
		if err != nil {
			return nil, err
		}
		// Axis -1 aligns the trailing dimensions.
		if axis == -1 {
			axis = len(in0.Dims()) - len(in1.Dims())
		}
		if axis < 0 || axis+len(in1.Dims()) > len(in0.Dims()) {
			return nil, fmt.Errorf("%w: broadcast axis %d out of range for %v into %v", ErrParseData, axis, in1.Dims(), in0.Dims())
		}
		for i, d := range in1.Dims() {
			if td := in0.Dims()[axis+i]; d != td && d != 1 {
				return nil, fmt.Errorf("%w: cannot broadcast %v into %v at axis %d", ErrParseData, in1.Dims(), in0.Dims(), axis)
			}
		}
		finalIn1 = l.g.CreateBroadcast(name, in1, in0.Dims(), axis)
	}

	if mul {
		return l.g.CreateMul(name, in0, finalIn1), nil
	}
	return l.g.CreateAdd(name, in0, finalIn1), nil
}

func (l *Loader) lowerChannelShuffle(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	group, err := dict.Int("group")
	if err != nil {
		return nil, err
	}
	kernel, err := dict.Int("kernel")
	if err != nil {
		return nil, err
	}
	if kernel < 0 || kernel >= len(in.Dims()) {
		return nil, fmt.Errorf("%w: shuffle axis %d out of range for %v", ErrParseData, kernel, in.Dims())
	}
	if group <= 0 || in.Dims()[kernel]%group != 0 {
		return nil, fmt.Errorf("%w: dimension %d not divisible into %d groups", ErrParseData, in.Dims()[kernel], group)
	}
	return l.g.CreateChannelShuffle(opName(op), in, group, kernel), nil
}

func (l *Loader) lowerSqueeze(op *OperatorDef, dict ArgumentDictionary) (*graph.Node, error) {
	in, err := l.operand(op, 0)
	if err != nil {
		return nil, err
	}
	dims, err := dict.Shape("dims")
	if err != nil {
		return nil, err
	}
	for _, axis := range dims {
		if axis < 0 || axis >= len(in.Dims()) {
			return nil, fmt.Errorf("%w: squeeze axis %d out of range for %v", ErrParseData, axis, in.Dims())
		}
		if in.Dims()[axis] != 1 {
			return nil, fmt.Errorf("%w: squeeze axis %d has size %d", ErrParseData, axis, in.Dims()[axis])
		}
	}
	return l.g.CreateSqueeze(opName(op), in, dims), nil
}
