// Package caffe2 imports Caffe2 models into a glow computation graph.
//
// A Caffe2 model is a pair of NetDef records: a weights network made of
// fill operators and a predict network made of compute operators. This
// package decodes both (binary protobuf or text format), materializes the
// weights, and lowers every compute operator into graph nodes, returning
// the terminal save node bound to the network's first external output.
//
// # Supported Operators
//
//   - Fills: GivenTensorFill, ConstantFill
//   - Compute: Conv, MaxPool, AveragePool, Relu, Dropout, SpatialBN,
//     Concat, Sum, Softmax, FC, LRN, Mul, Add, ChannelShuffle, Squeeze
//
// # Example Usage
//
//	import (
//	    "github.com/hedgefair/glow/caffe2"
//	    "github.com/hedgefair/glow/graph"
//	    "github.com/hedgefair/glow/tensor"
//	)
//
//	data, err := tensor.New(tensor.Shape{1, 3, 224, 224}, tensor.Float32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	g := graph.New("squeezenet")
//	root, err := caffe2.LoadFiles("predict_net.pb", "init_net.pb",
//	    map[string]*tensor.Tensor{"data": data}, g)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("output:", root.Dims())
//
// Activations arrive in NCHW order and are transposed around every
// windowed operation; the graph's convolution and pooling nodes work on
// channel-last values.
package caffe2

import (
	internalcaffe2 "github.com/hedgefair/glow/internal/caffe2"
	"github.com/hedgefair/glow/internal/graph"
	"github.com/hedgefair/glow/internal/tensor"
)

// Loader is one import session: it owns the tensor registry filled by the
// weight pass and the name-to-node cache filled by the compute pass.
//
// Most callers want Load or LoadFiles; a Loader is for hosts that need to
// pre-seed inputs piecemeal or run the passes separately:
//
//	l := caffe2.NewLoader(g)
//	l.RegisterInput("data", data)
//	if err := l.LoadWeights(weightsDef); err != nil { ... }
//	if err := l.LoadNetwork(netDef); err != nil { ... }
//	root := l.Root()
type Loader = internalcaffe2.Loader

// NewLoader starts an import session targeting g.
func NewLoader(g *graph.Graph) *Loader {
	return internalcaffe2.NewLoader(g)
}

// Load imports a model whose fill and compute operators share one NetDef.
// inputs pre-seeds the named network inputs; fill records never overwrite
// a pre-seeded name. It returns the terminal save node.
func Load(net *NetDef, inputs map[string]*tensor.Tensor, g *graph.Graph) (*graph.Node, error) {
	return internalcaffe2.Load(net, inputs, g)
}

// LoadFiles imports a model split across a predict network and a weights
// network, the two-file layout Caffe2 tooling writes. Either file may be
// binary protobuf or text format; a ".pbtxt" suffix selects the text
// decoder.
func LoadFiles(netPath, weightsPath string, inputs map[string]*tensor.Tensor, g *graph.Graph) (*graph.Node, error) {
	return internalcaffe2.LoadFiles(netPath, weightsPath, inputs, g)
}
