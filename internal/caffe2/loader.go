package caffe2

import (
	"fmt"
	"sort"

	"github.com/hedgefair/glow/internal/graph"
	"github.com/hedgefair/glow/internal/tensor"
)

// Loader is one import session. It owns the tensor registry filled by the
// weight pass and the name-to-node cache filled by the compute pass; both
// live exactly as long as the import. Nodes belong to the target graph, the
// loader only holds references.
type Loader struct {
	g          *graph.Graph
	tensors    map[string]*tensor.Tensor
	nodeByName map[string]*graph.Node
	root       *graph.Node
}

// NewLoader starts an import session targeting g.
func NewLoader(g *graph.Graph) *Loader {
	return &Loader{
		g:          g,
		tensors:    make(map[string]*tensor.Tensor),
		nodeByName: make(map[string]*graph.Node),
	}
}

// RegisterInput pre-seeds a named network input before the passes run. The
// tensor is registered and a public input node of the same shape is created
// carrying a copy of its contents, so fill records for the name leave the
// caller's binding alone.
func (l *Loader) RegisterInput(name string, t *tensor.Tensor) {
	node := l.g.CreateInput(name, t.DType(), t.Shape(), graph.Public, graph.TrainNone)
	copy(node.Payload().Data(), t.Data())
	l.tensors[name] = t
	l.nodeByName[name] = node
}

// resolve returns the node registered under name, lazily promoting a
// registry tensor into a private constant input node. Resolving the same
// name twice returns the same node.
func (l *Loader) resolve(name string) (*graph.Node, error) {
	if n, ok := l.nodeByName[name]; ok {
		return n, nil
	}
	t, err := l.TensorByName(name)
	if err != nil {
		return nil, err
	}
	node := l.g.CreateInput(name, t.DType(), t.Shape(), graph.Private, graph.TrainBroadcast)
	copy(node.Payload().Data(), t.Data())
	l.nodeByName[name] = node
	return node, nil
}

// NodeByName returns the node created under name. Unlike resolve it never
// promotes registry tensors; a name only a tensor knows is an error here.
func (l *Loader) NodeByName(name string) (*graph.Node, error) {
	if n, ok := l.nodeByName[name]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
}

// TensorByName returns the tensor registered under name.
func (l *Loader) TensorByName(name string) (*tensor.Tensor, error) {
	if t, ok := l.tensors[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTensor, name)
}

// LoadNetwork runs the compute pass: every operator is lowered in file
// order (an operator's inputs must already be a lowered node or a
// registered tensor), then the first declared external output is bound to
// a terminal save node. Fill kinds are passed over; they belong to the
// weight pass.
func (l *Loader) LoadNetwork(net *NetDef) error {
	for _, op := range net.Ops {
		if kindOf(op.Type).isFill() {
			continue
		}
		if err := l.loadOperator(op); err != nil {
			return fmt.Errorf("operator %q (%s): %w", opName(op), op.Type, err)
		}
	}

	if len(net.ExternalOutput) == 0 {
		return ErrMissingExternalOutput
	}
	r, err := l.NodeByName(net.ExternalOutput[0])
	if err != nil {
		return err
	}
	l.root = l.g.CreateSave("output", r)
	return nil
}

// Root returns the terminal save node, nil before LoadNetwork succeeds.
func (l *Loader) Root() *graph.Node {
	return l.root
}

// Load imports a model whose fill and compute operators share one NetDef.
// inputs pre-seeds the named network inputs. It returns the terminal save
// node.
func Load(net *NetDef, inputs map[string]*tensor.Tensor, g *graph.Graph) (*graph.Node, error) {
	l := NewLoader(g)
	for _, name := range sortedNames(inputs) {
		l.RegisterInput(name, inputs[name])
	}
	if err := l.LoadWeights(net); err != nil {
		return nil, err
	}
	if err := l.LoadNetwork(net); err != nil {
		return nil, err
	}
	return l.Root(), nil
}

// LoadFiles imports a model split across a predict network and a weights
// network, the two-file layout Caffe2 tooling writes. Either file may be
// binary or pbtxt.
func LoadFiles(netPath, weightsPath string, inputs map[string]*tensor.Tensor, g *graph.Graph) (*graph.Node, error) {
	netDef, err := ParseFile(netPath)
	if err != nil {
		return nil, err
	}
	weightsDef, err := ParseFile(weightsPath)
	if err != nil {
		return nil, err
	}

	l := NewLoader(g)
	for _, name := range sortedNames(inputs) {
		l.RegisterInput(name, inputs[name])
	}
	if err := l.LoadWeights(weightsDef); err != nil {
		return nil, err
	}
	if err := l.LoadNetwork(netDef); err != nil {
		return nil, err
	}
	return l.Root(), nil
}

// sortedNames keeps input registration order deterministic across runs.
func sortedNames(inputs map[string]*tensor.Tensor) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
