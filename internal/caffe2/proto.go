package caffe2

import (
	"fmt"
	"strconv"
	"strings"
)

// NetDef is a decoded Caffe2 network definition. The same record shape
// carries both halves of a model: the weights network (fill operators) and
// the predict network (compute operators).
type NetDef struct {
	Name           string
	Ops            []*OperatorDef
	ExternalInput  []string
	ExternalOutput []string
}

// OperatorDef is a single operator record inside a NetDef.
type OperatorDef struct {
	Inputs  []string
	Outputs []string
	Name    string
	Type    string
	Args    []*Argument
}

// Argument is one named value attached to an operator. At most one scalar
// field is set; the Has flags record which one was present on the wire,
// since a zero value is indistinguishable from an absent field otherwise.
type Argument struct {
	Name    string
	F       float32
	I       int64
	S       []byte
	Floats  []float32
	Ints    []int64
	Strings [][]byte

	HasF bool
	HasI bool
	HasS bool
}

// String renders the network in protobuf text format.
func (n *NetDef) String() string {
	var b strings.Builder
	if n.Name != "" {
		fmt.Fprintf(&b, "name: %q\n", n.Name)
	}
	for _, op := range n.Ops {
		fmt.Fprintf(&b, "op {\n%s}\n", indent(op.String()))
	}
	for _, in := range n.ExternalInput {
		fmt.Fprintf(&b, "external_input: %q\n", in)
	}
	for _, out := range n.ExternalOutput {
		fmt.Fprintf(&b, "external_output: %q\n", out)
	}
	return b.String()
}

// String renders the operator in protobuf text format. Unsupported-operator
// diagnostics embed this rendering so unfamiliar model variants can be
// inspected without extra tooling.
func (op *OperatorDef) String() string {
	var b strings.Builder
	for _, in := range op.Inputs {
		fmt.Fprintf(&b, "input: %q\n", in)
	}
	for _, out := range op.Outputs {
		fmt.Fprintf(&b, "output: %q\n", out)
	}
	if op.Name != "" {
		fmt.Fprintf(&b, "name: %q\n", op.Name)
	}
	if op.Type != "" {
		fmt.Fprintf(&b, "type: %q\n", op.Type)
	}
	for _, arg := range op.Args {
		fmt.Fprintf(&b, "arg {\n%s}\n", indent(arg.String()))
	}
	return b.String()
}

// String renders the argument in protobuf text format.
func (a *Argument) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %q\n", a.Name)
	if a.HasF {
		fmt.Fprintf(&b, "f: %s\n", formatFloat(a.F))
	}
	if a.HasI {
		fmt.Fprintf(&b, "i: %d\n", a.I)
	}
	if a.HasS {
		fmt.Fprintf(&b, "s: %q\n", a.S)
	}
	for _, v := range a.Floats {
		fmt.Fprintf(&b, "floats: %s\n", formatFloat(v))
	}
	for _, v := range a.Ints {
		fmt.Fprintf(&b, "ints: %d\n", v)
	}
	for _, v := range a.Strings {
		fmt.Fprintf(&b, "strings: %q\n", v)
	}
	return b.String()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
