// Copyright 2025 Glow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package graph provides the computation graph a model import lowers into.
//
// A Graph is append-only: factory methods create nodes, compute result
// dimensions and wire operands. Nodes are immutable once created, except
// for the payload and parameter tensors the importer fills in. Factories
// panic on structurally invalid calls; the importer validates model
// records first and turns violations into errors, so a panic here is a
// programming bug, not bad model data.
//
// Example:
//
//	g := graph.New("net")
//	in := g.CreateInput("data", tensor.Float32, tensor.Shape{1, 4}, graph.Public, graph.TrainNone)
//	relu := g.CreateRelu("relu", in)
//	g.CreateSave("output", relu)
//	fmt.Print(g)
package graph

import (
	"github.com/hedgefair/glow/internal/graph"
	"github.com/hedgefair/glow/internal/tensor"
)

// Graph owns the nodes produced during one model import.
type Graph = graph.Graph

// Node is a single operation in a Graph.
type Node = graph.Node

// Kind identifies the operation a node performs.
type Kind = graph.Kind

// Node kinds.
const (
	KindInput          Kind = graph.KindInput
	KindRelu           Kind = graph.KindRelu
	KindConv           Kind = graph.KindConv
	KindMaxPool        Kind = graph.KindMaxPool
	KindAvgPool        Kind = graph.KindAvgPool
	KindBatchNorm      Kind = graph.KindBatchNorm
	KindConcat         Kind = graph.KindConcat
	KindAdd            Kind = graph.KindAdd
	KindMul            Kind = graph.KindMul
	KindSoftmax        Kind = graph.KindSoftmax
	KindFullyConnected Kind = graph.KindFullyConnected
	KindLRN            Kind = graph.KindLRN
	KindBroadcast      Kind = graph.KindBroadcast
	KindTranspose      Kind = graph.KindTranspose
	KindReshape        Kind = graph.KindReshape
	KindChannelShuffle Kind = graph.KindChannelShuffle
	KindSqueeze        Kind = graph.KindSqueeze
	KindSave           Kind = graph.KindSave
)

// Visibility says whether an input node belongs to the graph's public
// interface or is an internal constant.
type Visibility = graph.Visibility

// Input node visibility.
const (
	Public  Visibility = graph.Public
	Private Visibility = graph.Private
)

// TrainKind marks how an input node participates in training.
type TrainKind = graph.TrainKind

// Input node training modes.
const (
	TrainNone      TrainKind = graph.TrainNone
	TrainBroadcast TrainKind = graph.TrainBroadcast
)

// ShapeNHWC names the dimensions of a rank-4 channel-last value.
type ShapeNHWC = graph.ShapeNHWC

// Layout permutations between channel-first and channel-last order.
var (
	NCHW2NHWC = graph.NCHW2NHWC
	NHWC2NCHW = graph.NHWC2NCHW
)

// New creates an empty graph.
func New(name string) *Graph {
	return graph.New(name)
}

// NHWC views a rank-4 dimension list as channel-last.
func NHWC(dims tensor.Shape) ShapeNHWC {
	return graph.NHWC(dims)
}

// ConvOutputDims computes the spatial output size of a convolution or
// pooling window slid over an h by w input.
func ConvOutputDims(h, w, kernel, stride, pad int) (outH, outW int) {
	return graph.ConvOutputDims(h, w, kernel, stride, pad)
}

// FlattenCdr collapses all trailing dimensions into one, returning the
// leading dimension and the product of the rest.
func FlattenCdr(dims tensor.Shape) (first, rest int) {
	return graph.FlattenCdr(dims)
}
