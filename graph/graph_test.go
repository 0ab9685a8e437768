// Copyright 2025 Glow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package graph_test

import (
	"strings"
	"testing"

	"github.com/hedgefair/glow/graph"
	"github.com/hedgefair/glow/tensor"
)

// TestGraphAPI verifies the facade exposes the graph construction surface.
func TestGraphAPI(t *testing.T) {
	g := graph.New("net")
	in := g.CreateInput("data", tensor.Float32, tensor.Shape{1, 4}, graph.Public, graph.TrainNone)
	relu := g.CreateRelu("relu", in)
	save := g.CreateSave("output", relu)

	if len(g.Nodes()) != 3 {
		t.Fatalf("Nodes() = %d nodes, want 3", len(g.Nodes()))
	}
	if save.Kind() != graph.KindSave {
		t.Errorf("Kind() = %v, want save", save.Kind())
	}
	if save.Input(0) != relu {
		t.Error("Expected the save to read the relu")
	}
	if !strings.Contains(g.String(), `graph "net"`) {
		t.Errorf("String() = %q, want the graph name in it", g.String())
	}
}

func TestShapeHelpers(t *testing.T) {
	outH, outW := graph.ConvOutputDims(10, 10, 3, 1, 0)
	if outH != 8 || outW != 8 {
		t.Errorf("ConvOutputDims() = (%d, %d), want (8, 8)", outH, outW)
	}

	first, rest := graph.FlattenCdr(tensor.Shape{2, 3, 4})
	if first != 2 || rest != 12 {
		t.Errorf("FlattenCdr() = (%d, %d), want (2, 12)", first, rest)
	}

	idim := graph.NHWC(tensor.Shape{1, 8, 8, 3})
	if idim.N != 1 || idim.H != 8 || idim.W != 8 || idim.C != 3 {
		t.Errorf("NHWC() = %+v, want {1 8 8 3}", idim)
	}
}
