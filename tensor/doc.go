// Copyright 2025 Glow Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the constant tensor values flowing through the
// model importer.
//
// # Overview
//
// A Tensor is a contiguous, typed n-dimensional buffer. The importer
// materializes model weights into Tensors, copies them into graph node
// payloads, and treats them as immutable afterwards. There is no device
// abstraction and no arithmetic here: executing the graph is a concern of
// whatever backend consumes it.
//
// # Basic Usage
//
//	import "github.com/hedgefair/glow/tensor"
//
//	// A zero-initialized activation buffer.
//	data, err := tensor.New(tensor.Shape{1, 3, 224, 224}, tensor.Float32)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// A weight tensor with explicit values.
//	w, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
package tensor
