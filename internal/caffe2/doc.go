// Package caffe2 imports Caffe2 models into a computation graph.
//
// Caffe2 splits a model across two protobuf NetDef documents: a weights
// network made of "fill" pseudo-operators that carry the trained constants,
// and a predict network listing the compute operators. This package decodes
// both documents (binary wire format or pbtxt text format, hand-written
// decoders without external dependencies) and lowers them into graph nodes.
//
// Key components:
//   - NetDef, OperatorDef, Argument: decoded protobuf records
//   - ArgumentDictionary: typed accessors over an operator's argument list
//   - Loader: one import session holding the tensor registry and node cache
//
// Example usage:
//
//	g := graph.New("resnet")
//	data, _ := tensor.New(tensor.Shape{1, 3, 224, 224}, tensor.Float32)
//	root, err := caffe2.LoadFiles("predict_net.pb", "init_net.pb",
//		map[string]*tensor.Tensor{"data": data}, g)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(root.Dims())
package caffe2
