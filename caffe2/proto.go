package caffe2

import (
	internalcaffe2 "github.com/hedgefair/glow/internal/caffe2"
)

// NetDef is a decoded Caffe2 network definition. Its String method renders
// the network in protobuf text format.
type NetDef = internalcaffe2.NetDef

// OperatorDef is a single operator record inside a NetDef.
type OperatorDef = internalcaffe2.OperatorDef

// Argument is one named value attached to an operator.
type Argument = internalcaffe2.Argument

// ArgumentDictionary indexes an operator's arguments by name.
type ArgumentDictionary = internalcaffe2.ArgumentDictionary

// Parse decodes a binary protobuf NetDef.
func Parse(data []byte) (*NetDef, error) {
	return internalcaffe2.Parse(data)
}

// ParseText decodes a protobuf text format NetDef.
func ParseText(data []byte) (*NetDef, error) {
	return internalcaffe2.ParseText(data)
}

// ParseFile decodes a NetDef from a file, choosing the decoder by suffix:
// ".pbtxt" selects the text format, anything else the binary format.
func ParseFile(path string) (*NetDef, error) {
	return internalcaffe2.ParseFile(path)
}

// Sentinel errors returned by the decoders and the import passes. Wrapped
// errors carry record context; match with errors.Is.
var (
	ErrParseData             = internalcaffe2.ErrParseData
	ErrMissingArgument       = internalcaffe2.ErrMissingArgument
	ErrTypeMismatch          = internalcaffe2.ErrTypeMismatch
	ErrUnsupportedOperator   = internalcaffe2.ErrUnsupportedOperator
	ErrUnknownTensor         = internalcaffe2.ErrUnknownTensor
	ErrUnknownNode           = internalcaffe2.ErrUnknownNode
	ErrMissingExternalOutput = internalcaffe2.ErrMissingExternalOutput
)
