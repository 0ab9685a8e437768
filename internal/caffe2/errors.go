package caffe2

import "errors"

// Import errors. Every failure aborts the whole import; a partially lowered
// graph is unsafe to hand to the caller.
var (
	ErrParseData             = errors.New("malformed record data")
	ErrMissingArgument       = errors.New("required argument missing")
	ErrTypeMismatch          = errors.New("argument holds a different type")
	ErrUnsupportedOperator   = errors.New("unsupported operator")
	ErrUnknownTensor         = errors.New("no tensor registered with this name")
	ErrUnknownNode           = errors.New("no node created with this name")
	ErrMissingExternalOutput = errors.New("network needs external outputs defined")
)
