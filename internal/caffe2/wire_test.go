package caffe2

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestParseNetDef tests decoding a small binary network.
func TestParseNetDef(t *testing.T) {
	data := buildConvNet()

	net, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if net.Name != "test_net" {
		t.Errorf("Expected name 'test_net', got %q", net.Name)
	}

	if len(net.Ops) != 1 {
		t.Fatalf("Expected 1 op, got %d", len(net.Ops))
	}

	op := net.Ops[0]
	if op.Type != "Conv" {
		t.Errorf("Expected type 'Conv', got %q", op.Type)
	}
	if len(op.Inputs) != 2 || op.Inputs[0] != "data" || op.Inputs[1] != "conv_w" {
		t.Errorf("Unexpected inputs: %v", op.Inputs)
	}
	if len(op.Outputs) != 1 || op.Outputs[0] != "conv1" {
		t.Errorf("Unexpected outputs: %v", op.Outputs)
	}
	if len(op.Args) != 1 {
		t.Fatalf("Expected 1 arg, got %d", len(op.Args))
	}
	arg := op.Args[0]
	if arg.Name != "stride" || !arg.HasI || arg.I != 2 {
		t.Errorf("Unexpected arg: %+v", arg)
	}

	if len(net.ExternalInput) != 1 || net.ExternalInput[0] != "data" {
		t.Errorf("Unexpected external inputs: %v", net.ExternalInput)
	}
	if len(net.ExternalOutput) != 1 || net.ExternalOutput[0] != "conv1" {
		t.Errorf("Unexpected external outputs: %v", net.ExternalOutput)
	}
}

// TestParseArgumentScalars tests the scalar argument fields and their
// presence flags.
func TestParseArgumentScalars(t *testing.T) {
	arg := &protoBuilder{}
	arg.startMessage()
	arg.writeTag(1, wireBytes)
	arg.writeBytes([]byte("epsilon"))
	arg.writeTag(2, wire32Bit)
	arg.writeFloat32(0.001)
	arg.writeTag(3, wireVarint)
	arg.writeVarint(7)
	arg.writeTag(4, wireBytes)
	arg.writeBytes([]byte("NCHW"))
	arg.endMessage()

	data := wrapOpWithArg(arg.data[4:])
	net, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := net.Ops[0].Args[0]
	if got.Name != "epsilon" {
		t.Errorf("Expected name 'epsilon', got %q", got.Name)
	}
	if !got.HasF || got.F != 0.001 {
		t.Errorf("Expected f=0.001, got %v (present %v)", got.F, got.HasF)
	}
	if !got.HasI || got.I != 7 {
		t.Errorf("Expected i=7, got %v (present %v)", got.I, got.HasI)
	}
	if !got.HasS || string(got.S) != "NCHW" {
		t.Errorf("Expected s='NCHW', got %q (present %v)", got.S, got.HasS)
	}
}

// TestParseRepeatedUnpacked tests the unpacked encoding of repeated scalars,
// the form proto2 serializers emit by default.
func TestParseRepeatedUnpacked(t *testing.T) {
	arg := &protoBuilder{}
	arg.startMessage()
	arg.writeTag(1, wireBytes)
	arg.writeBytes([]byte("shape"))
	for _, v := range []int64{1, 3, 224, 224} {
		arg.writeTag(6, wireVarint)
		arg.writeVarint(v)
	}
	for _, v := range []float32{0.5, -1.25} {
		arg.writeTag(5, wire32Bit)
		arg.writeFloat32(v)
	}
	arg.endMessage()

	net, err := Parse(wrapOpWithArg(arg.data[4:]))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := net.Ops[0].Args[0]
	wantInts := []int64{1, 3, 224, 224}
	if len(got.Ints) != len(wantInts) {
		t.Fatalf("Expected %d ints, got %d", len(wantInts), len(got.Ints))
	}
	for i, v := range wantInts {
		if got.Ints[i] != v {
			t.Errorf("ints[%d]: expected %d, got %d", i, v, got.Ints[i])
		}
	}
	if len(got.Floats) != 2 || got.Floats[0] != 0.5 || got.Floats[1] != -1.25 {
		t.Errorf("Unexpected floats: %v", got.Floats)
	}
}

// TestParseRepeatedPacked tests the packed encoding of repeated scalars.
func TestParseRepeatedPacked(t *testing.T) {
	ints := &protoBuilder{}
	for _, v := range []int64{96, 3, 11, 11} {
		ints.writeVarint(v)
	}
	floats := &protoBuilder{}
	for _, v := range []float32{1, 2, 3} {
		floats.writeFloat32(v)
	}

	arg := &protoBuilder{}
	arg.startMessage()
	arg.writeTag(1, wireBytes)
	arg.writeBytes([]byte("shape"))
	arg.writeTag(6, wireBytes)
	arg.writeBytes(ints.data)
	arg.writeTag(5, wireBytes)
	arg.writeBytes(floats.data)
	arg.endMessage()

	net, err := Parse(wrapOpWithArg(arg.data[4:]))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := net.Ops[0].Args[0]
	wantInts := []int64{96, 3, 11, 11}
	if len(got.Ints) != len(wantInts) {
		t.Fatalf("Expected %d ints, got %d", len(wantInts), len(got.Ints))
	}
	for i, v := range wantInts {
		if got.Ints[i] != v {
			t.Errorf("ints[%d]: expected %d, got %d", i, v, got.Ints[i])
		}
	}
	if len(got.Floats) != 3 || got.Floats[0] != 1 || got.Floats[2] != 3 {
		t.Errorf("Unexpected floats: %v", got.Floats)
	}
}

// TestParseSkipsUnknownFields tests that unknown field numbers are skipped
// without disturbing the known ones.
func TestParseSkipsUnknownFields(t *testing.T) {
	buf := &protoBuilder{}
	buf.startMessage()
	buf.writeTag(1, wireBytes)
	buf.writeBytes([]byte("net"))
	buf.writeTag(4, wireVarint) // num_workers, not decoded
	buf.writeVarint(4)
	buf.writeTag(5, wireBytes) // device_option, not decoded
	buf.writeBytes([]byte{0x08, 0x01})
	buf.writeTag(8, wireBytes)
	buf.writeBytes([]byte("out"))
	buf.endMessage()

	net, err := Parse(buf.data[4:])
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if net.Name != "net" {
		t.Errorf("Expected name 'net', got %q", net.Name)
	}
	if len(net.ExternalOutput) != 1 || net.ExternalOutput[0] != "out" {
		t.Errorf("Unexpected external outputs: %v", net.ExternalOutput)
	}
}

// TestParseTruncated tests that cut-off input reports a parse error.
func TestParseTruncated(t *testing.T) {
	data := buildConvNet()

	_, err := Parse(data[:len(data)-3])
	if err == nil {
		t.Fatal("Expected error for truncated input")
	}
	if !errors.Is(err, ErrParseData) {
		t.Errorf("Expected ErrParseData, got %v", err)
	}
}

// TestParseFile tests the extension dispatch between the binary and the
// text decoder.
func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	binPath := filepath.Join(dir, "predict_net.pb")
	if err := os.WriteFile(binPath, buildConvNet(), 0o600); err != nil {
		t.Fatal(err)
	}
	net, err := ParseFile(binPath)
	if err != nil {
		t.Fatalf("ParseFile(binary) failed: %v", err)
	}
	if net.Name != "test_net" {
		t.Errorf("Expected name 'test_net', got %q", net.Name)
	}

	textPath := filepath.Join(dir, "predict_net.pbtxt")
	text := "name: \"text_net\"\nexternal_output: \"out\"\n"
	if err := os.WriteFile(textPath, []byte(text), 0o600); err != nil {
		t.Fatal(err)
	}
	net, err = ParseFile(textPath)
	if err != nil {
		t.Fatalf("ParseFile(text) failed: %v", err)
	}
	if net.Name != "text_net" {
		t.Errorf("Expected name 'text_net', got %q", net.Name)
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.pb")); err == nil {
		t.Error("Expected error for missing file")
	}
}

// buildConvNet serializes a one-operator network:
//
//	name: "test_net"
//	op {
//	  input: "data"
//	  input: "conv_w"
//	  output: "conv1"
//	  type: "Conv"
//	  arg { name: "stride" i: 2 }
//	}
//	external_input: "data"
//	external_output: "conv1"
func buildConvNet() []byte {
	arg := &protoBuilder{}
	arg.startMessage()
	arg.writeTag(1, wireBytes)
	arg.writeBytes([]byte("stride"))
	arg.writeTag(3, wireVarint)
	arg.writeVarint(2)
	arg.endMessage()

	op := &protoBuilder{}
	op.startMessage()
	op.writeTag(1, wireBytes)
	op.writeBytes([]byte("data"))
	op.writeTag(1, wireBytes)
	op.writeBytes([]byte("conv_w"))
	op.writeTag(2, wireBytes)
	op.writeBytes([]byte("conv1"))
	op.writeTag(4, wireBytes)
	op.writeBytes([]byte("Conv"))
	op.writeTag(5, wireBytes)
	op.writeBytes(arg.data[4:])
	op.endMessage()

	buf := &protoBuilder{}
	buf.startMessage()
	buf.writeTag(1, wireBytes)
	buf.writeBytes([]byte("test_net"))
	buf.writeTag(2, wireBytes)
	buf.writeBytes(op.data[4:])
	buf.writeTag(7, wireBytes)
	buf.writeBytes([]byte("data"))
	buf.writeTag(8, wireBytes)
	buf.writeBytes([]byte("conv1"))
	buf.endMessage()

	return buf.data[4:]
}

// wrapOpWithArg serializes a network holding one operator with the given
// pre-encoded argument payload.
func wrapOpWithArg(argData []byte) []byte {
	op := &protoBuilder{}
	op.startMessage()
	op.writeTag(4, wireBytes)
	op.writeBytes([]byte("Test"))
	op.writeTag(5, wireBytes)
	op.writeBytes(argData)
	op.endMessage()

	buf := &protoBuilder{}
	buf.startMessage()
	buf.writeTag(2, wireBytes)
	buf.writeBytes(op.data[4:])
	buf.endMessage()

	return buf.data[4:]
}

// protoBuilder builds protobuf wire format bytes for tests.
type protoBuilder struct {
	data []byte
}

func (b *protoBuilder) startMessage() {
	// Reserve space for length prefix
	b.data = append(b.data, 0, 0, 0, 0)
}

func (b *protoBuilder) endMessage() {
	// Update length prefix
	length := len(b.data) - 4
	var lenBuf [4]byte
	n := binary.PutVarint(lenBuf[:], int64(length))
	copy(b.data[:n], lenBuf[:n])
}

func (b *protoBuilder) writeTag(fieldNum, wireType int) {
	tag := (fieldNum << 3) | wireType
	b.writeVarint(int64(tag))
}

func (b *protoBuilder) writeVarint(v int64) {
	for v >= 0x80 {
		b.data = append(b.data, byte(v)|0x80)
		v >>= 7
	}
	b.data = append(b.data, byte(v))
}

func (b *protoBuilder) writeBytes(data []byte) {
	b.writeVarint(int64(len(data)))
	b.data = append(b.data, data...)
}

func (b *protoBuilder) writeFloat32(v float32) {
	var fb [4]byte
	binary.LittleEndian.PutUint32(fb[:], math.Float32bits(v))
	b.data = append(b.data, fb[:]...)
}
