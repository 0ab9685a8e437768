package caffe2

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// ParseFile decodes a NetDef from a file, choosing the text format for
// .pbtxt paths and the binary wire format otherwise.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for model loading
func ParseFile(path string) (*NetDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if strings.HasSuffix(path, ".pbtxt") {
		return ParseText(data)
	}
	return Parse(data)
}

// Parse decodes a NetDef from protobuf wire format bytes.
func Parse(data []byte) (*NetDef, error) {
	p := &parser{data: data, pos: 0}
	net := &NetDef{}
	if err := p.readNetDef(net); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseData, err)
	}
	return net, nil
}

// parser implements a minimal protobuf wire format decoder.
type parser struct {
	data []byte
	pos  int
}

// Protobuf wire types.
const (
	wireVarint = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	wire64Bit  = 1 // fixed64, sfixed64, double
	wireBytes  = 2 // string, bytes, embedded messages, packed repeated fields
	wire32Bit  = 5 // fixed32, sfixed32, float
)

// readNetDef reads a NetDef message.
func (p *parser) readNetDef(m *NetDef) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Name = string(data)
			continue
		case 2: // op
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			sub := &parser{data: data, pos: 0}
			op := &OperatorDef{}
			if err2 := sub.readOperatorDef(op); err2 != nil {
				return err2
			}
			m.Ops = append(m.Ops, op)
			continue
		case 7: // external_input
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.ExternalInput = append(m.ExternalInput, string(data))
			continue
		case 8: // external_output
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.ExternalOutput = append(m.ExternalOutput, string(data))
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readOperatorDef reads an OperatorDef message.
func (p *parser) readOperatorDef(m *OperatorDef) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // input
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Inputs = append(m.Inputs, string(data))
			continue
		case 2: // output
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Outputs = append(m.Outputs, string(data))
			continue
		case 3: // name
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Name = string(data)
			continue
		case 4: // type
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Type = string(data)
			continue
		case 5: // arg
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			sub := &parser{data: data, pos: 0}
			arg := &Argument{}
			if err2 := sub.readArgument(arg); err2 != nil {
				return err2
			}
			m.Args = append(m.Args, arg)
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readArgument reads an Argument message. Repeated scalar fields accept
// both the packed and the unpacked encoding; proto2 serializers emit the
// unpacked form by default.
//
//nolint:gocognit,gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func (p *parser) readArgument(m *Argument) error {
	for p.pos < len(p.data) {
		fieldNum, wireType, err := p.readTag()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		switch fieldNum {
		case 1: // name
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Name = string(data)
			continue
		case 2: // f (float)
			if m.F, err = p.readFloat32(); err != nil {
				return err
			}
			m.HasF = true
			continue
		case 3: // i (int)
			if m.I, err = p.readVarint(); err != nil {
				return err
			}
			m.HasI = true
			continue
		case 4: // s (bytes)
			if m.S, err = p.readBytes(); err != nil {
				return err
			}
			m.HasS = true
			continue
		case 5: // floats (repeated float)
			if wireType == wireBytes {
				// packed repeated
				data, err2 := p.readBytes()
				if err2 != nil {
					return err2
				}
				for i := 0; i+4 <= len(data); i += 4 {
					bits := binary.LittleEndian.Uint32(data[i:])
					m.Floats = append(m.Floats, math.Float32frombits(bits))
				}
				continue
			}
			v, err2 := p.readFloat32()
			if err2 != nil {
				return err2
			}
			m.Floats = append(m.Floats, v)
			continue
		case 6: // ints (repeated int64)
			if wireType == wireBytes {
				// packed repeated
				data, err2 := p.readBytes()
				if err2 != nil {
					return err2
				}
				sub := &parser{data: data, pos: 0}
				for sub.pos < len(sub.data) {
					v, err3 := sub.readVarint()
					if err3 != nil {
						break
					}
					m.Ints = append(m.Ints, v)
				}
				continue
			}
			v, err2 := p.readVarint()
			if err2 != nil {
				return err2
			}
			m.Ints = append(m.Ints, v)
			continue
		case 7: // strings
			data, err2 := p.readBytes()
			if err2 != nil {
				return err2
			}
			m.Strings = append(m.Strings, data)
			continue
		default:
			err = p.skipField(wireType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// readTag reads a protobuf field tag.
func (p *parser) readTag() (fieldNum, wireType int, err error) {
	if p.pos >= len(p.data) {
		return 0, 0, io.EOF
	}
	tag, err := p.readVarint()
	if err != nil {
		return 0, 0, err
	}
	fieldNum = int(tag >> 3)
	wireType = int(tag & 0x7)
	return fieldNum, wireType, nil
}

// readVarint reads a varint-encoded int64.
func (p *parser) readVarint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if p.pos >= len(p.data) {
			return 0, io.EOF
		}
		b := p.data[p.pos]
		p.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
	return int64(result), nil //nolint:gosec // G115: Protobuf varint fits in int64.
}

// readBytes reads a length-delimited byte slice.
func (p *parser) readBytes() ([]byte, error) {
	length, err := p.readVarint()
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.New("negative length")
	}
	end := p.pos + int(length)
	if end > len(p.data) {
		return nil, io.ErrUnexpectedEOF
	}
	result := p.data[p.pos:end]
	p.pos = end
	return result, nil
}

// readFloat32 reads a 32-bit float.
func (p *parser) readFloat32() (float32, error) {
	if p.pos+4 > len(p.data) {
		return 0, io.ErrUnexpectedEOF
	}
	bits := binary.LittleEndian.Uint32(p.data[p.pos:])
	p.pos += 4
	return math.Float32frombits(bits), nil
}

// skipField skips a field based on wire type.
func (p *parser) skipField(wireType int) error {
	switch wireType {
	case wireVarint:
		_, err := p.readVarint()
		return err
	case wire64Bit:
		if p.pos+8 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 8
		return nil
	case wireBytes:
		_, err := p.readBytes()
		return err
	case wire32Bit:
		if p.pos+4 > len(p.data) {
			return io.ErrUnexpectedEOF
		}
		p.pos += 4
		return nil
	default:
		return fmt.Errorf("unknown wire type: %d", wireType)
	}
}
