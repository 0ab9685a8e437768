package caffe2

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseText decodes a NetDef from protobuf text format. It understands the
// subset Caffe2 tooling emits for pbtxt documents: scalar fields, repeated
// fields by repetition, nested messages in braces and # comments. Unknown
// fields are skipped like the wire decoder skips unknown field numbers.
func ParseText(data []byte) (*NetDef, error) {
	p := &textParser{data: data, line: 1}
	net := &NetDef{}
	if err := p.readNetDef(net); err != nil {
		return nil, err
	}
	return net, nil
}

type textParser struct {
	data []byte
	pos  int
	line int
}

func (p *textParser) errf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrParseData, p.line, fmt.Sprintf(format, args...))
}

func (p *textParser) eof() bool {
	return p.pos >= len(p.data)
}

func (p *textParser) peek() byte {
	return p.data[p.pos]
}

// skipSpace advances over whitespace and # comments, tracking line numbers.
func (p *textParser) skipSpace() {
	for !p.eof() {
		switch c := p.peek(); c {
		case ' ', '\t', '\r':
			p.pos++
		case '\n':
			p.line++
			p.pos++
		case '#':
			for !p.eof() && p.peek() != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *textParser) readIdent() (string, error) {
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		if p.eof() {
			return "", p.errf("unexpected end of input")
		}
		return "", p.errf("unexpected character %q", p.peek())
	}
	return string(p.data[start:p.pos]), nil
}

func (p *textParser) expect(c byte) error {
	p.skipSpace()
	if p.eof() || p.peek() != c {
		if p.eof() {
			return p.errf("expected %q, got end of input", c)
		}
		return p.errf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

// readString reads a quoted string, decoding the text format escapes.
//
//nolint:gocognit,gocyclo,cyclop // Escape handling requires character-by-character switch logic
func (p *textParser) readString() (string, error) {
	p.skipSpace()
	if p.eof() || (p.peek() != '"' && p.peek() != '\'') {
		return "", p.errf("expected quoted string")
	}
	quote := p.peek()
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errf("unterminated string")
		}
		c := p.peek()
		p.pos++
		if c == quote {
			return b.String(), nil
		}
		if c == '\n' {
			return "", p.errf("newline in string")
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if p.eof() {
			return "", p.errf("unterminated escape")
		}
		e := p.peek()
		p.pos++
		switch e {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\', '\'', '"', '?':
			b.WriteByte(e)
		case 'x':
			v := 0
			n := 0
			for n < 2 && !p.eof() && isHex(p.peek()) {
				v = v<<4 | hexVal(p.peek())
				p.pos++
				n++
			}
			if n == 0 {
				return "", p.errf("bad hex escape")
			}
			b.WriteByte(byte(v))
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(e - '0')
			for n := 1; n < 3 && !p.eof() && p.peek() >= '0' && p.peek() <= '7'; n++ {
				v = v<<3 | int(p.peek()-'0')
				p.pos++
			}
			b.WriteByte(byte(v))
		default:
			return "", p.errf("unknown escape \\%c", e)
		}
	}
}

// readScalar reads an unquoted token such as a number or enum name.
func (p *textParser) readScalar() (string, error) {
	p.skipSpace()
	start := p.pos
	for !p.eof() {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '#' || c == '{' || c == '}' || c == '"' || c == '\'' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errf("expected value")
	}
	return string(p.data[start:p.pos]), nil
}

func (p *textParser) readInt() (int64, error) {
	tok, err := p.readScalar()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, p.errf("bad integer %q", tok)
	}
	return v, nil
}

func (p *textParser) readFloat() (float32, error) {
	tok, err := p.readScalar()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, p.errf("bad float %q", tok)
	}
	return float32(v), nil
}

// openBlock consumes the opening brace of a message field, allowing the
// optional colon the text format permits before it.
func (p *textParser) openBlock() error {
	p.skipSpace()
	if !p.eof() && p.peek() == ':' {
		p.pos++
	}
	return p.expect('{')
}

// skipValue skips a field this decoder does not know, scalar or message.
func (p *textParser) skipValue() error {
	p.skipSpace()
	if !p.eof() && p.peek() == ':' {
		p.pos++
		p.skipSpace()
	}
	if p.eof() {
		return p.errf("expected value, got end of input")
	}
	switch p.peek() {
	case '{':
		return p.skipBlock()
	case '"', '\'':
		_, err := p.readString()
		return err
	default:
		_, err := p.readScalar()
		return err
	}
}

// skipBlock skips a braced message, tracking nesting and strings.
func (p *textParser) skipBlock() error {
	if err := p.expect('{'); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		p.skipSpace()
		if p.eof() {
			return p.errf("unterminated message")
		}
		switch p.peek() {
		case '{':
			depth++
			p.pos++
		case '}':
			depth--
			p.pos++
		case '"', '\'':
			if _, err := p.readString(); err != nil {
				return err
			}
		default:
			p.pos++
		}
	}
	return nil
}

func (p *textParser) readNetDef(m *NetDef) error {
	for {
		p.skipSpace()
		if p.eof() {
			return nil
		}
		field, err := p.readIdent()
		if err != nil {
			return err
		}
		switch field {
		case "name":
			if err := p.expect(':'); err != nil {
				return err
			}
			if m.Name, err = p.readString(); err != nil {
				return err
			}
		case "op":
			if err := p.openBlock(); err != nil {
				return err
			}
			op := &OperatorDef{}
			if err := p.readOperatorDef(op); err != nil {
				return err
			}
			m.Ops = append(m.Ops, op)
		case "external_input":
			if err := p.expect(':'); err != nil {
				return err
			}
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.ExternalInput = append(m.ExternalInput, s)
		case "external_output":
			if err := p.expect(':'); err != nil {
				return err
			}
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.ExternalOutput = append(m.ExternalOutput, s)
		default:
			if err := p.skipValue(); err != nil {
				return err
			}
		}
	}
}

func (p *textParser) readOperatorDef(m *OperatorDef) error {
	for {
		p.skipSpace()
		if p.eof() {
			return p.errf("unterminated op message")
		}
		if p.peek() == '}' {
			p.pos++
			return nil
		}
		field, err := p.readIdent()
		if err != nil {
			return err
		}
		switch field {
		case "input", "output", "name", "type":
			if err := p.expect(':'); err != nil {
				return err
			}
			s, err := p.readString()
			if err != nil {
				return err
			}
			switch field {
			case "input":
				m.Inputs = append(m.Inputs, s)
			case "output":
				m.Outputs = append(m.Outputs, s)
			case "name":
				m.Name = s
			case "type":
				m.Type = s
			}
		case "arg":
			if err := p.openBlock(); err != nil {
				return err
			}
			arg := &Argument{}
			if err := p.readArgument(arg); err != nil {
				return err
			}
			m.Args = append(m.Args, arg)
		default:
			if err := p.skipValue(); err != nil {
				return err
			}
		}
	}
}

//nolint:gocognit,gocyclo,cyclop // Text format parsing requires field-by-field switch logic
func (p *textParser) readArgument(m *Argument) error {
	for {
		p.skipSpace()
		if p.eof() {
			return p.errf("unterminated arg message")
		}
		if p.peek() == '}' {
			p.pos++
			return nil
		}
		field, err := p.readIdent()
		if err != nil {
			return err
		}
		switch field {
		case "name", "f", "i", "s", "floats", "ints", "strings":
			if err := p.expect(':'); err != nil {
				return err
			}
		default:
			if err := p.skipValue(); err != nil {
				return err
			}
			continue
		}
		switch field {
		case "name":
			if m.Name, err = p.readString(); err != nil {
				return err
			}
		case "f":
			if m.F, err = p.readFloat(); err != nil {
				return err
			}
			m.HasF = true
		case "i":
			if m.I, err = p.readInt(); err != nil {
				return err
			}
			m.HasI = true
		case "s":
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.S = []byte(s)
			m.HasS = true
		case "floats":
			v, err := p.readFloat()
			if err != nil {
				return err
			}
			m.Floats = append(m.Floats, v)
		case "ints":
			v, err := p.readInt()
			if err != nil {
				return err
			}
			m.Ints = append(m.Ints, v)
		case "strings":
			s, err := p.readString()
			if err != nil {
				return err
			}
			m.Strings = append(m.Strings, []byte(s))
		}
	}
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}
