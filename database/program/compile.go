// Package program compiles the '%' stack language embedded in string
// capabilities into a flat opcode array and executes it. Branches are
// resolved at compile time by matching %t/%e/%; at the proper nesting
// depth, so evaluation is a plain linear interpreter.
package program

import (
	"bytes"
	"fmt"

	"github.com/hnimtadd/terminfo/logger"
)

type opKind uint8

const (
	opEmit        opKind = iota // append literal bytes
	opFormat                    // pop one value, emit formatted
	opPushParam                 // push parameter arg (0 based)
	opPushConst                 // push integer constant arg
	opBin                       // pop two, apply binary operator arg
	opUnary                     // pop one, apply unary operator arg
	opIncr                      // add one to the first two parameters
	opStoreDyn                  // pop into dynamic slot arg
	opLoadDyn                   // push dynamic slot arg
	opStoreStatic               // pop into static slot arg
	opLoadStatic                // push static slot arg
	opStrlen                    // pop, push byte length
	opJumpFalse                 // pop, jump to arg when zero
	opJump                      // jump to arg
)

// binary operator codes carried in instr.arg
const (
	binAdd = iota
	binSub
	binMul
	binDiv
	binMod
	binAnd
	binOr
	binXor
	binEq
	binGt
	binLt
	binLand
	binLor
)

// unary operator codes carried in instr.arg
const (
	unNot = iota
	unComp
)

type instr struct {
	op     opKind
	arg    int
	format string // opFormat only; a printf spec like "%03d"
	lit    []byte // opEmit only
}

// Program is the executable form of one capability string. Compiling the
// same source always yields an equal Program.
type Program struct {
	code []instr

	// seedStack marks a termcap style template: it has conversions but
	// never pushes a parameter, so the run loop pre-seeds the stack with
	// all parameters in reverse order.
	seedStack bool

	// strParam marks parameter positions that flow into %s or %l, so the
	// caller supplied string survives instead of being coerced to 0.
	strParam [maxParams]bool
}

const maxParams = 9

type condFrame struct {
	jumpFalse int   // pending opJumpFalse to patch at the next branch point
	ends      []int // opJump indexes to patch to the end of the conditional
}

type compiler struct {
	src  []byte
	pos  int
	code []instr
	lit  bytes.Buffer
	cond []condFrame
	log  logger.Logger
}

// Compile translates the raw byte value of a string capability. A
// malformed directive is fatal; unknown literal escapes only warn.
func Compile(src []byte, log logger.Logger) (*Program, error) {
	if log == nil {
		log = logger.Nop
	}
	c := &compiler{src: src, log: log}
	if err := c.run(); err != nil {
		return nil, err
	}
	p := &Program{code: c.code}
	p.analyze()
	return p, nil
}

func (c *compiler) errf(format string, args ...any) error {
	return fmt.Errorf("capability string offset %d: %s",
		c.pos, fmt.Sprintf(format, args...))
}

func (c *compiler) flush() {
	if c.lit.Len() == 0 {
		return
	}
	lit := append([]byte(nil), c.lit.Bytes()...)
	c.code = append(c.code, instr{op: opEmit, lit: lit})
	c.lit.Reset()
}

func (c *compiler) emit(in instr) {
	c.flush()
	c.code = append(c.code, in)
}

func (c *compiler) run() error {
	for c.pos < len(c.src) {
		b := c.src[c.pos]
		switch b {
		case '%':
			if err := c.directive(); err != nil {
				return err
			}
		case '\\', '^':
			v, n, ok := decodeEscape(c.src, c.pos)
			if !ok {
				c.log.Warn("unsupported escape in capability value",
					"escape", string(c.src[c.pos:min(c.pos+n, len(c.src))]))
				c.pos += n
				continue
			}
			c.lit.WriteByte(v)
			c.pos += n
		default:
			c.lit.WriteByte(b)
			c.pos++
		}
	}
	c.flush()
	// a conditional still open at end of string closes implicitly
	for len(c.cond) > 0 {
		c.endif()
	}
	return nil
}

func (c *compiler) directive() error {
	if c.pos+1 >= len(c.src) {
		return c.errf("dangling %%")
	}
	c.pos++ // past '%'
	b := c.src[c.pos]
	switch b {
	case '%':
		c.lit.WriteByte('%')
		c.pos++
		return nil
	case 'c':
		c.emit(instr{op: opFormat, format: "%c"})
		c.pos++
		return nil
	case 'p':
		if c.pos+1 >= len(c.src) {
			return c.errf("%%p without a parameter index")
		}
		d := c.src[c.pos+1]
		if d < '1' || d > '9' {
			return c.errf("bad parameter index %q", d)
		}
		c.emit(instr{op: opPushParam, arg: int(d - '1')})
		c.pos += 2
		return nil
	case 'P', 'g':
		if c.pos+1 >= len(c.src) {
			return c.errf("%%%c without a variable name", b)
		}
		v := c.src[c.pos+1]
		var in instr
		switch {
		case v >= 'a' && v <= 'z' && b == 'P':
			in = instr{op: opStoreDyn, arg: int(v - 'a')}
		case v >= 'a' && v <= 'z':
			in = instr{op: opLoadDyn, arg: int(v - 'a')}
		case v >= 'A' && v <= 'Z' && b == 'P':
			in = instr{op: opStoreStatic, arg: int(v - 'A')}
		case v >= 'A' && v <= 'Z':
			in = instr{op: opLoadStatic, arg: int(v - 'A')}
		default:
			return c.errf("bad variable name %q", v)
		}
		c.emit(in)
		c.pos += 2
		return nil
	case 'l':
		c.emit(instr{op: opStrlen})
		c.pos++
		return nil
	case '\'':
		return c.charConstant()
	case '{':
		return c.intConstant()
	case '+', '-', '*', '/', 'm', '&', '|', '^', '=', '>', '<', 'A', 'O':
		c.emit(instr{op: opBin, arg: binOpFor(b)})
		c.pos++
		return nil
	case '!':
		c.emit(instr{op: opUnary, arg: unNot})
		c.pos++
		return nil
	case '~':
		c.emit(instr{op: opUnary, arg: unComp})
		c.pos++
		return nil
	case 'i':
		c.emit(instr{op: opIncr})
		c.pos++
		return nil
	case '?':
		c.flush()
		c.cond = append(c.cond, condFrame{jumpFalse: -1})
		c.pos++
		return nil
	case 't':
		if len(c.cond) == 0 {
			return c.errf("%%t outside a conditional")
		}
		c.emit(instr{op: opJumpFalse, arg: -1})
		c.cond[len(c.cond)-1].jumpFalse = len(c.code) - 1
		c.pos++
		return nil
	case 'e':
		if len(c.cond) == 0 {
			return c.errf("%%e outside a conditional")
		}
		c.emit(instr{op: opJump, arg: -1})
		f := &c.cond[len(c.cond)-1]
		f.ends = append(f.ends, len(c.code)-1)
		if f.jumpFalse >= 0 {
			c.code[f.jumpFalse].arg = len(c.code)
			f.jumpFalse = -1
		}
		c.pos++
		return nil
	case ';':
		c.flush()
		if len(c.cond) == 0 {
			c.log.Warn("stray %; outside a conditional")
		} else {
			c.endif()
		}
		c.pos++
		return nil
	}
	return c.format()
}

func (c *compiler) endif() {
	f := c.cond[len(c.cond)-1]
	c.cond = c.cond[:len(c.cond)-1]
	if f.jumpFalse >= 0 {
		c.code[f.jumpFalse].arg = len(c.code)
	}
	for _, j := range f.ends {
		c.code[j].arg = len(c.code)
	}
}

// charConstant handles %'x', with the same escape set as literals.
func (c *compiler) charConstant() error {
	c.pos++ // past the opening quote
	if c.pos >= len(c.src) {
		return c.errf("unterminated character constant")
	}
	var v byte
	if b := c.src[c.pos]; b == '\\' || b == '^' {
		dec, n, ok := decodeEscape(c.src, c.pos)
		if !ok {
			return c.errf("bad escape in character constant")
		}
		v = dec
		c.pos += n
	} else {
		v = b
		c.pos++
	}
	if c.pos >= len(c.src) || c.src[c.pos] != '\'' {
		return c.errf("unterminated character constant")
	}
	c.pos++
	c.emit(instr{op: opPushConst, arg: int(v)})
	return nil
}

// intConstant handles %{nn}.
func (c *compiler) intConstant() error {
	c.pos++ // past '{'
	start := c.pos
	n := 0
	for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
		n = n*10 + int(c.src[c.pos]-'0')
		c.pos++
	}
	if c.pos == start || c.pos >= len(c.src) || c.src[c.pos] != '}' {
		return c.errf("bad integer constant")
	}
	c.pos++
	c.emit(instr{op: opPushConst, arg: n})
	return nil
}

// format handles %[[:]flags][width[.precision]]{d,o,x,X,s}. The leading
// ':' only escapes the lexer so flags like '-' are unambiguous; it does
// not reach the printf spec.
func (c *compiler) format() error {
	start := c.pos
	var spec bytes.Buffer
	spec.WriteByte('%')
	if c.src[c.pos] == ':' {
		c.pos++
	}
	for c.pos < len(c.src) {
		switch c.src[c.pos] {
		case '-', '+', ' ', '#':
			spec.WriteByte(c.src[c.pos])
			c.pos++
			continue
		}
		break
	}
	for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
		spec.WriteByte(c.src[c.pos])
		c.pos++
	}
	if c.pos < len(c.src) && c.src[c.pos] == '.' {
		spec.WriteByte('.')
		c.pos++
		for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
			spec.WriteByte(c.src[c.pos])
			c.pos++
		}
	}
	if c.pos >= len(c.src) {
		c.pos = start
		return c.errf("unterminated %% conversion")
	}
	switch v := c.src[c.pos]; v {
	case 'd', 'o', 'x', 'X', 's':
		spec.WriteByte(v)
		c.pos++
		c.emit(instr{op: opFormat, format: spec.String()})
		return nil
	}
	c.pos = start
	return c.errf("unknown %% directive %q", c.src[start])
}

func binOpFor(b byte) int {
	switch b {
	case '+':
		return binAdd
	case '-':
		return binSub
	case '*':
		return binMul
	case '/':
		return binDiv
	case 'm':
		return binMod
	case '&':
		return binAnd
	case '|':
		return binOr
	case '^':
		return binXor
	case '=':
		return binEq
	case '>':
		return binGt
	case '<':
		return binLt
	case 'A':
		return binLand
	case 'O':
		return binLor
	}
	panic("not a binary operator")
}

// analyze runs the static scan: which parameter positions are used as
// strings, and whether the program is a termcap style template that
// needs the stack pre-seeded. The scan is linear and ignores jumps; it
// only needs to see which pushes can reach a %s or %l.
func (p *Program) analyze() {
	sawParam := false
	sawFormat := false
	var stack []int // parameter index, or -1 for anything else

	push := func(v int) { stack = append(stack, v) }
	pop := func() int {
		if len(stack) == 0 {
			return -1
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	for _, in := range p.code {
		switch in.op {
		case opPushParam:
			sawParam = true
			push(in.arg)
		case opPushConst, opLoadDyn, opLoadStatic:
			push(-1)
		case opFormat:
			sawFormat = true
			if v := pop(); v >= 0 && in.format[len(in.format)-1] == 's' {
				p.strParam[v] = true
			}
		case opStrlen:
			if v := pop(); v >= 0 {
				p.strParam[v] = true
			}
			push(-1)
		case opBin:
			pop()
			pop()
			push(-1)
		case opUnary:
			pop()
			push(-1)
		case opJumpFalse, opStoreDyn, opStoreStatic:
			pop()
		}
	}
	p.seedStack = !sawParam && sawFormat
}
