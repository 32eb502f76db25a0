package program

import (
	"fmt"
	"strconv"

	"github.com/hnimtadd/terminfo/internal/assert"
	"github.com/hnimtadd/terminfo/logger"
)

// Run executes the program against the given parameters and variable
// banks and returns the produced bytes. The static bank persists across
// runs on the same terminal; the dynamic bank only matters across %P/%g
// within a single run. Parameters are copied, so the caller's slice is
// never mutated even when the program contains %i.
func (p *Program) Run(params []Value, dyn, stat *Bank, log logger.Logger) ([]byte, error) {
	if log == nil {
		log = logger.Nop
	}

	// normalize: positions the static scan saw flowing into %s/%l keep
	// their string value, everything else is numeric
	args := make([]Value, len(params))
	for i, v := range params {
		if v.Kind == StrValue && (i >= maxParams || !p.strParam[i]) {
			args[i] = IntVal(v.AsInt())
			continue
		}
		args[i] = v
	}

	var stack []Value
	push := func(v Value) { stack = append(stack, v) }
	pop := func() Value {
		if len(stack) == 0 {
			log.Warn("capability string pops an empty stack")
			return IntVal(0)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}

	if p.seedStack {
		// termcap style template: conversions but no %p directives, so
		// successive naked pops consume the parameters left to right
		for i := len(args) - 1; i >= 0; i-- {
			push(args[i])
		}
	}

	var out []byte
	for pc := 0; pc < len(p.code); pc++ {
		in := p.code[pc]
		switch in.op {
		case opEmit:
			out = append(out, in.lit...)
		case opFormat:
			out = appendFormat(out, in.format, pop())
		case opPushParam:
			if in.arg < len(args) {
				push(args[in.arg])
			} else {
				push(IntVal(0))
			}
		case opPushConst:
			push(IntVal(in.arg))
		case opBin:
			right := pop()
			left := pop()
			push(IntVal(binApply(in.arg, left.AsInt(), right.AsInt(), log)))
		case opUnary:
			v := pop().AsInt()
			switch in.arg {
			case unNot:
				push(IntVal(boolInt(v == 0)))
			case unComp:
				push(IntVal(^v))
			}
		case opIncr:
			// ANSI terminals address from 1; mutate in place so a second
			// %i in the same run is observable
			for i := 0; i < 2 && i < len(args); i++ {
				if args[i].Kind == IntValue {
					args[i].Int++
				}
			}
		case opStoreDyn:
			dyn[in.arg] = pop()
		case opLoadDyn:
			push(dyn[in.arg])
		case opStoreStatic:
			stat[in.arg] = pop()
		case opLoadStatic:
			push(stat[in.arg])
		case opStrlen:
			v := pop()
			if v.Kind == StrValue {
				push(IntVal(len(v.Str)))
			} else {
				push(IntVal(0))
			}
		case opJumpFalse:
			assert.Assert(in.arg >= 0, "unresolved branch target")
			if pop().AsInt() == 0 {
				pc = in.arg - 1
			}
		case opJump:
			assert.Assert(in.arg >= 0, "unresolved branch target")
			pc = in.arg - 1
		}
	}
	return out, nil
}

func binApply(op, left, right int, log logger.Logger) int {
	switch op {
	case binAdd:
		return left + right
	case binSub:
		return left - right
	case binMul:
		return left * right
	case binDiv:
		if right == 0 {
			log.Warn("capability string divides by zero")
			return 0
		}
		return left / right
	case binMod:
		if right == 0 {
			log.Warn("capability string divides by zero")
			return 0
		}
		return left % right
	case binAnd:
		return left & right
	case binOr:
		return left | right
	case binXor:
		return left ^ right
	case binEq:
		return boolInt(left == right)
	case binGt:
		return boolInt(left > right)
	case binLt:
		return boolInt(left < right)
	case binLand:
		return boolInt(left != 0 && right != 0)
	case binLor:
		return boolInt(left != 0 || right != 0)
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// appendFormat applies one printf style conversion to a popped value.
// %c emits the value as a single byte; %s of a numeric value formats it
// as decimal; numeric verbs coerce a string value to 0.
func appendFormat(out []byte, spec string, v Value) []byte {
	verb := spec[len(spec)-1]
	switch verb {
	case 'c':
		return append(out, byte(v.AsInt()))
	case 's':
		var s string
		if v.Kind == StrValue {
			s = string(v.Str)
		} else {
			s = strconv.Itoa(v.Int)
		}
		if spec == "%s" {
			return append(out, s...)
		}
		return append(out, fmt.Sprintf(spec, s)...)
	default:
		return append(out, fmt.Sprintf(spec, v.AsInt())...)
	}
}
