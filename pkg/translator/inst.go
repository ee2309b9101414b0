package translator

import (
	"strconv"
	"strings"
)

// InstKind identifies the shape of a Hack assembly line.
type InstKind int

const (
	AInst     InstKind = iota // @symbol or @decimal
	CInst                     // dest=comp;jump
	LabelInst                 // (name)
	Comment                   // // text
)

// Inst is one Hack assembly line kept as a typed record until it is
// rendered. Symbol holds the A-instruction operand, the label name or the
// comment text depending on Kind.
type Inst struct {
	Kind   InstKind
	Symbol string
	Dest   string
	Comp   string
	Jump   string
}

func at(symbol string) Inst {
	return Inst{Kind: AInst, Symbol: symbol}
}

func atInt(n int) Inst {
	return Inst{Kind: AInst, Symbol: strconv.Itoa(n)}
}

// assign builds dest=comp.
func assign(dest, comp string) Inst {
	return Inst{Kind: CInst, Dest: dest, Comp: comp}
}

// jump builds comp;jump.
func jump(comp, j string) Inst {
	return Inst{Kind: CInst, Comp: comp, Jump: j}
}

func label(name string) Inst {
	return Inst{Kind: LabelInst, Symbol: name}
}

func comment(text string) Inst {
	return Inst{Kind: Comment, Symbol: text}
}

// String renders the instruction in Hack assembly syntax.
func (i Inst) String() string {
	switch i.Kind {
	case AInst:
		return "@" + i.Symbol
	case LabelInst:
		return "(" + i.Symbol + ")"
	case Comment:
		return "// " + i.Symbol
	}

	var sb strings.Builder
	if i.Dest != "" {
		sb.WriteString(i.Dest)
		sb.WriteByte('=')
	}
	sb.WriteString(i.Comp)
	if i.Jump != "" {
		sb.WriteByte(';')
		sb.WriteString(i.Jump)
	}
	return sb.String()
}

// seq is an ordered run of instructions.
type seq []Inst

func (s seq) then(more ...Inst) seq {
	out := make(seq, 0, len(s)+len(more))
	out = append(out, s...)
	return append(out, more...)
}

func (s seq) String() string {
	var sb strings.Builder
	for _, in := range s {
		sb.WriteString(in.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// address is a code fragment that leaves a RAM address in D without
// reading or writing SP. Only popTarget produces one, and only popInto
// consumes one, so the address is always computed before the stack moves.
type address struct {
	load seq
}

// value is a code fragment that leaves the value to push in D.
type value struct {
	load seq
}
