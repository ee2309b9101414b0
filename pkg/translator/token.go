package translator

import "fmt"

// CommandKind identifies the category of a VM command.
type CommandKind int

const (
	Arithmetic CommandKind = iota // add, sub, neg, eq, gt, lt, and, or, not
	Push                          // push segment index
	Pop                           // pop segment index
	Label                         // label name
)

var commandKindNames = [...]string{
	Arithmetic: "arithmetic",
	Push:       "push",
	Pop:        "pop",
	Label:      "label",
}

func (k CommandKind) String() string {
	if k >= 0 && int(k) < len(commandKindNames) {
		return commandKindNames[k]
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Operator is one of the nine arithmetic/logical VM operators.
type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpNeg
	OpEq
	OpGt
	OpLt
	OpAnd
	OpOr
	OpNot
)

var operatorNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpNeg: "neg",
	OpEq:  "eq",
	OpGt:  "gt",
	OpLt:  "lt",
	OpAnd: "and",
	OpOr:  "or",
	OpNot: "not",
}

// operators maps VM source keywords to their Operator.
var operators = map[string]Operator{
	"add": OpAdd,
	"sub": OpSub,
	"neg": OpNeg,
	"eq":  OpEq,
	"gt":  OpGt,
	"lt":  OpLt,
	"and": OpAnd,
	"or":  OpOr,
	"not": OpNot,
}

func (o Operator) String() string {
	if o >= 0 && int(o) < len(operatorNames) {
		return operatorNames[o]
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// IsComparison reports whether o produces a boolean through a conditional jump.
func (o Operator) IsComparison() bool {
	return o == OpEq || o == OpGt || o == OpLt
}

// LookupOperator returns the operator for a VM keyword.
func LookupOperator(word string) (Operator, bool) {
	op, ok := operators[word]
	return op, ok
}

// Segment is one of the eight VM memory segments.
type Segment int

const (
	SegLocal Segment = iota
	SegArgument
	SegThis
	SegThat
	SegConstant
	SegStatic
	SegTemp
	SegPointer
)

var segmentNames = [...]string{
	SegLocal:    "local",
	SegArgument: "argument",
	SegThis:     "this",
	SegThat:     "that",
	SegConstant: "constant",
	SegStatic:   "static",
	SegTemp:     "temp",
	SegPointer:  "pointer",
}

var segments = map[string]Segment{
	"local":    SegLocal,
	"argument": SegArgument,
	"this":     SegThis,
	"that":     SegThat,
	"constant": SegConstant,
	"static":   SegStatic,
	"temp":     SegTemp,
	"pointer":  SegPointer,
}

func (s Segment) String() string {
	if s >= 0 && int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return fmt.Sprintf("Segment(%d)", int(s))
}

// LookupSegment returns the segment for a VM keyword.
func LookupSegment(word string) (Segment, bool) {
	seg, ok := segments[word]
	return seg, ok
}

// Segment limits shared by the parser and the code generator.
const (
	TempSize    = 8     // temp maps onto R5..R12
	MaxConstant = 32767 // largest value an A-instruction can load
)

// Command is a single parsed VM command. Only the fields relevant to Kind
// are meaningful.
type Command struct {
	Kind     CommandKind
	Operator Operator
	Segment  Segment
	Index    int
	Name     string
	Line     int // 1-based source line, 0 when synthesized
}

// String renders the command back in VM syntax.
func (c Command) String() string {
	switch c.Kind {
	case Arithmetic:
		return c.Operator.String()
	case Push, Pop:
		return fmt.Sprintf("%s %s %d", c.Kind, c.Segment, c.Index)
	case Label:
		return "label " + c.Name
	}
	return fmt.Sprintf("Command{Kind: %s}", c.Kind)
}

// NewArithmetic, NewPush, NewPop and NewLabel build commands without a
// source line, mostly for tests and programmatic callers.
func NewArithmetic(op Operator) Command {
	return Command{Kind: Arithmetic, Operator: op}
}

func NewPush(seg Segment, index int) Command {
	return Command{Kind: Push, Segment: seg, Index: index}
}

func NewPop(seg Segment, index int) Command {
	return Command{Kind: Pop, Segment: seg, Index: index}
}

func NewLabel(name string) Command {
	return Command{Kind: Label, Name: name}
}
