package translator

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Boolean encoding of the Hack platform.
const (
	False = 0
	True  = -1
)

// binaryComp holds the in-place combine step for add, sub, and, or.
var binaryComp = map[Operator]string{
	OpAdd: "D+M",
	OpSub: "M-D",
	OpAnd: "D&M",
	OpOr:  "D|M",
}

// unaryComp holds the in-place rewrite for neg and not.
var unaryComp = map[Operator]string{
	OpNeg: "-M",
	OpNot: "!M",
}

// comparisons holds the jump mnemonic and label prefix per comparison.
var comparisons = map[Operator]struct {
	jump   string
	prefix string
}{
	OpEq: {"JEQ", "EQ"},
	OpGt: {"JGT", "GT"},
	OpLt: {"JLT", "LT"},
}

// CodeGenerator turns VM commands for one translation unit into Hack
// assembly. It is not safe for concurrent use.
type CodeGenerator struct {
	out      *bufio.Writer
	sink     io.Writer
	unit     string
	labels   *LabelCounter
	comments bool
	done     bool
}

// Option configures a CodeGenerator.
type Option func(*CodeGenerator)

// WithComments makes the generator precede every command with a
// "// <command>" line.
func WithComments(on bool) Option {
	return func(g *CodeGenerator) {
		g.comments = on
	}
}

// WithLabelCounter shares a counter between generators that write into the
// same output stream.
func WithLabelCounter(c *LabelCounter) Option {
	return func(g *CodeGenerator) {
		if c != nil {
			g.labels = c
		}
	}
}

// NewCodeGenerator returns a generator that writes to w. unit namespaces
// the static segment. If w is an io.Closer it is closed by Finalize.
func NewCodeGenerator(w io.Writer, unit string, opts ...Option) *CodeGenerator {
	g := &CodeGenerator{
		out:    bufio.NewWriter(w),
		sink:   w,
		unit:   unit,
		labels: NewLabelCounter(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Unit returns the translation unit name.
func (g *CodeGenerator) Unit() string {
	return g.unit
}

// Labels returns the counter used for comparison labels.
func (g *CodeGenerator) Labels() *LabelCounter {
	return g.labels
}

// WriteCommand dispatches cmd to the matching Write method.
func (g *CodeGenerator) WriteCommand(cmd Command) error {
	if g.comments {
		if err := g.emit(seq{comment(cmd.String())}); err != nil {
			return err
		}
	}

	switch cmd.Kind {
	case Arithmetic:
		return g.WriteArithmetic(cmd.Operator)
	case Push:
		return g.WritePush(cmd.Segment, cmd.Index)
	case Pop:
		return g.WritePop(cmd.Segment, cmd.Index)
	case Label:
		return g.WriteLabel(cmd.Name)
	}
	panic(fmt.Sprintf("translator: unknown command kind %d", int(cmd.Kind)))
}

// WriteArithmetic emits the template for op. Comparisons consume one value
// of the label counter.
func (g *CodeGenerator) WriteArithmetic(op Operator) error {
	if comp, ok := binaryComp[op]; ok {
		return g.emit(seq{
			at(symSP),
			assign("AM", "M-1"),
			assign("D", "M"),
			assign("A", "A-1"),
			assign("M", comp),
		})
	}

	if comp, ok := unaryComp[op]; ok {
		return g.emit(seq{
			at(symSP),
			assign("A", "M-1"),
			assign("M", comp),
		})
	}

	if cmp, ok := comparisons[op]; ok {
		n := g.labels.Next()
		onTrue := fmt.Sprintf("%s.true.%d", cmp.prefix, n)
		after := fmt.Sprintf("%s.after.%d", cmp.prefix, n)
		return g.emit(seq{
			at(symSP),
			assign("AM", "M-1"),
			assign("D", "M"),
			assign("A", "A-1"),
			assign("D", "M-D"),
			at(onTrue),
			jump("D", cmp.jump),
			at(symSP),
			assign("A", "M-1"),
			assign("M", "0"),
			at(after),
			jump("0", "JMP"),
			label(onTrue),
			at(symSP),
			assign("A", "M-1"),
			assign("M", "-1"),
			label(after),
		})
	}

	panic(fmt.Sprintf("translator: unknown operator %d", int(op)))
}

// WritePush emits code that pushes segment[index] onto the stack.
func (g *CodeGenerator) WritePush(seg Segment, index int) error {
	src := g.pushSource(seg, index)
	return g.emit(src.load.then(
		at(symSP),
		assign("A", "M"),
		assign("M", "D"),
		at(symSP),
		assign("M", "M+1"),
	))
}

// WritePop emits code that pops the stack top into segment[index].
func (g *CodeGenerator) WritePop(seg Segment, index int) error {
	return g.emit(popInto(g.popTarget(seg, index)))
}

// WriteLabel emits (name). Uniqueness is the caller's concern.
func (g *CodeGenerator) WriteLabel(name string) error {
	return g.emit(seq{label(name)})
}

// Finalize flushes buffered output and closes the sink when it is an
// io.Closer. Calls after the first return nil.
func (g *CodeGenerator) Finalize() error {
	if g.done {
		return nil
	}
	g.done = true

	err := g.out.Flush()
	if c, ok := g.sink.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return errors.Wrapf(err, "finalize %s", g.unit)
}

func (g *CodeGenerator) emit(s seq) error {
	for _, in := range s {
		if _, err := g.out.WriteString(in.String()); err != nil {
			return errors.Wrapf(err, "write %s", g.unit)
		}
		if err := g.out.WriteByte('\n'); err != nil {
			return errors.Wrapf(err, "write %s", g.unit)
		}
	}
	return nil
}

func (g *CodeGenerator) staticSymbol(index int) string {
	return fmt.Sprintf("%s.%d", g.unit, index)
}

// pushSource returns the fragment that loads segment[index] into D.
func (g *CodeGenerator) pushSource(seg Segment, index int) value {
	checkIndex(seg, index)

	switch seg {
	case SegLocal, SegArgument, SegThis, SegThat:
		return value{seq{
			at(baseRegisters[seg]),
			assign("D", "M"),
			atInt(index),
			assign("A", "D+A"),
			assign("D", "M"),
		}}
	case SegConstant:
		return value{seq{atInt(index), assign("D", "A")}}
	case SegStatic:
		return value{seq{at(g.staticSymbol(index)), assign("D", "M")}}
	case SegTemp:
		return value{seq{
			at(symTemp),
			assign("D", "A"),
			atInt(index),
			assign("A", "D+A"),
			assign("D", "M"),
		}}
	case SegPointer:
		return value{seq{at(pointerRegisters[index]), assign("D", "M")}}
	}
	panic(fmt.Sprintf("translator: unknown segment %d", int(seg)))
}

// popTarget returns the fragment that computes the address of
// segment[index] into D.
func (g *CodeGenerator) popTarget(seg Segment, index int) address {
	checkIndex(seg, index)

	switch seg {
	case SegLocal, SegArgument, SegThis, SegThat:
		return address{seq{
			at(baseRegisters[seg]),
			assign("D", "M"),
			atInt(index),
			assign("D", "D+A"),
		}}
	case SegConstant:
		panic("translator: pop constant has no destination")
	case SegStatic:
		return address{seq{at(g.staticSymbol(index)), assign("D", "A")}}
	case SegTemp:
		return address{seq{
			at(symTemp),
			assign("D", "A"),
			atInt(index),
			assign("D", "D+A"),
		}}
	case SegPointer:
		return address{seq{at(pointerRegisters[index]), assign("D", "A")}}
	}
	panic(fmt.Sprintf("translator: unknown segment %d", int(seg)))
}

// popInto parks the destination in R13, pops into D and stores through R13.
func popInto(dst address) seq {
	return dst.load.then(
		at(symScratch),
		assign("M", "D"),
		at(symSP),
		assign("AM", "M-1"),
		assign("D", "M"),
		at(symScratch),
		assign("A", "M"),
		assign("M", "D"),
	)
}

// checkIndex panics on indexes the parser should never have let through.
func checkIndex(seg Segment, index int) {
	if index < 0 {
		panic(fmt.Sprintf("translator: negative index %d for %s", index, seg))
	}
	switch seg {
	case SegTemp:
		if index >= TempSize {
			panic(fmt.Sprintf("translator: temp index %d out of range 0..%d", index, TempSize-1))
		}
	case SegPointer:
		if index >= len(pointerRegisters) {
			panic(fmt.Sprintf("translator: pointer index %d must be 0 or 1", index))
		}
	case SegConstant:
		if index > MaxConstant {
			panic(fmt.Sprintf("translator: constant %d exceeds %d", index, MaxConstant))
		}
	}
}
