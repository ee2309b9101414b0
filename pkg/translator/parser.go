package translator

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"hackvm/pkg/asm"
)

// CommandSource yields parsed commands one at a time and returns io.EOF
// once the input is exhausted.
type CommandSource interface {
	Next() (Command, error)
}

// unsupported lists VM commands outside the translator's command set.
var unsupported = map[string]bool{
	"goto":     true,
	"if-goto":  true,
	"function": true,
	"call":     true,
	"return":   true,
}

// Parser turns lexed VM lines into validated commands.
//
// Grammar:
//
//	command    = arithmetic | push | pop | label
//	arithmetic = "add" | "sub" | "neg" | "eq" | "gt" | "lt" | "and" | "or" | "not"
//	push       = "push" segment INDEX
//	pop        = "pop" segment INDEX        (segment != "constant")
//	label      = "label" SYMBOL
type Parser struct {
	lines []Line
	pos   int
}

// NewParser lexes src and returns a parser over its lines.
func NewParser(src string) *Parser {
	return &Parser{lines: Lex(src)}
}

// Parse returns every command in src, stopping at the first error.
func Parse(src string) ([]Command, error) {
	p := NewParser(src)
	var cmds []Command
	for {
		cmd, err := p.Next()
		if err == io.EOF {
			return cmds, nil
		}
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
}

// Next returns the next command, or io.EOF after the last one.
func (p *Parser) Next() (Command, error) {
	if p.pos >= len(p.lines) {
		return Command{}, io.EOF
	}
	line := p.lines[p.pos]
	p.pos++
	return p.parseLine(line)
}

// fmtError wraps a message with the line number and source text.
func (p *Parser) fmtError(line Line, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return errors.Errorf("line %d: %s\n  |> %s", line.No, msg, line.Text)
}

func (p *Parser) parseLine(line Line) (Command, error) {
	word := line.Fields[0]
	args := line.Fields[1:]

	if op, ok := LookupOperator(word); ok {
		if len(args) != 0 {
			return Command{}, p.fmtError(line, "%s takes no arguments", word)
		}
		return Command{Kind: Arithmetic, Operator: op, Line: line.No}, nil
	}

	switch word {
	case "push", "pop":
		return p.parseMemoryAccess(line, word, args)
	case "label":
		if len(args) != 1 {
			return Command{}, p.fmtError(line, "label expects exactly one name")
		}
		if !asm.IsSymbol(args[0]) {
			return Command{}, p.fmtError(line, "invalid label name %q", args[0])
		}
		return Command{Kind: Label, Name: args[0], Line: line.No}, nil
	}

	if unsupported[word] {
		return Command{}, p.fmtError(line, "unsupported command %q", word)
	}
	return Command{}, p.fmtError(line, "unknown command %q", word)
}

func (p *Parser) parseMemoryAccess(line Line, word string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, p.fmtError(line, "%s expects a segment and an index", word)
	}

	seg, ok := LookupSegment(args[0])
	if !ok {
		return Command{}, p.fmtError(line, "unknown segment %q", args[0])
	}

	index, err := strconv.Atoi(args[1])
	if err != nil || index < 0 {
		return Command{}, p.fmtError(line, "invalid index %q", args[1])
	}

	kind := Push
	if word == "pop" {
		kind = Pop
	}

	switch seg {
	case SegConstant:
		if kind == Pop {
			return Command{}, p.fmtError(line, "cannot pop to the constant segment")
		}
		if index > MaxConstant {
			return Command{}, p.fmtError(line, "constant %d exceeds %d", index, MaxConstant)
		}
	case SegTemp:
		if index >= TempSize {
			return Command{}, p.fmtError(line, "temp index %d out of range 0..%d", index, TempSize-1)
		}
	case SegPointer:
		if index > 1 {
			return Command{}, p.fmtError(line, "pointer index must be 0 or 1, got %d", index)
		}
	}

	return Command{Kind: kind, Segment: seg, Index: index, Line: line.No}, nil
}
