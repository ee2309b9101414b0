package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// compBits maps a computation to its a-bit and c1..c6 bits (7 bits).
var compBits = map[string]uint16{
	"0":   0b0101010,
	"1":   0b0111111,
	"-1":  0b0111010,
	"D":   0b0001100,
	"A":   0b0110000,
	"!D":  0b0001101,
	"!A":  0b0110001,
	"-D":  0b0001111,
	"-A":  0b0110011,
	"D+1": 0b0011111,
	"A+1": 0b0110111,
	"D-1": 0b0001110,
	"A-1": 0b0110010,
	"D+A": 0b0000010,
	"D-A": 0b0010011,
	"A-D": 0b0000111,
	"D&A": 0b0000000,
	"D|A": 0b0010101,

	"M":   0b1110000,
	"!M":  0b1110001,
	"-M":  0b1110011,
	"M+1": 0b1110111,
	"M-1": 0b1110010,
	"D+M": 0b1000010,
	"D-M": 0b1010011,
	"M-D": 0b1000111,
	"D&M": 0b1000000,
	"D|M": 0b1010101,

	// commutative spellings
	"1+D": 0b0011111,
	"1+A": 0b0110111,
	"1+M": 0b1110111,
	"A+D": 0b0000010,
	"M+D": 0b1000010,
	"A&D": 0b0000000,
	"M&D": 0b1000000,
	"A|D": 0b0010101,
	"M|D": 0b1010101,
}

var destBits = map[string]uint16{
	"":    0b000,
	"M":   0b001,
	"D":   0b010,
	"MD":  0b011,
	"DM":  0b011,
	"A":   0b100,
	"AM":  0b101,
	"MA":  0b101,
	"AD":  0b110,
	"DA":  0b110,
	"AMD": 0b111,
	"ADM": 0b111,
	"MAD": 0b111,
	"MDA": 0b111,
	"DAM": 0b111,
	"DMA": 0b111,
}

var jumpBits = map[string]uint16{
	"":    0b000,
	"JGT": 0b001,
	"JEQ": 0b010,
	"JGE": 0b011,
	"JLT": 0b100,
	"JNE": 0b101,
	"JLE": 0b110,
	"JMP": 0b111,
}

// predefined holds the symbols every Hack program starts with.
var predefined = map[string]uint16{
	"SP":     0,
	"LCL":    1,
	"ARG":    2,
	"THIS":   3,
	"THAT":   4,
	"SCREEN": 16384,
	"KBD":    24576,
}

const (
	// VariableBase is the RAM address of the first assembler-allocated variable.
	VariableBase = 16
	// MaxAddress is the largest value an A-instruction can load.
	MaxAddress = 0x7FFF
	// ROMSize is the number of instruction words the platform can hold.
	ROMSize = 32768
)

func init() {
	for i := 0; i < 16; i++ {
		predefined[fmt.Sprintf("R%d", i)] = uint16(i)
	}
}

// Assembler translates Hack assembly into 16-bit machine words.
type Assembler struct {
	symbols map[string]uint16
	nextVar uint16
}

type parsedLine struct {
	lineNo int
	label  string // (name)
	symbol string // @symbol or @number
	isA    bool
	dest   string
	comp   string
	jump   string
}

func (p parsedLine) empty() bool {
	return p.label == "" && !p.isA && p.comp == ""
}

func NewAssembler() *Assembler {
	a := &Assembler{
		symbols: make(map[string]uint16, len(predefined)),
		nextVar: VariableBase,
	}
	for k, v := range predefined {
		a.symbols[k] = v
	}
	return a
}

// Assemble assembles code and returns the machine words plus a map from
// ROM address to 1-based source line.
func Assemble(code string) ([]uint16, map[uint16]int, error) {
	return NewAssembler().Assemble(code)
}

func (a *Assembler) Assemble(code string) ([]uint16, map[uint16]int, error) {
	lines := strings.Split(code, "\n")

	parsed, err := a.pass1(lines)
	if err != nil {
		return nil, nil, err
	}

	return a.pass2(parsed)
}

// Symbol returns the address bound to name after Assemble.
func (a *Assembler) Symbol(name string) (uint16, bool) {
	v, ok := a.symbols[name]
	return v, ok
}

// pass1 parses every line and binds labels to ROM addresses.
func (a *Assembler) pass1(lines []string) ([]parsedLine, error) {
	var address uint32
	var parsed []parsedLine
	labels := make(map[string]bool)

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.empty() {
			continue
		}

		if p.label != "" {
			if labels[p.label] {
				return nil, fmt.Errorf("duplicate label '%s' on line %d", p.label, lineNo)
			}
			if _, reserved := predefined[p.label]; reserved {
				return nil, fmt.Errorf("label '%s' on line %d redefines a predefined symbol", p.label, lineNo)
			}
			if address > MaxAddress {
				return nil, fmt.Errorf("label '%s' on line %d points past addressable memory", p.label, lineNo)
			}
			labels[p.label] = true
			a.symbols[p.label] = uint16(address)
			continue
		}

		if address >= ROMSize {
			return nil, fmt.Errorf("program too large near line %d", lineNo)
		}
		address++
		parsed = append(parsed, p)
	}

	return parsed, nil
}

// pass2 encodes instructions, allocating variables on first use.
func (a *Assembler) pass2(parsed []parsedLine) ([]uint16, map[uint16]int, error) {
	program := make([]uint16, 0, len(parsed))
	sourceMap := make(map[uint16]int, len(parsed))

	for _, p := range parsed {
		sourceMap[uint16(len(program))] = p.lineNo

		if p.isA {
			val, err := a.resolve(p.symbol, p.lineNo)
			if err != nil {
				return nil, nil, err
			}
			program = append(program, val)
			continue
		}

		comp, ok := compBits[p.comp]
		if !ok {
			return nil, nil, fmt.Errorf("invalid computation '%s' on line %d", p.comp, p.lineNo)
		}
		dest, ok := destBits[p.dest]
		if !ok {
			return nil, nil, fmt.Errorf("invalid destination '%s' on line %d", p.dest, p.lineNo)
		}
		jmp, ok := jumpBits[p.jump]
		if !ok {
			return nil, nil, fmt.Errorf("invalid jump '%s' on line %d", p.jump, p.lineNo)
		}
		program = append(program, EncodeC(comp, dest, jmp))
	}

	return program, sourceMap, nil
}

// EncodeC packs the fields of a C-instruction: 111a cccc ccdd djjj.
func EncodeC(comp, dest, jmp uint16) uint16 {
	return 0xE000 | (comp&0x7F)<<6 | (dest&0x7)<<3 | jmp&0x7
}

func (a *Assembler) resolve(token string, lineNo int) (uint16, error) {
	if token[0] >= '0' && token[0] <= '9' {
		value, err := strconv.ParseUint(token, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid constant '%s' on line %d", token, lineNo)
		}
		if value > MaxAddress {
			return 0, fmt.Errorf("constant out of range on line %d: %s", lineNo, token)
		}
		return uint16(value), nil
	}

	if addr, ok := a.symbols[token]; ok {
		return addr, nil
	}

	if a.nextVar > MaxAddress {
		return 0, fmt.Errorf("out of variable space at '%s' on line %d", token, lineNo)
	}
	addr := a.nextVar
	a.symbols[token] = addr
	a.nextVar++
	return addr, nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := stripComments(raw)
	line = strings.Join(strings.Fields(line), "")
	if line == "" {
		return p, nil
	}

	switch line[0] {
	case '(':
		if !strings.HasSuffix(line, ")") {
			return p, fmt.Errorf("invalid label on line %d", lineNo)
		}
		name := line[1 : len(line)-1]
		if !IsSymbol(name) {
			return p, fmt.Errorf("invalid label '%s' on line %d", name, lineNo)
		}
		p.label = name
		return p, nil

	case '@':
		sym := line[1:]
		if sym == "" {
			return p, fmt.Errorf("missing operand after '@' on line %d", lineNo)
		}
		if !isNumber(sym) && !IsSymbol(sym) {
			return p, fmt.Errorf("invalid symbol '%s' on line %d", sym, lineNo)
		}
		p.isA = true
		p.symbol = sym
		return p, nil
	}

	rest := line
	if eq := strings.IndexByte(rest, '='); eq >= 0 {
		p.dest = rest[:eq]
		rest = rest[eq+1:]
	}
	if semi := strings.IndexByte(rest, ';'); semi >= 0 {
		p.jump = rest[semi+1:]
		rest = rest[:semi]
	}
	p.comp = rest
	if p.comp == "" {
		return p, fmt.Errorf("missing computation on line %d", lineNo)
	}
	return p, nil
}

func stripComments(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}

func isNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// IsSymbol reports whether s is a Hack symbol: letters, digits and "_.$:",
// not starting with a digit.
func IsSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '_' || r == '.' || r == '$' || r == ':':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Format renders machine words as .hack text, one 16-digit binary word per line.
func Format(words []uint16) string {
	var sb strings.Builder
	for _, w := range words {
		fmt.Fprintf(&sb, "%016b\n", w)
	}
	return sb.String()
}

// ParseHack reads .hack text back into machine words. Blank lines are
// skipped; every other line must be exactly 16 binary digits.
func ParseHack(text string) ([]uint16, error) {
	var words []uint16
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if len(line) != 16 {
			return nil, fmt.Errorf("line %d: expected 16 binary digits, got %q", i+1, line)
		}
		w, err := strconv.ParseUint(line, 2, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binary word %q", i+1, line)
		}
		words = append(words, uint16(w))
	}
	return words, nil
}
