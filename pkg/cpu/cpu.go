package cpu

import (
	"github.com/pkg/errors"
)

// RAM layout of the Hack platform.
const (
	AddrSP     uint16 = 0
	AddrLCL    uint16 = 1
	AddrARG    uint16 = 2
	AddrTHIS   uint16 = 3
	AddrTHAT   uint16 = 4
	AddrTemp   uint16 = 5  // R5..R12
	AddrR13    uint16 = 13 // general purpose R13..R15
	AddrStatic uint16 = 16
	AddrStack  uint16 = 256

	AddrScreen uint16 = 16384
	AddrKBD    uint16 = 24576

	RAMSize = 32768
	ROMSize = 32768

	ScreenWords = 8192 // 256 rows × 32 words
)

// Bits of a C-instruction: 111a cccc ccdd djjj.
const (
	bitA   = 1 << 12
	bitZX  = 1 << 11
	bitNX  = 1 << 10
	bitZY  = 1 << 9
	bitNY  = 1 << 8
	bitF   = 1 << 7
	bitNO  = 1 << 6
	bitDA  = 1 << 5
	bitDD  = 1 << 4
	bitDM  = 1 << 3
	bitJLT = 1 << 2
	bitJEQ = 1 << 1
	bitJGT = 1 << 0

	idleJump = 0xEA87 // 0;JMP
)

// CPU is a Hack computer: a 16-bit A/D register machine with separate
// instruction ROM and data RAM.
type CPU struct {
	A  int16
	D  int16
	PC uint16

	RAM [RAMSize]int16
	ROM []uint16

	// Halted is set when PC runs past the program or the program parks in
	// an "@LOOP / 0;JMP" idle loop.
	Halted bool

	Cycles uint64
}

// NewCPU returns a CPU with empty memory and no program.
func NewCPU() *CPU {
	return &CPU{}
}

// Load copies program into ROM and resets the registers. RAM is kept so
// callers can preset it before or after loading.
func (c *CPU) Load(program []uint16) error {
	if len(program) > ROMSize {
		return errors.Errorf("program too large for ROM: %d words > %d words", len(program), ROMSize)
	}
	c.ROM = append(c.ROM[:0], program...)
	c.Reset()
	return nil
}

// Reset clears the registers and cycle count without touching memory.
func (c *CPU) Reset() {
	c.A, c.D, c.PC = 0, 0, 0
	c.Halted = false
	c.Cycles = 0
}

// ReadMem returns RAM[addr]. Addresses wrap to 15 bits.
func (c *CPU) ReadMem(addr uint16) int16 {
	return c.RAM[addr&0x7FFF]
}

// WriteMem stores val at RAM[addr]. Addresses wrap to 15 bits.
func (c *CPU) WriteMem(addr uint16, val int16) {
	c.RAM[addr&0x7FFF] = val
}

// SetKey stores the code of the currently pressed key in the keyboard
// register; 0 means no key.
func (c *CPU) SetKey(code int16) {
	c.RAM[AddrKBD] = code
}

// Step executes one instruction.
func (c *CPU) Step() {
	if c.Halted {
		return
	}
	if int(c.PC) >= len(c.ROM) {
		c.Halted = true
		return
	}

	instr := c.ROM[c.PC]
	c.Cycles++

	if instr&0x8000 == 0 {
		c.A = int16(instr)
		c.PC++
		return
	}

	addr := uint16(c.A)
	out := c.alu(instr)

	if instr&bitDM != 0 {
		c.WriteMem(addr, out)
	}
	if instr&bitDA != 0 {
		c.A = out
	}
	if instr&bitDD != 0 {
		c.D = out
	}

	if jumps(instr, out) {
		// "@self-1; 0;JMP" is the conventional end-of-program loop.
		if instr == idleJump && addr+1 == c.PC {
			c.Halted = true
		}
		c.PC = addr & 0x7FFF
		return
	}
	c.PC++
}

// alu computes the C-instruction's comp field using the zx/nx/zy/ny/f/no
// control bits.
func (c *CPU) alu(instr uint16) int16 {
	x := c.D
	y := c.A
	if instr&bitA != 0 {
		y = c.ReadMem(uint16(c.A))
	}

	if instr&bitZX != 0 {
		x = 0
	}
	if instr&bitNX != 0 {
		x = ^x
	}
	if instr&bitZY != 0 {
		y = 0
	}
	if instr&bitNY != 0 {
		y = ^y
	}

	var out int16
	if instr&bitF != 0 {
		out = x + y
	} else {
		out = x & y
	}
	if instr&bitNO != 0 {
		out = ^out
	}
	return out
}

func jumps(instr uint16, out int16) bool {
	switch {
	case out < 0:
		return instr&bitJLT != 0
	case out == 0:
		return instr&bitJEQ != 0
	default:
		return instr&bitJGT != 0
	}
}

// Run steps until the CPU halts or maxCycles instructions have executed.
// A maxCycles of 0 means no limit.
func (c *CPU) Run(maxCycles uint64) {
	for !c.Halted {
		if maxCycles != 0 && c.Cycles >= maxCycles {
			return
		}
		c.Step()
	}
}

// StackDepth returns SP minus the stack base.
func (c *CPU) StackDepth() int {
	return int(c.RAM[AddrSP]) - int(AddrStack)
}

// StackTop returns the value just below SP.
func (c *CPU) StackTop() int16 {
	return c.ReadMem(uint16(c.RAM[AddrSP]) - 1)
}
