package cpu

import (
	"github.com/sarchlab/akita/v4/sim"
)

// Clock drives a CPU from an akita simulation engine, one instruction per
// tick.
type Clock struct {
	*sim.TickingComponent

	cpu       *CPU
	maxCycles uint64
}

// ClockBuilder can create new clocks.
type ClockBuilder struct {
	engine    sim.Engine
	freq      sim.Freq
	maxCycles uint64
}

// NewClockBuilder returns a builder that ticks at 1 GHz with no cycle limit.
func NewClockBuilder() ClockBuilder {
	return ClockBuilder{freq: 1 * sim.GHz}
}

// WithEngine sets the engine.
func (b ClockBuilder) WithEngine(engine sim.Engine) ClockBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the clock.
func (b ClockBuilder) WithFreq(freq sim.Freq) ClockBuilder {
	b.freq = freq
	return b
}

// WithMaxCycles stops the clock after n instructions. 0 means no limit.
func (b ClockBuilder) WithMaxCycles(n uint64) ClockBuilder {
	b.maxCycles = n
	return b
}

// Build creates a clock bound to c.
func (b ClockBuilder) Build(name string, c *CPU) *Clock {
	clk := &Clock{cpu: c, maxCycles: b.maxCycles}
	clk.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, clk)
	return clk
}

// Tick executes one instruction. It reports no progress once the CPU has
// halted or used up its cycle budget, which lets the engine drain.
func (k *Clock) Tick() (madeProgress bool) {
	if k.cpu.Halted {
		return false
	}
	if k.maxCycles != 0 && k.cpu.Cycles >= k.maxCycles {
		return false
	}
	k.cpu.Step()
	return true
}

// RunClocked runs c on a fresh serial engine at freq until it halts or
// executes maxCycles instructions, and returns the simulated time spent.
func RunClocked(c *CPU, freq sim.Freq, maxCycles uint64) (sim.VTimeInSec, error) {
	engine := sim.NewSerialEngine()
	clk := NewClockBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithMaxCycles(maxCycles).
		Build("HackCPU", c)

	clk.TickNow()
	if err := engine.Run(); err != nil {
		return engine.CurrentTime(), err
	}
	return engine.CurrentTime(), nil
}
