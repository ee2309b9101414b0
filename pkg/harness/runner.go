package harness

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"

	"hackvm/pkg/asm"
	"hackvm/pkg/cpu"
	"hackvm/pkg/driver"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

// InlineUnit names the translation unit built from a scenario's code field.
const InlineUnit = "Main"

// Mismatch is one expected RAM cell that held a different value.
type Mismatch struct {
	Addr int
	Want int16
	Got  int16
}

// Result is the outcome of one scenario.
type Result struct {
	Scenario   string
	Cycles     uint64
	SimTime    sim.VTimeInSec
	Halted     bool
	Mismatches []Mismatch
	Err        error

	// CPU is the machine after the run, nil if translation failed.
	CPU *cpu.CPU
}

// Passed reports whether the scenario ran and every expectation held.
func (r Result) Passed() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

// Runner translates, assembles and runs scenarios on a clocked CPU.
type Runner struct {
	logger *slog.Logger
	freq   sim.Freq
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithFreq sets the simulated clock frequency. The default is 1 GHz.
func WithFreq(f sim.Freq) RunnerOption {
	return func(r *Runner) {
		r.freq = f
	}
}

// NewRunner returns a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default(), freq: 1 * sim.GHz}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build translates and assembles the scenario's program.
func (r *Runner) Build(s *Scenario) ([]uint16, error) {
	units, err := s.units()
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	d := driver.New(driver.WithLogger(r.logger))
	if err := d.TranslateUnits(&out, units...); err != nil {
		return nil, err
	}

	words, _, err := asm.Assemble(out.String())
	if err != nil {
		return nil, errors.Wrap(err, "assembly error")
	}
	return words, nil
}

// Run executes one scenario. SP starts at the stack base unless the
// scenario presets RAM[0].
func (r *Runner) Run(s *Scenario) Result {
	res := Result{Scenario: s.Name}

	words, err := r.Build(s)
	if err != nil {
		res.Err = err
		r.logger.Warn("scenario failed", "scenario", s.Name, "err", err)
		return res
	}

	c := cpu.NewCPU()
	if err := c.Load(words); err != nil {
		res.Err = err
		return res
	}
	c.RAM[cpu.AddrSP] = int16(cpu.AddrStack)
	for addr, v := range s.RAM {
		c.RAM[addr] = v
	}

	res.SimTime, res.Err = cpu.RunClocked(c, r.freq, s.Cycles)
	res.Cycles = c.Cycles
	res.Halted = c.Halted
	res.CPU = c
	if res.Err != nil {
		return res
	}

	for _, addr := range s.ExpectedAddrs() {
		want := s.Expect[addr]
		if got := c.RAM[addr]; got != want {
			res.Mismatches = append(res.Mismatches, Mismatch{Addr: addr, Want: want, Got: got})
		}
	}

	r.logger.Info("scenario",
		"scenario", s.Name,
		"passed", res.Passed(),
		"cycles", res.Cycles,
		"mismatches", len(res.Mismatches))
	return res
}

// RunAll executes every scenario in order.
func (r *Runner) RunAll(scenarios []*Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, s := range scenarios {
		results = append(results, r.Run(s))
	}
	return results
}

func (s *Scenario) units() ([]driver.Unit, error) {
	var units []driver.Unit
	for _, src := range s.Sources {
		path := src
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.Dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		units = append(units, driver.Unit{
			Name:   utils.UnitName(path),
			Source: translator.NewParser(string(data)),
		})
	}
	if s.Code != "" {
		units = append(units, driver.Unit{
			Name:   InlineUnit,
			Source: translator.NewParser(s.Code),
		})
	}
	return units, nil
}
