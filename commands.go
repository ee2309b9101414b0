//go:build !js

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"hackvm/pkg/asm"
	"hackvm/pkg/cpu"
	"hackvm/pkg/driver"
	"hackvm/pkg/harness"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

func newTranslateCmd() *cobra.Command {
	var (
		out      string
		comments bool
	)
	cmd := &cobra.Command{
		Use:   "translate path",
		Short: "Translate a .vm file or a directory of .vm files to Hack assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := driver.New(
				driver.WithComments(comments),
				driver.WithTempHook(func(tmp string) {
					// An interrupted run must not leave half an output file.
					atexit.Register(func() { os.Remove(tmp) })
				}),
			)
			return d.TranslatePath(args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output .asm path (default: X.asm or D/D.asm)")
	cmd.Flags().BoolVar(&comments, "comments", false, "precede each command's code with a // comment")
	return cmd
}

func newAssembleCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "assemble file.asm",
		Short: "Assemble Hack assembly into .hack machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			source, err := os.ReadFile(in)
			if err != nil {
				return errors.Wrapf(err, "read %s", in)
			}
			words, _, err := asm.Assemble(string(source))
			if err != nil {
				return errors.Wrap(err, "assembly failed")
			}
			if out == "" {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".hack"
			}
			if err := os.WriteFile(out, []byte(asm.Format(words)), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assembled %d words -> %s\n", len(words), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output .hack path (default: input with .hack extension)")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		cycles     uint64
		presets    []string
		show       []int
		snapshot   string
		screenshot string
	)
	cmd := &cobra.Command{
		Use:   "run path",
		Short: "Run a .vm file or directory, a .asm file or a .hack file on the Hack emulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			c := cpu.NewCPU()
			if err := c.Load(words); err != nil {
				return err
			}
			c.RAM[cpu.AddrSP] = int16(cpu.AddrStack)
			if err := applyPresets(c, presets); err != nil {
				return err
			}

			simTime, err := cpu.RunClocked(c, 1*sim.GHz, cycles)
			if err != nil {
				return err
			}
			slog.Info("run complete",
				"cycles", c.Cycles,
				"halted", c.Halted,
				"sim_time", float64(simTime))

			addrs := show
			if len(addrs) == 0 {
				addrs = defaultShow(c)
			}
			harness.RAMTable(cmd.OutOrStdout(), c, addrs)

			if snapshot != "" {
				if err := c.SnapshotToFile(snapshot); err != nil {
					return err
				}
			}
			if screenshot != "" {
				if err := c.SaveScreenshot(screenshot); err != nil {
					return errors.Wrapf(err, "screenshot %s", screenshot)
				}
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&cycles, "cycles", harness.DefaultCycles, "maximum instructions to execute (0 = no limit)")
	cmd.Flags().StringSliceVar(&presets, "ram", nil, "preset RAM cells as addr=value (repeatable)")
	cmd.Flags().IntSliceVar(&show, "show", nil, "RAM addresses to print (default: pointers and the stack)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write a snapshot archive of the final machine state")
	cmd.Flags().StringVar(&screenshot, "screenshot", "", "write the screen as .png or .bmp")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check scenario.yaml...",
		Short: "Run YAML test scenarios and report which pass",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := make([]*harness.Scenario, 0, len(args))
			for _, path := range args {
				s, err := harness.LoadScenario(path)
				if err != nil {
					return err
				}
				scenarios = append(scenarios, s)
			}

			results := harness.NewRunner().RunAll(scenarios)
			if failed := harness.Report(cmd.OutOrStdout(), results); failed > 0 {
				return errors.Errorf("%d of %d scenarios failed", failed, len(results))
			}
			return nil
		},
	}
}

// loadProgram turns a .hack, .asm, .vm file or a directory of .vm files
// into machine words.
func loadProgram(path string) ([]uint16, error) {
	switch filepath.Ext(path) {
	case ".hack":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		return asm.ParseHack(string(data))
	case ".asm":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		words, _, err := asm.Assemble(string(data))
		return words, errors.Wrap(err, "assembly failed")
	}

	sources, _, err := utils.CollectSources(path)
	if err != nil {
		return nil, err
	}
	units := make([]driver.Unit, 0, len(sources))
	for _, src := range sources {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", src)
		}
		units = append(units, driver.Unit{Name: utils.UnitName(src), Source: translator.NewParser(string(data))})
	}

	var out strings.Builder
	if err := driver.New().TranslateUnits(&out, units...); err != nil {
		return nil, err
	}
	words, _, err := asm.Assemble(out.String())
	return words, errors.Wrap(err, "assembly failed")
}

// applyPresets parses addr=value pairs into RAM.
func applyPresets(c *cpu.CPU, presets []string) error {
	for _, p := range presets {
		addrText, valText, ok := strings.Cut(p, "=")
		if !ok {
			return errors.Errorf("invalid --ram %q: want addr=value", p)
		}
		addr, err := strconv.ParseUint(strings.TrimSpace(addrText), 10, 15)
		if err != nil {
			return errors.Wrapf(err, "invalid --ram address %q", addrText)
		}
		val, err := strconv.ParseInt(strings.TrimSpace(valText), 10, 16)
		if err != nil {
			return errors.Wrapf(err, "invalid --ram value %q", valText)
		}
		c.RAM[addr] = int16(val)
	}
	return nil
}

// defaultShow lists the pointer registers and the live stack.
func defaultShow(c *cpu.CPU) []int {
	addrs := []int{0, 1, 2, 3, 4}
	sp := int(c.RAM[cpu.AddrSP])
	for a := int(cpu.AddrStack); a < sp && a < int(cpu.AddrStack)+16; a++ {
		addrs = append(addrs, a)
	}
	return addrs
}
