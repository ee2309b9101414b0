package harness

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"hackvm/pkg/cpu"
)

// Report renders one row per result and returns the number of failures.
func Report(w io.Writer, results []Result) int {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Scenarios")
	t.AppendHeader(table.Row{"Scenario", "Status", "Cycles", "Sim time", "Detail"})

	failed := 0
	for _, r := range results {
		status := "PASS"
		detail := ""
		switch {
		case r.Err != nil:
			status = "ERROR"
			detail = r.Err.Error()
		case len(r.Mismatches) > 0:
			status = "FAIL"
			m := r.Mismatches[0]
			detail = fmt.Sprintf("RAM[%d] = %d, want %d", m.Addr, m.Got, m.Want)
			if n := len(r.Mismatches) - 1; n > 0 {
				detail += fmt.Sprintf(" (+%d more)", n)
			}
		case !r.Halted:
			detail = "cycle limit reached"
		}
		if status != "PASS" {
			failed++
		}
		t.AppendRow(table.Row{r.Scenario, status, r.Cycles, fmt.Sprintf("%.0fns", float64(r.SimTime)*1e9), detail})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d passed", len(results)-failed, len(results))})
	t.Render()
	return failed
}

// RAMTable renders the registers and the given RAM cells of c.
func RAMTable(w io.Writer, c *cpu.CPU, addrs []int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("A=%d D=%d PC=%d cycles=%d", c.A, c.D, c.PC, c.Cycles))
	t.AppendHeader(table.Row{"Addr", "Name", "Value"})
	for _, a := range addrs {
		t.AppendRow(table.Row{a, ramName(a), c.RAM[a&0x7FFF]})
	}
	t.Render()
}

var ramNames = map[int]string{
	int(cpu.AddrSP):   "SP",
	int(cpu.AddrLCL):  "LCL",
	int(cpu.AddrARG):  "ARG",
	int(cpu.AddrTHIS): "THIS",
	int(cpu.AddrTHAT): "THAT",
	int(cpu.AddrKBD):  "KBD",
}

func ramName(addr int) string {
	if n, ok := ramNames[addr]; ok {
		return n
	}
	switch {
	case addr >= 5 && addr <= 12:
		return fmt.Sprintf("temp %d", addr-5)
	case addr >= 13 && addr <= 15:
		return fmt.Sprintf("R%d", addr)
	case addr >= int(cpu.AddrStatic) && addr < int(cpu.AddrStack):
		return "static"
	case addr >= int(cpu.AddrStack) && addr < 2048:
		return "stack"
	case addr >= int(cpu.AddrScreen) && addr < int(cpu.AddrKBD):
		return "screen"
	}
	return ""
}
