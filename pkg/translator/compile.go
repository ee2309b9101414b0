package translator

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"hackvm/pkg/asm"
)

// Translate converts one translation unit to Hack assembly and assembles
// it. The assembly is returned even when assembling fails.
func Translate(src string, unit string) (string, []uint16, error) {
	var out strings.Builder
	gen := NewCodeGenerator(&out, unit)

	p := NewParser(src)
	for {
		cmd, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, errors.Wrapf(err, "parse %s", unit)
		}
		if err := gen.WriteCommand(cmd); err != nil {
			return "", nil, err
		}
	}
	if err := gen.Finalize(); err != nil {
		return "", nil, err
	}

	assembly := out.String()
	machineCode, _, err := asm.Assemble(assembly)
	if err != nil {
		return assembly, nil, errors.Wrap(err, "assembly error")
	}
	return assembly, machineCode, nil
}
