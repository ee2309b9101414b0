// Package driver feeds parsed VM commands into code generators and
// composes translation units into a single Hack assembly stream.
package driver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"hackvm/pkg/asm"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

// LevelTrace sits below Debug and logs every translated command.
const LevelTrace slog.Level = slog.LevelDebug - 4

// Unit is one named translation unit.
type Unit struct {
	Name   string
	Source translator.CommandSource
}

// Driver runs the dispatch loop between a command source and a generator.
type Driver struct {
	logger   *slog.Logger
	comments bool
	tempHook func(path string)
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithComments makes generated code carry a "// <command>" line before
// every command.
func WithComments(on bool) Option {
	return func(d *Driver) {
		d.comments = on
	}
}

// WithTempHook registers fn to be told the temporary output path before
// TranslatePath starts writing it.
func WithTempHook(fn func(path string)) Option {
	return func(d *Driver) {
		d.tempHook = fn
	}
}

// New returns a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TranslateUnit writes every command from src through gen and returns the
// number of commands translated. gen is finalized on every path out,
// including a panic from a contract violation.
func (d *Driver) TranslateUnit(src translator.CommandSource, gen *translator.CodeGenerator) (n int, err error) {
	defer func() {
		if ferr := gen.Finalize(); err == nil {
			err = ferr
		}
	}()

	ctx := context.Background()
	for {
		cmd, nerr := src.Next()
		if nerr == io.EOF {
			return n, nil
		}
		if nerr != nil {
			return n, errors.Wrapf(nerr, "translate %s", gen.Unit())
		}

		d.logger.Log(ctx, LevelTrace, "command",
			"unit", gen.Unit(),
			"line", cmd.Line,
			"command", cmd.String())

		if err := gen.WriteCommand(cmd); err != nil {
			return n, err
		}
		n++
	}
}

// TranslateUnits writes all units to w in order. Comparison labels are
// numbered by one counter shared across units; statics stay namespaced by
// unit name. w is not closed.
func (d *Driver) TranslateUnits(w io.Writer, units ...Unit) error {
	for _, u := range units {
		if !asm.IsSymbol(u.Name) {
			return errors.Errorf("unit name %q is not a valid Hack symbol", u.Name)
		}
	}

	labels := translator.NewLabelCounter()
	for _, u := range units {
		cw := &countingWriter{w: w}
		gen := translator.NewCodeGenerator(cw, u.Name,
			translator.WithLabelCounter(labels),
			translator.WithComments(d.comments))

		n, err := d.TranslateUnit(u.Source, gen)
		if err != nil {
			return err
		}
		d.logger.Debug("translated unit",
			"unit", u.Name,
			"commands", n,
			"bytes", cw.n)
	}
	return nil
}

// TranslatePath translates a .vm file or a directory of .vm files. An empty
// out selects X.asm next to X.vm, or D/D.asm for a directory D. Output is
// written to a temporary file that replaces out only on success.
func (d *Driver) TranslatePath(in, out string) error {
	sources, isDir, err := utils.CollectSources(in)
	if err != nil {
		return err
	}
	if out == "" {
		out = utils.DefaultOutputPath(in, isDir)
	}

	units := make([]Unit, 0, len(sources))
	for _, path := range sources {
		name := utils.UnitName(path)
		if !asm.IsSymbol(name) {
			return errors.Errorf("%s: unit name %q is not a valid Hack symbol", path, name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		units = append(units, Unit{
			Name:   name,
			Source: translator.NewParser(string(data)),
		})
	}

	if err := d.writeAtomic(out, units); err != nil {
		return err
	}

	d.logger.Info("translated",
		"input", in,
		"units", len(units),
		"output", out)
	return nil
}

// writeAtomic translates units into a temporary file next to out and
// renames it over out. The temporary file is closed and removed on every
// other path, including a panic.
func (d *Driver) writeAtomic(out string, units []Unit) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*")
	if err != nil {
		return errors.Wrap(err, "create output")
	}
	if d.tempHook != nil {
		d.tempHook(tmp.Name())
	}

	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := d.TranslateUnits(tmp, units...); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close output")
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}
	renamed = true
	return nil
}

// countingWriter hides the Close of the shared sink from per-unit
// generators and counts the bytes they write.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
