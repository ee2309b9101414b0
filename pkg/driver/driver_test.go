package driver

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"hackvm/pkg/translator"
)

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func expectCommands(src *MockCommandSource, cmds ...translator.Command) {
	calls := make([]*gomock.Call, 0, len(cmds)+1)
	for _, cmd := range cmds {
		calls = append(calls, src.EXPECT().Next().Return(cmd, nil))
	}
	calls = append(calls, src.EXPECT().Next().Return(translator.Command{}, io.EOF))
	gomock.InOrder(calls...)
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl *gomock.Controller
		source   *MockCommandSource
		logs     *bytes.Buffer
		d        *Driver
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockCommandSource(mockCtrl)
		logs = new(bytes.Buffer)
		logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: LevelTrace}))
		d = New(WithLogger(logger))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Describe("TranslateUnit", func() {
		It("should write every command and finalize the generator", func() {
			expectCommands(source,
				translator.NewPush(translator.SegConstant, 7),
				translator.NewPush(translator.SegConstant, 8),
				translator.NewArithmetic(translator.OpAdd),
			)
			sink := &closeRecorder{}
			gen := translator.NewCodeGenerator(sink, "Main")

			n, err := d.TranslateUnit(source, gen)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))
			Expect(sink.closed).To(BeTrue())
			Expect(sink.String()).To(HavePrefix("@7\nD=A\n"))
			Expect(sink.String()).To(HaveSuffix("A=A-1\nM=D+M\n"))
			Expect(logs.String()).To(ContainSubstring(`command="push constant 8"`))
		})

		It("should stop on a source error and still flush what was written", func() {
			srcErr := errors.New("line 2: unknown command")
			gomock.InOrder(
				source.EXPECT().Next().Return(translator.NewLabel("START"), nil),
				source.EXPECT().Next().Return(translator.Command{}, srcErr),
			)
			sink := &closeRecorder{}
			gen := translator.NewCodeGenerator(sink, "Main")

			n, err := d.TranslateUnit(source, gen)

			Expect(err).To(MatchError(ContainSubstring("translate Main: line 2")))
			Expect(errors.Cause(err)).To(BeIdenticalTo(srcErr))
			Expect(n).To(Equal(1))
			Expect(sink.String()).To(Equal("(START)\n"))
			Expect(sink.closed).To(BeTrue())
		})

		It("should finalize the generator when a contract violation panics", func() {
			source.EXPECT().Next().Return(translator.NewPop(translator.SegConstant, 0), nil)
			sink := &closeRecorder{}
			gen := translator.NewCodeGenerator(sink, "Main")

			Expect(func() { d.TranslateUnit(source, gen) }).To(Panic())
			Expect(sink.closed).To(BeTrue())
		})
	})

	Describe("TranslateUnits", func() {
		It("should keep comparison labels unique across units", func() {
			foo := NewMockCommandSource(mockCtrl)
			bar := NewMockCommandSource(mockCtrl)
			expectCommands(foo,
				translator.NewPush(translator.SegStatic, 0),
				translator.NewPush(translator.SegConstant, 1),
				translator.NewArithmetic(translator.OpEq),
			)
			expectCommands(bar,
				translator.NewPop(translator.SegStatic, 0),
				translator.NewArithmetic(translator.OpLt),
			)
			out := &closeRecorder{}

			err := d.TranslateUnits(out, Unit{Name: "Foo", Source: foo}, Unit{Name: "Bar", Source: bar})

			Expect(err).NotTo(HaveOccurred())
			code := out.String()
			Expect(code).To(ContainSubstring("(EQ.true.1)"))
			Expect(code).To(ContainSubstring("(LT.true.2)"))
			Expect(code).NotTo(ContainSubstring("LT.true.1"))
			Expect(code).To(ContainSubstring("@Foo.0\n"))
			Expect(code).To(ContainSubstring("@Bar.0\n"))
			Expect(strings.Index(code, "@Foo.0")).To(BeNumerically("<", strings.Index(code, "@Bar.0")))
			Expect(out.closed).To(BeFalse())
			Expect(logs.String()).To(ContainSubstring("unit=Bar commands=2"))
		})

		It("should emit comments when asked", func() {
			expectCommands(source, translator.NewArithmetic(translator.OpNot))
			out := &bytes.Buffer{}

			err := New(WithComments(true), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
				TranslateUnits(out, Unit{Name: "Main", Source: source})

			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("// not\n@SP\nA=M-1\nM=!M\n"))
		})

		It("should reject a unit name that is not a Hack symbol", func() {
			out := &bytes.Buffer{}

			err := d.TranslateUnits(out,
				Unit{Name: "Main", Source: source},
				Unit{Name: "my-prog", Source: NewMockCommandSource(mockCtrl)})

			Expect(err).To(MatchError(ContainSubstring(`unit name "my-prog" is not a valid Hack symbol`)))
			Expect(out.Len()).To(BeZero())
		})
	})

	Describe("TranslatePath", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		write := func(name, content string) string {
			path := filepath.Join(dir, name)
			Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
			return path
		}

		It("should translate a single file next to its source", func() {
			in := write("Simple.vm", "push constant 17\npush static 1\n")

			Expect(d.TranslatePath(in, "")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(dir, "Simple.asm"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(HavePrefix("@17\nD=A\n"))
			Expect(string(data)).To(ContainSubstring("@Simple.1\n"))
		})

		It("should translate a directory in file name order", func() {
			prog := filepath.Join(dir, "Prog")
			Expect(os.Mkdir(prog, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(prog, "Zeta.vm"), []byte("push static 0\neq\n"), 0644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(prog, "Alpha.vm"), []byte("push static 0\neq\n"), 0644)).To(Succeed())

			Expect(d.TranslatePath(prog, "")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(prog, "Prog.asm"))
			Expect(err).NotTo(HaveOccurred())
			code := string(data)
			Expect(strings.Index(code, "@Alpha.0")).To(BeNumerically("<", strings.Index(code, "@Zeta.0")))
			Expect(code).To(ContainSubstring("(EQ.true.1)"))
			Expect(code).To(ContainSubstring("(EQ.true.2)"))
		})

		It("should leave no output behind on a parse error", func() {
			in := write("Bad.vm", "push constant 1\npop constant 1\n")
			var temp string
			d = New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithTempHook(func(p string) { temp = p }))

			err := d.TranslatePath(in, "")

			Expect(err).To(MatchError(ContainSubstring("translate Bad: line 2")))
			Expect(temp).NotTo(BeEmpty())
			Expect(filepath.Join(dir, "Bad.asm")).NotTo(BeAnExistingFile())
			Expect(temp).NotTo(BeAnExistingFile())
		})

		It("should write to an explicit output path", func() {
			in := write("Main.vm", "push constant 1\n")
			out := filepath.Join(dir, "out.asm")

			Expect(d.TranslatePath(in, out)).To(Succeed())
			Expect(out).To(BeAnExistingFile())
		})

		It("should reject a missing input", func() {
			Expect(d.TranslatePath(filepath.Join(dir, "nope.vm"), "")).NotTo(Succeed())
		})

		It("should reject a file whose name cannot namespace statics", func() {
			in := write("my-prog.vm", "push static 0\n")

			err := d.TranslatePath(in, "")

			Expect(err).To(MatchError(ContainSubstring("my-prog.vm")))
			Expect(err).To(MatchError(ContainSubstring("not a valid Hack symbol")))
			Expect(filepath.Join(dir, "my-prog.asm")).NotTo(BeAnExistingFile())
		})

		It("should remove the temporary output when a generator panics", func() {
			source.EXPECT().Next().Return(translator.NewPop(translator.SegConstant, 0), nil)
			var temp string
			d = New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithTempHook(func(p string) { temp = p }))
			out := filepath.Join(dir, "Main.asm")

			Expect(func() { d.writeAtomic(out, []Unit{{Name: "Main", Source: source}}) }).To(Panic())

			Expect(temp).NotTo(BeEmpty())
			Expect(temp).NotTo(BeAnExistingFile())
			Expect(out).NotTo(BeAnExistingFile())
		})
	})
})
