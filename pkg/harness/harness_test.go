package harness_test

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hackvm/pkg/harness"
)

var _ = Describe("Scenario", func() {
	It("should decode a full scenario", func() {
		s, err := harness.ParseScenario([]byte(`
name: add
sources: [SimpleAdd.vm]
cycles: 500
ram:
  1: 300
expect:
  256: 15
  0: 257
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("add"))
		Expect(s.Sources).To(Equal([]string{"SimpleAdd.vm"}))
		Expect(s.Cycles).To(Equal(uint64(500)))
		Expect(s.RAM).To(HaveKeyWithValue(1, int16(300)))
		Expect(s.ExpectedAddrs()).To(Equal([]int{0, 256}))
	})

	It("should default the cycle budget", func() {
		s, err := harness.ParseScenario([]byte("code: push constant 1\nexpect: {256: 1}\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Cycles).To(Equal(uint64(harness.DefaultCycles)))
	})

	DescribeTable("should reject invalid scenarios",
		func(doc, msg string) {
			_, err := harness.ParseScenario([]byte(doc))
			Expect(err).To(MatchError(ContainSubstring(msg)))
		},
		Entry("no program", "expect: {0: 1}\n", "neither sources nor code"),
		Entry("no expectations", "code: add\n", "no expectations"),
		Entry("bad address", "code: add\nexpect: {40000: 1}\n", "out of range"),
		Entry("bad preset", "code: add\nram: {-1: 1}\nexpect: {0: 1}\n", "ram"),
		Entry("bad yaml", "code: [\n", "decode yaml"),
	)

	It("should resolve names and directories from the file", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "neg.yaml")
		Expect(os.WriteFile(path, []byte("code: push constant 1\nexpect: {256: 1}\n"), 0644)).To(Succeed())

		s, err := harness.LoadScenario(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name).To(Equal("neg.yaml"))
		Expect(s.Dir).To(Equal(dir))
	})
})

var _ = Describe("Runner", func() {
	var (
		runner *harness.Runner
		dir    string
	)

	BeforeEach(func() {
		runner = harness.NewRunner(harness.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		dir = GinkgoT().TempDir()
	})

	It("should pass when RAM matches", func() {
		s := &harness.Scenario{
			Name:   "add",
			Code:   "push constant 7\npush constant 8\nadd\n",
			Cycles: 1000,
			Expect: map[int]int16{0: 257, 256: 15},
		}

		res := runner.Run(s)

		Expect(res.Err).NotTo(HaveOccurred())
		Expect(res.Passed()).To(BeTrue())
		Expect(res.Halted).To(BeTrue())
		Expect(res.Cycles).To(BeNumerically(">", 0))
		Expect(float64(res.SimTime)).To(BeNumerically(">", 0))
	})

	It("should apply RAM presets before running", func() {
		s := &harness.Scenario{
			Name:   "local to argument",
			Code:   "push local 3\npop argument 3\n",
			Cycles: 1000,
			RAM:    map[int]int16{1: 300, 2: 400, 303: 42},
			Expect: map[int]int16{403: 42, 0: 256},
		}
		Expect(runner.Run(s).Passed()).To(BeTrue())
	})

	It("should report mismatching cells", func() {
		s := &harness.Scenario{
			Name:   "wrong",
			Code:   "push constant 2\npush constant 3\nlt\n",
			Cycles: 1000,
			Expect: map[int]int16{256: 0},
		}

		res := runner.Run(s)

		Expect(res.Passed()).To(BeFalse())
		Expect(res.Mismatches).To(ConsistOf(harness.Mismatch{Addr: 256, Want: 0, Got: -1}))
	})

	It("should translate source files in order with a shared label counter", func() {
		Expect(os.WriteFile(filepath.Join(dir, "A.vm"), []byte("push constant 1\npush constant 1\neq\npop static 0\n"), 0644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "B.vm"), []byte("push constant 1\npush constant 2\neq\npop static 0\n"), 0644)).To(Succeed())
		s := &harness.Scenario{
			Name:    "two units",
			Sources: []string{"A.vm", "B.vm"},
			Dir:     dir,
			Cycles:  1000,
			Expect:  map[int]int16{16: -1, 17: 0},
		}

		res := runner.Run(s)
		Expect(res.Err).NotTo(HaveOccurred())
		Expect(res.Mismatches).To(BeEmpty())
	})

	It("should surface translation errors", func() {
		s := &harness.Scenario{Name: "bad", Code: "pop constant 1\n", Expect: map[int]int16{0: 0}}

		res := runner.Run(s)

		Expect(res.Err).To(MatchError(ContainSubstring("translate Main: line 1")))
		Expect(res.CPU).To(BeNil())
	})

	It("should refuse source files that cannot name a unit", func() {
		Expect(os.WriteFile(filepath.Join(dir, "my-prog.vm"), []byte("push constant 1\npop static 0\n"), 0644)).To(Succeed())
		s := &harness.Scenario{Name: "dashed", Sources: []string{"my-prog.vm"}, Dir: dir, Expect: map[int]int16{16: 1}}

		res := runner.Run(s)

		Expect(res.Err).To(MatchError(ContainSubstring(`unit name "my-prog"`)))
		Expect(res.CPU).To(BeNil())
	})

	It("should surface missing sources", func() {
		s := &harness.Scenario{Name: "missing", Sources: []string{"Nope.vm"}, Dir: dir, Expect: map[int]int16{0: 0}}
		Expect(runner.Run(s).Err).To(MatchError(ContainSubstring("Nope.vm")))
	})

	It("should stop at the cycle budget", func() {
		s := &harness.Scenario{
			Name:   "budget",
			Code:   "push constant 1\npush constant 2\nadd\n",
			Cycles: 3,
			Expect: map[int]int16{0: 256},
		}

		res := runner.Run(s)

		Expect(res.Halted).To(BeFalse())
		Expect(res.Cycles).To(Equal(uint64(3)))
	})
})

var _ = Describe("Report", func() {
	It("should tabulate results and count failures", func() {
		results := []harness.Result{
			{Scenario: "good", Cycles: 10, Halted: true},
			{Scenario: "bad", Cycles: 12, Halted: true, Mismatches: []harness.Mismatch{{Addr: 256, Want: 1, Got: 2}, {Addr: 257, Want: 1, Got: 3}}},
		}
		var buf bytes.Buffer

		failed := harness.Report(&buf, results)

		Expect(failed).To(Equal(1))
		out := buf.String()
		Expect(out).To(ContainSubstring("good"))
		Expect(out).To(ContainSubstring("PASS"))
		Expect(out).To(ContainSubstring("FAIL"))
		Expect(out).To(ContainSubstring("RAM[256] = 2, want 1 (+1 more)"))
		Expect(out).To(ContainSubstring("1/2 PASSED"))
	})

	It("should dump named RAM cells", func() {
		runner := harness.NewRunner(harness.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		res := runner.Run(&harness.Scenario{Name: "x", Code: "push constant 9\n", Cycles: 100, Expect: map[int]int16{256: 9}})
		var buf bytes.Buffer

		harness.RAMTable(&buf, res.CPU, []int{0, 6, 14, 20, 256})

		out := buf.String()
		Expect(out).To(ContainSubstring("SP"))
		Expect(out).To(ContainSubstring("temp 1"))
		Expect(out).To(ContainSubstring("R14"))
		Expect(out).To(ContainSubstring("static"))
		Expect(out).To(ContainSubstring("stack"))
	})
})
