package translator

// LabelCounter numbers comparison translations. Values start at 1, are
// strictly increasing and are never handed out twice.
type LabelCounter struct {
	n int
}

// NewLabelCounter returns a counter whose first Next is 1.
func NewLabelCounter() *LabelCounter {
	return &LabelCounter{}
}

// Next advances the counter and returns the new value.
func (c *LabelCounter) Next() int {
	c.n++
	return c.n
}

// Current returns the last value handed out, or 0 before the first Next.
func (c *LabelCounter) Current() int {
	return c.n
}

// Base registers and fixed RAM locations of the Hack platform, by the
// symbol the assembler predefines for them.
const (
	symSP      = "SP"
	symLCL     = "LCL"
	symARG     = "ARG"
	symTHIS    = "THIS"
	symTHAT    = "THAT"
	symTemp    = "R5"
	symScratch = "R13"
)

// baseRegisters maps pointer-based segments to the register holding their base.
var baseRegisters = map[Segment]string{
	SegLocal:    symLCL,
	SegArgument: symARG,
	SegThis:     symTHIS,
	SegThat:     symTHAT,
}

// pointerRegisters maps pointer indexes to the base register they select.
var pointerRegisters = [...]string{
	0: symTHIS,
	1: symTHAT,
}
