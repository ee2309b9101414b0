package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"hackvm/pkg/asm"
	"hackvm/pkg/translator"
	"hackvm/pkg/utils"
)

const testSource = `push constant 7
push constant 8
add
push constant 3
lt
pop static 0
`

// dump prints every stage of translating src: lexed lines, the command
// tree, the generated assembly and the assembled word count.
func dump(w io.Writer, unit, src string, comments bool) error {
	fmt.Fprintf(w, "Source:\n%s\n", src)

	lines := translator.Lex(src)
	fmt.Fprintf(w, "Lines (%d)\n", len(lines))
	for _, l := range lines {
		fmt.Fprintf(w, "  %3d  %q\n", l.No, l.Fields)
	}
	fmt.Fprintln(w)

	cmds, err := translator.Parse(src)
	if err != nil {
		return errors.Wrap(err, "parse error")
	}
	fmt.Fprintln(w, "Commands")
	fmt.Fprintln(w, commandTree(unit, cmds))
	fmt.Fprintln(w)

	var out strings.Builder
	gen := translator.NewCodeGenerator(&out, unit, translator.WithComments(comments))
	for _, cmd := range cmds {
		if err := gen.WriteCommand(cmd); err != nil {
			return err
		}
	}
	if err := gen.Finalize(); err != nil {
		return err
	}

	fmt.Fprintln(w, "Generated Assembly")
	fmt.Fprint(w, out.String())
	fmt.Fprintln(w)

	words, _, err := asm.Assemble(out.String())
	if err != nil {
		return errors.Wrap(err, "assembly error")
	}
	fmt.Fprintf(w, "Machine code: %d words, %d comparison labels\n", len(words), gen.Labels().Current())
	return nil
}

// commandTree groups commands under their kind, each leaf carrying its
// source line.
func commandTree(unit string, cmds []translator.Command) *tree.Tree {
	root := tree.NewTree(tree.NodeString(unit))
	groups := map[translator.CommandKind]*tree.Tree{}
	for _, cmd := range cmds {
		g, ok := groups[cmd.Kind]
		if !ok {
			g = root.AddChild(tree.NodeString(cmd.Kind.String()))
			groups[cmd.Kind] = g
		}
		leaf := g.AddChild(tree.NodeString(operand(cmd)))
		leaf.AddChild(tree.NodeString("line " + strconv.Itoa(cmd.Line)))
	}
	return root
}

func operand(cmd translator.Command) string {
	switch cmd.Kind {
	case translator.Push, translator.Pop:
		return cmd.Segment.String() + " " + strconv.Itoa(cmd.Index)
	case translator.Label:
		return cmd.Name
	}
	return cmd.Operator.String()
}

func main() {
	var comments bool
	cmd := &cobra.Command{
		Use:   "vmdump [file.vm]",
		Short: "Print every translation stage of a VM file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, unit := testSource, "Test"
			if len(args) == 1 {
				data, err := os.ReadFile(args[0])
				if err != nil {
					return errors.Wrap(err, "read error")
				}
				src, unit = string(data), utils.UnitName(args[0])
			}
			return dump(cmd.OutOrStdout(), unit, src, comments)
		},
	}
	cmd.Flags().BoolVar(&comments, "comments", true, "annotate the assembly with the VM commands")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
