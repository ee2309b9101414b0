package translator

import (
	"strings"
)

// Line is one non-empty source line with comments removed.
type Line struct {
	No     int      // 1-based source line
	Fields []string // whitespace separated words
	Text   string   // trimmed source text, comments included
}

// Lex splits VM source into lines of words, dropping blank lines and
// "//" comments.
func Lex(src string) []Line {
	var lines []Line
	for i, raw := range strings.Split(src, "\n") {
		code := stripComment(raw)
		fields := strings.Fields(code)
		if len(fields) == 0 {
			continue
		}
		lines = append(lines, Line{
			No:     i + 1,
			Fields: fields,
			Text:   strings.TrimSpace(raw),
		})
	}
	return lines
}

func stripComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
