// Package normalize cleans up generated prompt text: comma and
// whitespace artifacts left behind by empty substitutions are collapsed
// so the output reads as a tidy tag list. Normalization is idempotent.
package normalize

import (
	"regexp"
	"strings"
)

var (
	spaceBeforeComma = regexp.MustCompile(`[ \t]+,`)
	commaRun         = regexp.MustCompile(`,(\s*,)+`)
	commaSpacing     = regexp.MustCompile(`,[ \t]*`)
	onlySeparators   = regexp.MustCompile(`^[\s,]*$`)
)

// Text normalizes a block of prompt text line by line. Lines holding
// nothing but commas and whitespace are dropped, runs of blank lines
// collapse to a single blank line, and every comma is followed by
// exactly one space. A comma ending a line keeps a trailing space so
// that concatenating lines later still separates tags.
func Text(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if onlySeparators.MatchString(trimmed) {
			if trimmed != "" {
				// separator artifact, vanishes without leaving a gap
				continue
			}
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, normalizeLine(trimmed))
	}
	// trailing blank line left by a collapse
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func normalizeLine(line string) string {
	line = spaceBeforeComma.ReplaceAllString(line, ",")
	line = commaRun.ReplaceAllString(line, ",")
	line = commaSpacing.ReplaceAllString(line, ", ")
	// a trailing comma keeps its space so joined lines stay separated
	return strings.TrimRight(line, " \t") + trailingSep(line)
}

func trailingSep(line string) string {
	if strings.HasSuffix(strings.TrimRight(line, " \t"), ",") {
		return " "
	}
	return ""
}
