package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// unifiedScriptDiff renders a colorized line diff between a
// suggestion's previous and refined generated_script, the way the
// teacher's internal/diff.Generator.generateLineDiff falls back to a
// line-based diff when diffmatchpatch's patch set comes back empty —
// scripts here are short enough that a line diff is always the more
// readable view for a terminal refine loop.
func unifiedScriptDiff(before, after string) string {
	if before == after {
		return "(no change)"
	}
	if before == "" {
		before = "(empty)"
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	diffs = dmp.DiffCleanupSemantic(diffs)

	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	var out strings.Builder
	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				out.WriteString(green(fmt.Sprintf("+%s\n", line)))
			case diffmatchpatch.DiffDelete:
				out.WriteString(red(fmt.Sprintf("-%s\n", line)))
			default:
				out.WriteString(fmt.Sprintf(" %s\n", line))
			}
		}
	}
	return strings.TrimRight(out.String(), "\n")
}
