package snapshot

import (
	"fmt"
	"strings"
)

const (
	diffContextLines = 3
	maxDiffBytes     = 256 * 1024
)

// UnifiedDiff renders a single-hunk unified diff between before and after.
// The changed region is computed by trimming the common prefix and suffix;
// everything between is emitted as deletions then additions. Oversized
// inputs yield an empty diff.
func UnifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	if len(before) > maxDiffBytes || len(after) > maxDiffBytes {
		return ""
	}

	oldLines := splitLines(before)
	newLines := splitLines(after)

	prefix := 0
	for prefix < len(oldLines) && prefix < len(newLines) && oldLines[prefix] == newLines[prefix] {
		prefix++
	}

	suffix := 0
	for suffix < len(oldLines)-prefix && suffix < len(newLines)-prefix &&
		oldLines[len(oldLines)-1-suffix] == newLines[len(newLines)-1-suffix] {
		suffix++
	}

	dels := oldLines[prefix : len(oldLines)-suffix]
	adds := newLines[prefix : len(newLines)-suffix]

	ctxStart := prefix - diffContextLines
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxBefore := oldLines[ctxStart:prefix]

	afterStart := len(oldLines) - suffix
	afterEnd := afterStart + diffContextLines
	if afterEnd > len(oldLines) {
		afterEnd = len(oldLines)
	}
	ctxAfter := oldLines[afterStart:afterEnd]

	oldCount := len(ctxBefore) + len(dels) + len(ctxAfter)
	newCount := len(ctxBefore) + len(adds) + len(ctxAfter)

	oldStart := ctxStart + 1
	if oldCount == 0 {
		oldStart = ctxStart
	}
	newStart := ctxStart + 1
	if newCount == 0 {
		newStart = ctxStart
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)

	for _, line := range ctxBefore {
		writeDiffLine(&b, ' ', line)
	}
	for _, line := range dels {
		writeDiffLine(&b, '-', line)
	}
	for _, line := range adds {
		writeDiffLine(&b, '+', line)
	}
	for _, line := range ctxAfter {
		writeDiffLine(&b, ' ', line)
	}

	return b.String()
}

// writeDiffLine emits one prefixed line, adding the no-newline marker when
// the source line lacks a trailing newline.
func writeDiffLine(b *strings.Builder, kind byte, line string) {
	b.WriteByte(kind)
	if strings.HasSuffix(line, "\n") {
		b.WriteString(line)
		return
	}
	b.WriteString(line)
	b.WriteString("\n\\ No newline at end of file\n")
}

// splitLines splits keeping trailing newlines, so joins reproduce the input.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
