// Package patch applies model-authored unified diffs to file contents.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ErrHunkMismatch is returned when a hunk's context or removed lines cannot be
// found in the original content.
var ErrHunkMismatch = errors.New("hunk does not match file content")

// Result is the outcome of applying a diff to one file.
type Result struct {
	Content string
	// Created is set when the diff adds a new file (--- /dev/null).
	Created bool
	// Deleted is set when the diff removes the file (+++ /dev/null).
	Deleted bool
	Added   int
	Removed int
}

// Normalize strips markdown code fences the model sometimes wraps diffs in and
// adds minimal file headers when they are missing.
func Normalize(diffText string) string {
	text := strings.TrimSpace(StripFences(diffText))
	if !strings.HasPrefix(text, "---") && !strings.HasPrefix(text, "diff ") {
		text = "--- a/file\n+++ b/file\n" + text
	}
	return text + "\n"
}

// StripFences removes a leading ``` (optionally with a language tag) or """
// fence and a trailing one.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	for _, fence := range []string{"```", `"""`} {
		if !strings.HasPrefix(trimmed, fence) {
			continue
		}
		rest := strings.TrimPrefix(trimmed, fence)
		if idx := strings.IndexByte(rest, '\n'); idx >= 0 && !strings.Contains(rest[:idx], " ") {
			rest = rest[idx+1:]
		}
		rest = strings.TrimSuffix(strings.TrimRight(rest, " \t\n"), fence)
		return strings.TrimRight(rest, " \t\n")
	}
	return s
}

// Apply applies a single-file unified diff to original.
// Hunks are placed at their declared line when the context matches there;
// otherwise the first match after the previous hunk is used.
func Apply(original, diffText string) (*Result, error) {
	fileDiff, err := diff.ParseFileDiff([]byte(Normalize(diffText)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse unified diff: %w", err)
	}

	res := &Result{
		Created: fileDiff.OrigName == "/dev/null",
		Deleted: fileDiff.NewName == "/dev/null",
	}

	var originalLines []string
	if original != "" {
		originalLines = strings.Split(original, "\n")
	}

	out := make([]string, 0, len(originalLines))
	cur := 0

	for i, hunk := range fileDiff.Hunks {
		lines := hunkLines(hunk.Body)
		want := expectedOriginal(lines)

		start := locate(originalLines, cur, want, int(hunk.OrigStartLine)-1)
		if start < 0 {
			return nil, fmt.Errorf("%w: hunk %d (@@ -%d,%d)", ErrHunkMismatch, i+1, hunk.OrigStartLine, hunk.OrigLines)
		}

		out = append(out, originalLines[cur:start]...)
		cur = start

		for _, line := range lines {
			switch line.op {
			case ' ':
				out = append(out, originalLines[cur])
				cur++
			case '-':
				cur++
				res.Removed++
			case '+':
				out = append(out, line.text)
				res.Added++
			}
		}
	}

	out = append(out, originalLines[cur:]...)

	if res.Deleted {
		res.Content = ""
		return res, nil
	}
	res.Content = strings.Join(out, "\n")
	if res.Created && !strings.HasSuffix(res.Content, "\n") && res.Content != "" {
		res.Content += "\n"
	}
	return res, nil
}

type hunkLine struct {
	op   byte
	text string
}

func hunkLines(body []byte) []hunkLine {
	raw := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
	lines := make([]hunkLine, 0, len(raw))
	for _, l := range raw {
		if l == "" {
			// Blank context lines often lose their leading space.
			lines = append(lines, hunkLine{op: ' '})
			continue
		}
		switch l[0] {
		case ' ', '-', '+':
			lines = append(lines, hunkLine{op: l[0], text: l[1:]})
		case '\\':
			// "\ No newline at end of file"
		default:
			lines = append(lines, hunkLine{op: ' ', text: l})
		}
	}
	return lines
}

func expectedOriginal(lines []hunkLine) []string {
	want := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.op == ' ' || l.op == '-' {
			want = append(want, l.text)
		}
	}
	return want
}

// locate finds where want occurs in lines at or after from, preferring hint.
func locate(lines []string, from int, want []string, hint int) int {
	if len(want) == 0 {
		switch {
		case hint < from:
			return from
		case hint > len(lines):
			return len(lines)
		default:
			return hint
		}
	}
	if hint >= from && matchesAt(lines, hint, want) {
		return hint
	}
	for i := from; i+len(want) <= len(lines); i++ {
		if matchesAt(lines, i, want) {
			return i
		}
	}
	return -1
}

func matchesAt(lines []string, at int, want []string) bool {
	if at < 0 || at+len(want) > len(lines) {
		return false
	}
	for i, w := range want {
		if trimEOL(lines[at+i]) != trimEOL(w) {
			return false
		}
	}
	return true
}

func trimEOL(s string) string {
	return strings.TrimRight(s, " \t\r")
}
