package srt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	blockSepRe = regexp.MustCompile(`\n\s*\n`)
	numericRe  = regexp.MustCompile(`^\d+$`)
)

// ParseError describes a problem found in one block. Dropped is true when the
// block could not be used at all; otherwise the cue was kept.
type ParseError struct {
	Block   int // 1-based block position
	Reason  string
	Dropped bool
}

func (e *ParseError) Error() string {
	if e.Dropped {
		return fmt.Sprintf("block %d dropped: %s", e.Block, e.Reason)
	}
	return fmt.Sprintf("block %d: %s", e.Block, e.Reason)
}

// Parse splits content into cues. Line endings are normalized first. Blocks
// with fewer than three lines are dropped; non-numeric ids are replaced by the
// block's 1-based position; malformed time lines are kept as-is. Every
// anomaly is returned in issues.
func Parse(content string) (cues []Cue, issues []*ParseError) {
	content = NormalizeNewlines(content)
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	blocks := blockSepRe.Split(content, -1)
	cues = make([]Cue, 0, len(blocks))
	for i, block := range blocks {
		pos := i + 1
		lines := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(lines) < 3 {
			issues = append(issues, &ParseError{
				Block:   pos,
				Reason:  fmt.Sprintf("expected id, time range and text, got %d line(s)", len(lines)),
				Dropped: true,
			})
			continue
		}

		id := strings.TrimSpace(lines[0])
		if !numericRe.MatchString(id) {
			issues = append(issues, &ParseError{Block: pos, Reason: fmt.Sprintf("non-numeric id %q replaced", id)})
			id = strconv.Itoa(pos)
		}

		timeLine := strings.TrimSpace(lines[1])
		start, end, ok := ParseTimeRange(timeLine)
		if !ok {
			issues = append(issues, &ParseError{Block: pos, Reason: fmt.Sprintf("malformed time range %q", timeLine)})
		}

		cues = append(cues, Cue{
			ID:          id,
			TimeLine:    timeLine,
			Start:       start,
			End:         end,
			TimingValid: ok,
			Text:        strings.Join(lines[2:], "\n"),
		})
	}
	return cues, issues
}

// NormalizeNewlines converts CRLF and lone CR line endings to LF.
func NormalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
