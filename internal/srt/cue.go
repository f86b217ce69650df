// Package srt parses and serializes SubRip subtitle content.
//
// Parsing is tolerant: blocks that are structurally unusable are dropped and
// reported as ParseError values, while malformed time lines are kept verbatim
// so the formatter can write them back unchanged.
package srt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// timeLineRe matches a well-formed `HH:MM:SS,mmm --> HH:MM:SS,mmm` line.
var timeLineRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3}) --> (\d{2}:\d{2}:\d{2},\d{3})$`)

// Cue is one timestamped subtitle entry.
type Cue struct {
	ID string
	// TimeLine holds the time range exactly as read, so malformed lines
	// survive a parse/format round trip.
	TimeLine string
	Start    time.Duration
	End      time.Duration
	// TimingValid reports whether TimeLine matched the SRT time-range form.
	TimingValid bool
	Text        string
}

// NewCue builds a cue from parsed timing values.
func NewCue(id string, start, end time.Duration, text string) Cue {
	return Cue{
		ID:          id,
		TimeLine:    FormatTimeRange(start, end),
		Start:       start,
		End:         end,
		TimingValid: true,
		Text:        text,
	}
}

// WithText returns a copy of c carrying text instead of its own.
func (c Cue) WithText(text string) Cue {
	c.Text = text
	return c
}

// ParseTimeRange parses a `start --> end` line. ok is false when the line does
// not have the canonical form.
func ParseTimeRange(line string) (start, end time.Duration, ok bool) {
	m := timeLineRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, 0, false
	}
	start, err := ParseTimestamp(m[1])
	if err != nil {
		return 0, 0, false
	}
	end, err = ParseTimestamp(m[2])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// ParseTimestamp converts `HH:MM:SS,mmm` into a duration. A period is
// accepted in place of the comma.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || millis > 999 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// FormatTimestamp renders d as `HH:MM:SS,mmm`. Negative values clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	secs := (ms % 60_000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// FormatTimeRange renders a time-range line.
func FormatTimeRange(start, end time.Duration) string {
	return FormatTimestamp(start) + " --> " + FormatTimestamp(end)
}
