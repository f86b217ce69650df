package srt

import (
	"path/filepath"
	"strings"
)

// Format serializes cues: id, time line and text joined by single newlines,
// one blank line between cues.
func Format(cues []Cue) string {
	var sb strings.Builder
	for i, c := range cues {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		timeLine := c.TimeLine
		if timeLine == "" {
			timeLine = FormatTimeRange(c.Start, c.End)
		}
		sb.WriteString(c.ID)
		sb.WriteByte('\n')
		sb.WriteString(timeLine)
		sb.WriteByte('\n')
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// OutputPath derives the translated file path by inserting the language
// marker before the extension: movie.en.srt -> movie.en.vi.srt.
func OutputPath(input, lang string) string {
	if lang == "" {
		lang = "vi"
	}
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	if ext == "" {
		ext = ".srt"
	}
	return base + "." + lang + ext
}
