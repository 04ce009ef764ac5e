package tool

import "strings"

// Every tool that returns structured rows serializes them as
// comma-separated text with a fixed header line. The consumer is a
// language model reading plain text, so the format favors a stable,
// predictable shape over strict RFC 4180 compliance: embedded newlines
// are collapsed to a single space, which is lossy and intentional.

// CSV renders a header row and data rows as comma-separated text. The
// header line is always present, even when rows is empty.
func CSV(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, field := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(csvField(field))
		}
	}
	return b.String()
}

// csvField quote-escapes a single field. Fields containing a comma,
// quote, or newline are wrapped in double quotes with embedded quotes
// doubled; newlines become a single space first.
func csvField(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if strings.ContainsAny(s, ",\"") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
