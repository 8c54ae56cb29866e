package transport

import (
	"bytes"
	"strings"
)

// errorMarker flags an application-level failure inside a response.
const errorMarker = "ERROR"

// framed reports whether buf already holds the prompt terminator.
func framed(buf []byte, terminator string) bool {
	if terminator == "" {
		return len(buf) > 0
	}
	return bytes.Contains(buf, []byte(terminator))
}

// splitCLI turns a framed ASCII response into its lines.
//
// It strips carriage returns and the terminator, drops blank lines and a
// leading echo of command, and removes the first line containing the error
// marker. errText holds the text after the marker when one was found.
func splitCLI(raw, command, terminator string) (lines []string, errText string, found bool) {
	raw = strings.ReplaceAll(raw, "\r", "")
	if terminator != "" {
		raw = strings.ReplaceAll(raw, terminator, "")
	}
	lines = splitLines(raw)
	if len(lines) > 0 && lines[0] == strings.TrimSpace(command) {
		lines = lines[1:]
	}

	out := lines[:0]
	for _, line := range lines {
		if !found {
			if text, ok := ErrorText(line); ok {
				errText, found = text, true
				continue
			}
		}
		out = append(out, line)
	}
	return out, errText, found
}

// splitLines splits on newline, right-trims each line and drops empty ones.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ErrorText extracts the reason from a line containing the error marker.
//
// "ERROR: bad arg" yields ("bad arg", true). A bare marker yields
// ("ERROR", true). Lines without the marker yield ("", false).
func ErrorText(line string) (string, bool) {
	i := strings.Index(line, errorMarker)
	if i < 0 {
		return "", false
	}
	text := strings.TrimSpace(line[i+len(errorMarker):])
	text = strings.TrimSpace(strings.TrimPrefix(text, ":"))
	if text == "" {
		return errorMarker, true
	}
	return text, true
}
