// Package sse implements an incremental Server-Sent-Events parser over
// arbitrarily chunked bytes, plus the decoder that maps SSE records onto
// typed StreamEvents for the Anthropic Messages API wire dialect.
package sse

import "bytes"

// Event is a single SSE record: an optional event-type and its joined data.
type Event struct {
	EventType string
	Data      string
}

// Parser accumulates chunked bytes and yields complete SSE records. The
// buffer holds raw bytes (not a string) so that a multi-byte UTF-8
// sequence split across two Feed calls is never decoded prematurely —
// only the ASCII "\n\n" record separator is used to detect block
// boundaries, so no partial codepoint is ever handed to the caller.
type Parser struct {
	buf []byte
}

// NewParser creates an empty incremental parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the internal buffer and returns any complete
// records it now contains. Incomplete trailing content is retained for
// the next call.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.Index(p.buf, []byte("\n\n"))
		if idx < 0 {
			break
		}
		block := p.buf[:idx]
		p.buf = p.buf[idx+2:]

		if ev, ok := parseBlock(block); ok {
			events = append(events, ev)
		}
	}
	return events
}

// parseBlock parses the lines of one record (already split on the
// terminating blank line). Records with no data field are discarded.
func parseBlock(block []byte) (Event, bool) {
	var eventType string
	var dataLines []string

	for _, line := range bytes.Split(block, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 {
			continue
		}
		if line[0] == ':' {
			continue // comment
		}

		field, value, hasColon := cut(line)
		if !hasColon {
			if string(line) == "data" {
				dataLines = append(dataLines, "")
			}
			continue
		}

		value = bytes.TrimPrefix(value, []byte(" "))
		switch string(field) {
		case "event":
			eventType = string(value) // last wins
		case "data":
			dataLines = append(dataLines, string(value))
		default:
			// unrecognised field, ignored
		}
	}

	if len(dataLines) == 0 {
		return Event{}, false
	}

	return Event{EventType: eventType, Data: joinLines(dataLines)}, true
}

func cut(line []byte) (field, value []byte, ok bool) {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return line, nil, false
	}
	return line[:idx], line[idx+1:], true
}

func joinLines(lines []string) string {
	if len(lines) == 1 {
		return lines[0]
	}
	total := len(lines) - 1
	for _, l := range lines {
		total += len(l)
	}
	buf := make([]byte, 0, total)
	for i, l := range lines {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, l...)
	}
	return string(buf)
}
