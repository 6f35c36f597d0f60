// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"bytes"
	"strings"
)

// frame is one complete event block off the wire: any subset of event:,
// data:, and id: lines, terminated by a blank line.
type frame struct {
	event string
	id    string
	data  string
}

// parser reassembles frames from a byte stream that arrives in arbitrary
// chunks. Bytes are appended to a growing buffer; every time the buffer
// contains a double newline, the prefix is cut off and parsed as one frame.
type parser struct {
	buf []byte
}

var frameSep = []byte("\n\n")

// feed appends chunk and returns every frame that completed.
func (p *parser) feed(chunk []byte) []frame {
	p.buf = append(p.buf, chunk...)

	var frames []frame
	for {
		idx := bytes.Index(p.buf, frameSep)
		if idx < 0 {
			return frames
		}
		block := string(p.buf[:idx])
		p.buf = p.buf[idx+len(frameSep):]

		if f, ok := parseBlock(block); ok {
			frames = append(frames, f)
		}
	}
}

// parseBlock splits one block into its event/data/id lines. Lines with any
// other prefix are ignored. Multiple data lines join with a newline.
func parseBlock(block string) (frame, bool) {
	var f frame
	var dataLines []string
	seenData := false

	for _, line := range strings.Split(block, "\n") {
		switch {
		case strings.HasPrefix(line, "event:"):
			f.event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			seenData = true
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		case strings.HasPrefix(line, "id:"):
			f.id = strings.TrimSpace(line[len("id:"):])
		}
	}

	f.data = strings.Join(dataLines, "\n")
	return f, f.event != "" || seenData || f.id != ""
}
