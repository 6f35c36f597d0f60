// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import "testing"

func TestParserSingleFrame(t *testing.T) {
	var p parser
	frames := p.feed([]byte("event:PB_CONNECT\ndata:{\"clientId\":\"abc\"}\n\n"))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].event != "PB_CONNECT" {
		t.Errorf("event = %q, want PB_CONNECT", frames[0].event)
	}
	if frames[0].data != `{"clientId":"abc"}` {
		t.Errorf("data = %q", frames[0].data)
	}
}

func TestParserArbitraryChunkBoundaries(t *testing.T) {
	// The same frame must come out whole no matter where the network
	// splits the bytes.
	wire := "event:PB_CONNECT\ndata:{\"clientId\":\"abc\"}\n\n"

	for split := 0; split <= len(wire); split++ {
		var p parser
		frames := p.feed([]byte(wire[:split]))
		frames = append(frames, p.feed([]byte(wire[split:]))...)

		if len(frames) != 1 {
			t.Fatalf("split %d: expected 1 frame, got %d", split, len(frames))
		}
		if frames[0].event != "PB_CONNECT" || frames[0].data != `{"clientId":"abc"}` {
			t.Errorf("split %d: got frame %+v", split, frames[0])
		}
	}
}

func TestParserByteAtATime(t *testing.T) {
	wire := "id:42\nevent:polls\ndata:{\"action\":\"update\"}\n\nevent:votes\ndata:{}\n\n"

	var p parser
	var frames []frame
	for i := 0; i < len(wire); i++ {
		frames = append(frames, p.feed([]byte{wire[i]})...)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].id != "42" || frames[0].event != "polls" {
		t.Errorf("first frame = %+v", frames[0])
	}
	if frames[1].event != "votes" || frames[1].data != "{}" {
		t.Errorf("second frame = %+v", frames[1])
	}
}

func TestParserMultipleDataLines(t *testing.T) {
	var p parser
	frames := p.feed([]byte("data:line one\ndata:line two\n\n"))

	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].data != "line one\nline two" {
		t.Errorf("data = %q, want joined lines", frames[0].data)
	}
}

func TestParserIgnoresEmptyBlocks(t *testing.T) {
	var p parser

	// Blank separators and comment-only blocks carry no fields.
	if frames := p.feed([]byte("\n\n\n\n:keepalive\n\n")); len(frames) != 0 {
		t.Errorf("expected no frames from empty blocks, got %d", len(frames))
	}

	// Partial frame stays buffered.
	if frames := p.feed([]byte("event:polls\ndata:{}")); len(frames) != 0 {
		t.Errorf("incomplete frame leaked: %d", len(frames))
	}
	if frames := p.feed([]byte("\n\n")); len(frames) != 1 {
		t.Errorf("expected buffered frame to complete, got %d", len(frames))
	}
}
