// Package chat reassembles streamed chat completions into transcript messages.
package chat

import (
	"encoding/json"
	"strings"
)

const (
	dataPrefix  = "data: "
	doneMessage = "[DONE]"
)

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Assembler decodes a server-sent event stream of chat completion deltas.
// Chunks may split lines anywhere; only complete lines are interpreted.
//
// A complete data line that is not valid JSON is pushed back to the front
// of the buffer and stops extraction for the current chunk. If the same line
// still fails on the following chunk it is discarded, so one bad event
// cannot stall the rest of the stream.
type Assembler struct {
	buf     string
	retry   string
	content strings.Builder
	done    bool
	dropped int
}

// Feed consumes the next chunk and reports whether Content changed.
func (a *Assembler) Feed(chunk []byte) bool {
	a.buf += string(chunk)
	retry := a.retry
	a.retry = ""
	changed := false

	for {
		idx := strings.IndexByte(a.buf, '\n')
		if idx < 0 {
			break
		}
		line := a.buf[:idx]
		a.buf = a.buf[idx+1:]
		line = strings.TrimSuffix(line, "\r")

		if strings.HasPrefix(line, ":") || strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		payload := strings.TrimSpace(line[len(dataPrefix):])
		if payload == doneMessage {
			a.done = true
			break
		}

		if !json.Valid([]byte(payload)) {
			if retry != "" && line == retry {
				a.dropped++
				retry = ""
				continue
			}
			a.buf = line + "\n" + a.buf
			a.retry = line
			break
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			// Valid JSON of another shape carries no content.
			continue
		}
		if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == "" {
			continue
		}
		a.content.WriteString(ev.Choices[0].Delta.Content)
		changed = true
	}
	return changed
}

// Content is the assistant message assembled so far.
func (a *Assembler) Content() string { return a.content.String() }

// Done reports whether a [DONE] event has been seen.
func (a *Assembler) Done() bool { return a.done }

// Buffered returns bytes received but not yet interpreted.
func (a *Assembler) Buffered() string { return a.buf }

// Dropped counts data lines discarded after failing to parse twice.
func (a *Assembler) Dropped() int { return a.dropped }
