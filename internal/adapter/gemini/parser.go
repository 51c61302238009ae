package gemini

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

// maxFrameBytes mirrors the teacher's 10MiB scanner.Buffer cap.
const maxFrameBytes = 10 * 1024 * 1024

type mode int

const (
	modeUnknown mode = iota
	modeSSE
	modeRawJSON
)

// generateContentChunk is the shape of one streamGenerateContent payload,
// in either framing (spec §4.3.3).
type generateContentChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Parser is a resumable incremental parser for Gemini's two possible
// framings: SSE "data:" lines, or a bare stream of concatenated JSON
// objects (spec §4.3.3/§4.3.4). The framing is detected from the first
// non-whitespace byte seen.
type Parser struct {
	buf  []byte
	mode mode
	done bool
}

func (p *Parser) Feed(chunk []byte) (deltas []string, done bool, err error) {
	if p.done {
		return nil, true, nil
	}

	p.buf = append(p.buf, chunk...)

	if p.mode == modeUnknown {
		trimmed := bytes.TrimLeft(p.buf, " \t\r\n")
		if len(trimmed) == 0 {
			return nil, false, nil
		}
		if trimmed[0] == '{' {
			p.mode = modeRawJSON
		} else {
			p.mode = modeSSE
		}
	}

	if p.mode == modeRawJSON {
		return p.feedRawJSON()
	}
	return p.feedSSE()
}

func (p *Parser) feedSSE() (deltas []string, done bool, err error) {
	for {
		idx := indexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(string(p.buf[:idx]), "\r")
		p.buf = p.buf[idx+1:]

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")

		d, isDone, derr := decodeChunk(data)
		deltas = append(deltas, d...)
		if derr != nil {
			p.done = true
			return deltas, true, derr
		}
		if isDone {
			p.done = true
			return deltas, true, nil
		}
	}

	if len(p.buf) > maxFrameBytes {
		return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "SSE frame exceeded maximum buffered size"}
	}
	return deltas, false, nil
}

func (p *Parser) feedRawJSON() (deltas []string, done bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(p.buf))
	for {
		var raw json.RawMessage
		startOffset := dec.InputOffset()
		if derr := dec.Decode(&raw); derr != nil {
			if errors.Is(derr, io.EOF) {
				break
			}
			// An incomplete trailing value looks like an unexpected-EOF
			// class error from encoding/json; wait for more bytes rather
			// than treating it as malformed.
			if isIncompleteJSON(derr) {
				break
			}
			p.buf = p.buf[startOffset:]
			return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "malformed JSON fragment: " + derr.Error()}
		}

		d, isDone, derr := decodeChunk(string(raw))
		deltas = append(deltas, d...)
		if derr != nil {
			p.done = true
			p.buf = nil
			return deltas, true, derr
		}
		if isDone {
			p.done = true
			p.buf = nil
			return deltas, true, nil
		}
	}

	consumed := dec.InputOffset()
	p.buf = p.buf[consumed:]

	if len(p.buf) > maxFrameBytes {
		return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "JSON fragment exceeded maximum buffered size"}
	}
	return deltas, false, nil
}

// isIncompleteJSON reports whether err indicates the decoder ran out of
// bytes mid-value rather than encountering a malformed document.
func isIncompleteJSON(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || err.Error() == "unexpected EOF"
}

func decodeChunk(data string) (deltas []string, done bool, err error) {
	var chunk generateContentChunk
	if jerr := json.Unmarshal([]byte(data), &chunk); jerr != nil {
		return nil, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "malformed candidate chunk: " + jerr.Error()}
	}
	if len(chunk.Candidates) == 0 {
		return nil, false, nil
	}
	cand := chunk.Candidates[0]
	for _, part := range cand.Content.Parts {
		if part.Text != "" {
			deltas = append(deltas, part.Text)
		}
	}
	if cand.FinishReason != "" {
		return deltas, true, nil
	}
	return deltas, false, nil
}

// Close handles the HTTP body closing cleanly, which for Gemini is itself
// a valid terminal marker (spec §4.3.3: "HTTP body closing" ends a
// stream) unless we're mid-frame.
func (p *Parser) Close() error {
	if p.done {
		return nil
	}
	if len(bytes.TrimSpace(p.buf)) == 0 {
		// Clean close with no partial frame counts as the terminal marker.
		return nil
	}
	return &catalog.Error{Kind: catalog.ErrUnexpectedEnd, Message: "stream closed with unterminated trailing data"}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
