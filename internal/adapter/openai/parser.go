package openai

import (
	"encoding/json"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

// maxFrameBytes mirrors the teacher's 10MiB scanner.Buffer cap, applied
// here to a single buffered (unterminated) line.
const maxFrameBytes = 10 * 1024 * 1024

// Parser is a resumable incremental SSE parser for the OpenAI
// chat-completions stream (spec §4.3.1/§4.3.4): data lines terminated by a
// blank line, [DONE] sentinel, JSON payload of
// {choices:[{delta:{content},finish_reason}]}.
type Parser struct {
	buf  []byte
	done bool
}

func (p *Parser) Feed(chunk []byte) (deltas []string, done bool, err error) {
	if p.done {
		return nil, true, nil
	}

	p.buf = append(p.buf, chunk...)

	for {
		idx := indexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(string(p.buf[:idx]), "\r")
		p.buf = p.buf[idx+1:]

		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") && !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")

		if data == "[DONE]" {
			p.done = true
			return deltas, true, nil
		}

		var sr streamResponse
		if jerr := json.Unmarshal([]byte(data), &sr); jerr != nil {
			return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "malformed SSE data frame: " + jerr.Error()}
		}
		if sr.Error != nil {
			p.done = true
			return deltas, true, &catalog.Error{Kind: catalog.ErrProviderError, Message: sr.Error.Message}
		}
		if len(sr.Choices) == 0 {
			continue
		}
		choice := sr.Choices[0]
		if choice.Delta.Content != "" {
			deltas = append(deltas, choice.Delta.Content)
		}
		if choice.FinishReason != nil {
			p.done = true
			return deltas, true, nil
		}
	}

	if len(p.buf) > maxFrameBytes {
		return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "SSE frame exceeded maximum buffered size"}
	}

	return deltas, false, nil
}

func (p *Parser) Close() error {
	if p.done {
		return nil
	}
	if len(p.buf) == 0 {
		return &catalog.Error{Kind: catalog.ErrUnexpectedEnd, Message: "stream closed before terminal marker"}
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
