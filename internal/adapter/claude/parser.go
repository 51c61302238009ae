package claude

import (
	"encoding/json"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

// maxFrameBytes mirrors the teacher's 10MiB scanner.Buffer cap.
const maxFrameBytes = 10 * 1024 * 1024

// Parser is a resumable incremental SSE parser for Anthropic's Messages
// stream (spec §4.3.2/§4.3.4): "event: <name>" then "data: <json>" pairs
// separated by blank lines.
type Parser struct {
	buf         []byte
	pendingType string
	done        bool
}

type contentBlockDelta struct {
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

type errorEvent struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
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

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "event:"):
			p.pendingType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			d, isDone, derr := p.handleEvent(p.pendingType, data)
			if d != "" {
				deltas = append(deltas, d)
			}
			if derr != nil {
				p.done = true
				return deltas, true, derr
			}
			if isDone {
				p.done = true
				return deltas, true, nil
			}
		default:
			// Ignore SSE comments and any other line kind.
		}
	}

	if len(p.buf) > maxFrameBytes {
		return deltas, false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "SSE frame exceeded maximum buffered size"}
	}

	return deltas, false, nil
}

func (p *Parser) handleEvent(eventType, data string) (delta string, done bool, err error) {
	switch eventType {
	case "content_block_delta":
		var ev contentBlockDelta
		if jerr := json.Unmarshal([]byte(data), &ev); jerr != nil {
			return "", false, &catalog.Error{Kind: catalog.ErrProtocolError, Message: "malformed content_block_delta: " + jerr.Error()}
		}
		if ev.Delta.Type == "text_delta" {
			return ev.Delta.Text, false, nil
		}
		return "", false, nil
	case "message_stop":
		return "", true, nil
	case "error":
		var ev errorEvent
		if jerr := json.Unmarshal([]byte(data), &ev); jerr != nil {
			return "", true, &catalog.Error{Kind: catalog.ErrProviderError, Message: "anthropic stream error"}
		}
		return "", true, &catalog.Error{Kind: catalog.ErrProviderError, Message: ev.Error.Message}
	default:
		return "", false, nil
	}
}

func (p *Parser) Close() error {
	if p.done {
		return nil
	}
	return &catalog.Error{Kind: catalog.ErrUnexpectedEnd, Message: "stream closed before message_stop"}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
