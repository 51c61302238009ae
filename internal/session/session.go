// Package session implements the Stream Session (spec §4.4): the per-request
// driver that issues one provider's streaming HTTP call, feeds the response
// body through the selected adapter's incremental parser, and publishes
// normalized events on the Event Bus until a terminal marker, an error, or a
// cancellation ends it.
//
// Grounded on the teacher's internal/service/llm/openai/openai.go streaming
// goroutine (klient.HTTP.Do, status check, incremental body read), adapted
// from the teacher's own buffered-channel-of-chunks shape to publishing
// catalog.Event values on a shared bus.Bus keyed by stream_id.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/deskllm/gateway/internal/adapter"
	"github.com/deskllm/gateway/internal/bus"
	"github.com/deskllm/gateway/internal/catalog"
)

// readChunkSize is the buffer size for each incremental body read, chosen to
// exercise the arbitrary-byte-split parser property (spec §8) rather than
// reading whole lines at once.
const readChunkSize = 4096

// maxErrorExcerpt bounds how much of a non-2xx response body is captured
// into a ProviderError event (spec §4.4 step 2: "a few kilobytes").
const maxErrorExcerpt = 4 * 1024

// Session drives one streaming request from Starting to Terminal.
type Session struct {
	id      catalog.StreamID
	ad      adapter.Adapter
	client  *http.Client
	bus     *bus.Bus
	cancel  context.CancelFunc
	ctx     context.Context
}

// New constructs a Session bound to id, publishing onto b, using ad to build
// the request and parse the response, over client. The session's
// cancellation is triggered via Cancel.
func New(id catalog.StreamID, ad adapter.Adapter, client *http.Client, b *bus.Bus) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{id: id, ad: ad, client: client, bus: b, ctx: ctx, cancel: cancel}
}

// Cancel signals the driver loop to stop at its next read or yield.
// Idempotent (spec §5 Cancellation).
func (s *Session) Cancel() {
	s.cancel()
}

// Run executes the driver loop (spec §4.4) to completion. It never returns
// an error itself; all outcomes are reported as published events. Run
// blocks until the session reaches Terminal or is cancelled, so callers
// spawn it as its own goroutine.
func (s *Session) Run(rec catalog.Record, prompts catalog.PromptPair) {
	req, err := s.ad.BuildRequest(rec, prompts)
	if err != nil {
		s.publishError(err)
		return
	}
	req = req.WithContext(s.ctx)

	resp, err := s.client.Do(req)
	if err != nil {
		if s.ctx.Err() != nil {
			return // cancelled before or during connect: silent (spec §5)
		}
		s.publishError(&catalog.Error{Kind: catalog.ErrNetworkError, Message: err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorExcerpt))
		s.publish(catalog.Event{
			StreamID: s.id,
			Done:     true,
			Error: (&catalog.Error{
				Kind:        catalog.ErrProviderError,
				Message:     fmt.Sprintf("upstream returned HTTP %d (content-type %q): %s", resp.StatusCode, resp.Header.Get("Content-Type"), excerpt),
				Status:      resp.StatusCode,
				Excerpt:     string(excerpt),
				ContentType: resp.Header.Get("Content-Type"),
			}).Error(),
		})
		return
	}

	parser := s.ad.NewParser()
	buf := make([]byte, readChunkSize)

	for {
		if s.ctx.Err() != nil {
			return // cancelled mid-stream: silent, no terminal event
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			deltas, done, perr := parser.Feed(buf[:n])
			for _, d := range deltas {
				if d == "" {
					continue
				}
				s.publish(catalog.Event{StreamID: s.id, Delta: d})
			}
			if perr != nil {
				s.publish(catalog.Event{StreamID: s.id, Done: true, Error: perr.Error()})
				return
			}
			if done {
				s.publish(catalog.Event{StreamID: s.id, Done: true})
				return
			}
		}

		if readErr != nil {
			if s.ctx.Err() != nil {
				return // body closed by our own cancel: silent
			}
			if readErr == io.EOF {
				if cerr := parser.Close(); cerr != nil {
					s.publish(catalog.Event{StreamID: s.id, Done: true, Error: cerr.Error()})
					return
				}
				s.publish(catalog.Event{StreamID: s.id, Done: true})
				return
			}
			s.publishError(&catalog.Error{Kind: catalog.ErrNetworkError, Message: readErr.Error()})
			return
		}
	}
}

func (s *Session) publish(ev catalog.Event) {
	s.bus.Publish(ev)
}

func (s *Session) publishError(err error) {
	s.bus.Publish(catalog.Event{StreamID: s.id, Done: true, Error: err.Error()})
}
