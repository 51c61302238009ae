// Package adapter holds the stateless protocol adapters: one per provider
// kind, each translating a catalog.Record plus a catalog.PromptPair to an
// outbound HTTP request, and parsing that provider's streaming frame format
// into normalized deltas (spec §4.3).
package adapter

import (
	"net/http"

	"github.com/deskllm/gateway/internal/adapter/claude"
	"github.com/deskllm/gateway/internal/adapter/gemini"
	"github.com/deskllm/gateway/internal/adapter/openai"
	"github.com/deskllm/gateway/internal/catalog"
)

// Adapter is the pair of capabilities spec §4.3 assigns to every provider
// family: build-request and parse-frame. Adapters are stateless; all
// per-stream state lives in the Parser returned by NewParser.
type Adapter interface {
	// BuildRequest constructs the outbound streaming HTTP request for rec
	// and prompts. It never performs I/O itself.
	BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error)

	// NewParser returns a fresh, stateful incremental parser for one
	// stream. Parsers are not safe for concurrent use and are never reused
	// across sessions.
	NewParser() Parser
}

// Parser is a resumable incremental parser (spec §4.3.4): it accepts
// appended bytes, emits zero or more completed deltas, and retains a
// residual buffer for incomplete frames.
type Parser interface {
	// Feed appends chunk to the residual buffer and extracts as many
	// complete frames as are available. deltas is empty when chunk
	// contained no complete content frame. done is true once a terminal
	// marker has been seen. err is non-nil for a malformed, fully-delimited
	// frame or an unterminated frame over the buffer cap
	// (catalog.ErrProtocolError), and for an error frame sent by the
	// provider (catalog.ErrProviderError, returned with done true).
	Feed(chunk []byte) (deltas []string, done bool, err error)

	// Close is called when the HTTP body closes. If a terminal marker was
	// already seen, a non-empty trailing residual is discarded silently.
	// Otherwise it returns catalog.ErrUnexpectedEnd, except that the Gemini
	// parser treats a clean close with no partial frame buffered as its
	// terminal marker and returns nil.
	Close() error
}

// Select returns the stateless Adapter for kind, bound to client (built by
// the caller, e.g. with NewHTTPClient).
func Select(kind catalog.Kind, client *http.Client) (Adapter, error) {
	switch kind {
	case catalog.KindOpenAI:
		return newOpenAI(client), nil
	case catalog.KindClaude:
		return newClaude(client), nil
	case catalog.KindGemini:
		return newGemini(client), nil
	default:
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "unknown provider kind " + string(kind)}
	}
}

// The concrete per-package Adapter types (openai.Adapter, claude.Adapter,
// gemini.Adapter) each satisfy this package's Adapter contract structurally
// except for NewParser's return type, which Go's interface rules treat as a
// distinct method signature. These thin wrappers bridge that gap without
// forcing the subpackages to import this package (which would cycle, since
// this package imports them).

type openaiAdapter struct{ inner *openai.Adapter }

func newOpenAI(client *http.Client) Adapter { return openaiAdapter{inner: openai.New(client)} }

func (a openaiAdapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	return a.inner.BuildRequest(rec, prompts)
}

func (a openaiAdapter) NewParser() Parser { return a.inner.NewParser() }

type claudeAdapter struct{ inner *claude.Adapter }

func newClaude(client *http.Client) Adapter { return claudeAdapter{inner: claude.New(client)} }

func (a claudeAdapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	return a.inner.BuildRequest(rec, prompts)
}

func (a claudeAdapter) NewParser() Parser { return a.inner.NewParser() }

type geminiAdapter struct{ inner *gemini.Adapter }

func newGemini(client *http.Client) Adapter { return geminiAdapter{inner: gemini.New(client)} }

func (a geminiAdapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	return a.inner.BuildRequest(rec, prompts)
}

func (a geminiAdapter) NewParser() Parser { return a.inner.NewParser() }
