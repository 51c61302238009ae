// Package catalog holds the typed provider catalogue: the closed set of
// provider kinds, the provider records that make up a catalogue, and the
// normalized shapes that flow between adapters, sessions and the event bus.
package catalog

import "github.com/google/uuid"

// Kind is the closed enumeration of wire-protocol families a provider
// record can select. Additional vendors (DeepSeek, Moonshot, Ollama, any
// custom OpenAI-shaped endpoint) are expressed as KindOpenAI with a
// different BaseURL and Model — they are not distinct kinds.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindClaude Kind = "claude"
	KindGemini Kind = "gemini"
)

// Valid reports whether k is one of the three closed variants.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenAI, KindClaude, KindGemini:
		return true
	default:
		return false
	}
}

// Record is one entry in the catalogue (spec §3 ProviderRecord).
type Record struct {
	Kind    Kind   `json:"kind"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`

	// ContextWindow is advisory; carried but never enforced.
	ContextWindow int `json:"context_window,omitempty"`

	// APIVersion is required iff Kind == KindClaude; sent as the
	// anthropic-version header.
	APIVersion string `json:"api_version,omitempty"`

	// ExtraHeaders are sent verbatim on every outbound request for this
	// provider (supplemental feature, SPEC_FULL §3).
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`

	// Proxy is an optional HTTP/HTTPS/SOCKS5 proxy URL.
	Proxy string `json:"proxy,omitempty"`

	// InsecureSkipVerify disables TLS certificate verification; for
	// self-signed local endpoints.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`

	// Extras preserves unknown on-disk keys for this provider's table so
	// they survive a load/save round-trip untouched.
	Extras map[string]any `json:"-"`
}

// Validate checks the invariants from spec §3: base_url is an absolute
// http/https URL, and Claude records carry a non-empty api_version.
func (r Record) Validate() error {
	if !r.Kind.Valid() {
		return newErr(ErrInvalidConfig, "unknown provider kind %q", r.Kind)
	}
	if err := validateBaseURL(r.BaseURL); err != nil {
		return newErr(ErrInvalidConfig, "base_url: %v", err)
	}
	if r.Model == "" {
		return newErr(ErrInvalidConfig, "model is required")
	}
	if r.Kind == KindClaude && r.APIVersion == "" {
		return newErr(ErrInvalidConfig, "api_version is required for claude providers")
	}
	return nil
}

// AppConfig is the catalogue: a default provider name plus the named map
// of provider records (spec §3 AppConfig).
type AppConfig struct {
	Default   string            `json:"default"`
	Providers map[string]Record `json:"providers"`

	// Extras preserves unknown top-level on-disk keys.
	Extras map[string]any `json:"-"`
}

// Validate checks that Default names an existing provider and that the
// catalogue is non-empty.
func (c AppConfig) Validate() error {
	if len(c.Providers) == 0 {
		return newErr(ErrConfigInvalid, "providers must not be empty")
	}
	if c.Default == "" {
		return newErr(ErrConfigInvalid, "default must not be empty")
	}
	if _, ok := c.Providers[c.Default]; !ok {
		return newErr(ErrConfigInvalid, "default provider %q not in providers", c.Default)
	}
	for name, rec := range c.Providers {
		if err := rec.Validate(); err != nil {
			return newErr(ErrConfigInvalid, "provider %q: %v", name, err)
		}
	}
	return nil
}

// Clone returns a copy whose Providers, ExtraHeaders and Extras maps are
// fresh, so mutating them does not affect c. Values nested inside an Extras
// entry (such as a sub-table) are shared, not copied.
func (c AppConfig) Clone() AppConfig {
	out := AppConfig{
		Default:   c.Default,
		Providers: make(map[string]Record, len(c.Providers)),
		Extras:    cloneMap(c.Extras),
	}
	for name, rec := range c.Providers {
		out.Providers[name] = rec.clone()
	}
	return out
}

func (r Record) clone() Record {
	out := r
	if r.ExtraHeaders != nil {
		out.ExtraHeaders = make(map[string]string, len(r.ExtraHeaders))
		for k, v := range r.ExtraHeaders {
			out.ExtraHeaders[k] = v
		}
	}
	out.Extras = cloneMap(r.Extras)
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// PromptPair is the free-form user/system prompt pair fed to a session.
type PromptPair struct {
	User   string
	System string
}

// StreamID is a freshly minted, globally unique identifier produced at
// start_stream time. It is the sole correlator between Event Bus messages
// and the request that created them.
type StreamID string

// NewStreamID mints a fresh, pairwise-distinct stream identifier.
func NewStreamID() StreamID {
	return StreamID(uuid.NewString())
}

// Event is the uniform shape carried on the llm-stream event bus
// (spec §3 NormalizedEvent).
type Event struct {
	StreamID StreamID `json:"stream_id"`
	Delta    string   `json:"delta"`
	Done     bool     `json:"done"`
	Error    string   `json:"error,omitempty"`
}
