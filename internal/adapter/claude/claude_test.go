package claude

import (
	"encoding/json"
	"testing"

	"github.com/deskllm/gateway/internal/catalog"
)

// TestBuildRequestScenario mirrors spec §8 scenario 2: header and body
// assertions for the Claude happy path.
func TestBuildRequestScenario(t *testing.T) {
	rec := catalog.Record{
		Kind:       catalog.KindClaude,
		BaseURL:    "https://api.anthropic.com",
		APIKey:     "k",
		Model:      "claude-sonnet-4-20250514",
		APIVersion: "2023-06-01",
	}
	prompts := catalog.PromptPair{System: "You are terse.", User: "hi"}

	req, err := New(nil).BuildRequest(rec, prompts)
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}

	if got := req.Header.Get("anthropic-version"); got != "2023-06-01" {
		t.Fatalf("anthropic-version header = %q, want 2023-06-01", got)
	}
	if got := req.Header.Get("x-api-key"); got != "k" {
		t.Fatalf("x-api-key header = %q", got)
	}
	if req.URL.String() != "https://api.anthropic.com/v1/messages" {
		t.Fatalf("URL = %q", req.URL.String())
	}

	var body map[string]any
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["system"] != "You are terse." {
		t.Fatalf("system = %v, want %q", body["system"], "You are terse.")
	}
	if body["model"] != "claude-sonnet-4-20250514" {
		t.Fatalf("model = %v", body["model"])
	}
	if body["max_tokens"].(float64) != defaultMaxTokens {
		t.Fatalf("max_tokens = %v, want %d", body["max_tokens"], defaultMaxTokens)
	}
}

func TestBuildRequestWithoutSystemPromptOmitsField(t *testing.T) {
	rec := catalog.Record{Kind: catalog.KindClaude, BaseURL: "https://api.anthropic.com", Model: "m", APIVersion: "v1"}
	req, err := New(nil).BuildRequest(rec, catalog.PromptPair{User: "hi"})
	if err != nil {
		t.Fatalf("BuildRequest: %v", err)
	}
	var body map[string]any
	json.NewDecoder(req.Body).Decode(&body)
	if _, ok := body["system"]; ok {
		t.Fatal("system field should be omitted when no system prompt is given")
	}
}

func TestHappyPathScenario(t *testing.T) {
	body := "event: content_block_delta\ndata: {\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n" +
		"event: message_stop\ndata: {}\n\n"

	p := (&Adapter{}).NewParser()
	var deltas []string
	var done bool
	for i := 0; i < len(body); i += 5 {
		end := i + 5
		if end > len(body) {
			end = len(body)
		}
		d, dn, err := p.Feed([]byte(body[i:end]))
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		deltas = append(deltas, d...)
		if dn {
			done = true
		}
	}

	if !done {
		t.Fatal("expected terminal marker")
	}
	if len(deltas) != 1 || deltas[0] != "Hi" {
		t.Fatalf("deltas = %v, want [Hi]", deltas)
	}
}
