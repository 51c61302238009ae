// Package openai implements the OpenAI-compatible protocol adapter (spec
// §4.3.1): chat-completions SSE streaming, shared by OpenAI itself and any
// OpenAI-shaped endpoint (DeepSeek, Moonshot, Ollama, vLLM, etc. — those
// are configuration, not distinct provider kinds).
//
// Grounded on the teacher's internal/service/llm/openai/openai.go, trimmed
// to the build-request/parse-frame contract this spec needs: no
// non-streaming Chat, no tool calls, no reverse-proxy passthrough.
package openai

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

type Adapter struct {
	client *http.Client
}

// New returns the OpenAI-compatible adapter bound to client.
func New(client *http.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	messages := make([]map[string]string, 0, 2)
	if prompts.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": prompts.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompts.User})

	body := map[string]any{
		"model":    rec.Model,
		"stream":   true,
		"messages": messages,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "marshal request body: " + err.Error()}
	}

	url := strings.TrimRight(rec.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "build request: " + err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if rec.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+rec.APIKey)
	}
	for k, v := range rec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (a *Adapter) NewParser() *Parser { return &Parser{} }

// streamChoice mirrors the teacher's streamChoice/streamDelta/streamResponse
// shapes (internal/service/llm/openai/openai.go), trimmed to content +
// finish_reason.
type streamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type streamResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []streamChoice `json:"choices"`
}
