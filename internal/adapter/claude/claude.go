// Package claude implements the Anthropic Messages protocol adapter (spec
// §4.3.2). Grounded on the teacher's
// internal/service/llm/antropic/antropic.go, trimmed to the
// build-request/parse-frame contract: no non-streaming Chat, no tool-use
// accumulation.
package claude

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

const defaultMaxTokens = 4096

type Adapter struct {
	client *http.Client
}

func New(client *http.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	body := map[string]any{
		"model":      rec.Model,
		"stream":     true,
		"max_tokens": defaultMaxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompts.User},
		},
	}
	if prompts.System != "" {
		body["system"] = prompts.System
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "marshal request body: " + err.Error()}
	}

	url := strings.TrimRight(rec.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "build request: " + err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", rec.APIKey)
	req.Header.Set("anthropic-version", rec.APIVersion)
	for k, v := range rec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (a *Adapter) NewParser() *Parser { return &Parser{} }
