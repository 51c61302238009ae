// Package gemini implements the Google generative-language protocol
// adapter (spec §4.3.3): streamGenerateContent over SSE, with a fallback
// to a concatenated-JSON-object framing for deployments that don't honor
// alt=sse. Grounded on the teacher's internal/service/llm/gemini/gemini.go,
// trimmed to the build-request/parse-frame contract: no tool calls, no
// inline-image/file part handling.
package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/deskllm/gateway/internal/catalog"
)

type Adapter struct {
	client *http.Client
}

func New(client *http.Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) BuildRequest(rec catalog.Record, prompts catalog.PromptPair) (*http.Request, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]string{
					{"text": prompts.User},
				},
			},
		},
	}
	if prompts.System != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": prompts.System}},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "marshal request body: " + err.Error()}
	}

	base := strings.TrimRight(rec.BaseURL, "/")
	path := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent", base, url.PathEscape(rec.Model))

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "build request: " + err.Error()}
	}

	q := req.URL.Query()
	q.Set("alt", "sse")
	q.Set("key", rec.APIKey)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Content-Type", "application/json")
	for k, v := range rec.ExtraHeaders {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (a *Adapter) NewParser() *Parser { return &Parser{} }
