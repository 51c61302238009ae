package adapter

import (
	"net/http"

	"github.com/worldline-go/klient"

	"github.com/deskllm/gateway/internal/catalog"
)

// NewHTTPClient builds the *http.Client a session uses to drive one
// provider record's stream, honoring its proxy and TLS settings. Grounded
// on the teacher's per-provider klient.New wiring
// (internal/service/llm/openai/openai.go, .../antropic/antropic.go).
func NewHTTPClient(rec catalog.Record) (*http.Client, error) {
	opts := []klient.OptionClientFn{
		klient.WithDisableRetry(true),
		klient.WithDisableEnvValues(true),
	}
	if rec.Proxy != "" {
		opts = append(opts, klient.WithProxy(rec.Proxy))
	}
	if rec.InsecureSkipVerify {
		opts = append(opts, klient.WithInsecureSkipVerify(true))
	}

	c, err := klient.New(opts...)
	if err != nil {
		return nil, err
	}
	return c.HTTP, nil
}
