package dispatcher

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/deskllm/gateway/internal/bus"
	"github.com/deskllm/gateway/internal/catalog"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	store := catalog.NewStore(filepath.Join(t.TempDir(), "catalogue.toml"))
	return New(store, bus.New())
}

func TestStartStreamRejectsInvalidRecordBeforeAnyNetworkIO(t *testing.T) {
	calledNetwork := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calledNetwork = true
	}))
	defer srv.Close()

	d := newTestDispatcher(t)
	rec := catalog.Record{Kind: catalog.KindClaude, BaseURL: srv.URL, Model: "claude-3"} // missing APIVersion

	_, err := d.StartStream(rec, catalog.PromptPair{User: "hi"})
	if err == nil {
		t.Fatal("expected a validation error for a record missing api_version")
	}
	kind, _ := catalog.KindOf(err)
	if kind != catalog.ErrInvalidConfig {
		t.Fatalf("error kind = %v, want %v", kind, catalog.ErrInvalidConfig)
	}
	if calledNetwork {
		t.Fatal("invalid record should never reach the network")
	}
}

func TestStartStreamPublishesEventsOnTheSharedBus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	d := newTestDispatcher(t)
	_, events := d.Bus().Subscribe()

	id, err := d.StartStream(catalog.Record{Kind: catalog.KindOpenAI, BaseURL: srv.URL, Model: "gpt-4o"}, catalog.PromptPair{User: "hi"})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.StreamID != id {
				t.Fatalf("event stream id = %q, want %q", ev.StreamID, id)
			}
			if ev.Done {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for a terminal event")
		}
	}
}

func TestCancelStreamOnUnknownIDIsANoOp(t *testing.T) {
	d := newTestDispatcher(t)
	d.CancelStream("does-not-exist") // must not panic
}

func TestTestConnectionSucceedsAgainstAHealthyEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"pong\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	d := newTestDispatcher(t)
	err := d.TestConnection(catalog.Record{Kind: catalog.KindOpenAI, BaseURL: srv.URL, Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
}

func TestTestConnectionDoesNotLeakOntoTheSharedBus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"pong\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	d := newTestDispatcher(t)
	_, events := d.Bus().Subscribe()

	if err := d.TestConnection(catalog.Record{Kind: catalog.KindOpenAI, BaseURL: srv.URL, Model: "gpt-4o"}); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("probe leaked an event onto the shared bus: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTestConnectionSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	d := newTestDispatcher(t)
	err := d.TestConnection(catalog.Record{Kind: catalog.KindOpenAI, BaseURL: srv.URL, Model: "gpt-4o"})
	if err == nil {
		t.Fatal("expected an error for an unauthorized probe")
	}
	kind, _ := catalog.KindOf(err)
	if kind != catalog.ErrProviderError {
		t.Fatalf("error kind = %v, want %v", kind, catalog.ErrProviderError)
	}
}

func TestConfigRoundTripThroughDispatcher(t *testing.T) {
	d := newTestDispatcher(t)

	cfg, err := d.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Default == "" {
		t.Fatal("expected a seeded default provider")
	}

	cfg.Providers["extra"] = catalog.Record{Kind: catalog.KindGemini, BaseURL: "https://generativelanguage.googleapis.com", Model: "gemini-1.5-flash"}
	if err := d.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	if err := d.SetDefaultProvider("extra"); err != nil {
		t.Fatalf("SetDefaultProvider: %v", err)
	}

	reloaded, err := d.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig after SetDefaultProvider: %v", err)
	}
	if reloaded.Default != "extra" {
		t.Fatalf("Default = %q, want extra", reloaded.Default)
	}

	if d.ConfigPath() == "" {
		t.Fatal("ConfigPath should return the store's path")
	}
}

func TestSetDefaultProviderRejectsUnknownName(t *testing.T) {
	d := newTestDispatcher(t)
	if _, err := d.LoadConfig(); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	err := d.SetDefaultProvider("nope")
	kind, _ := catalog.KindOf(err)
	if kind != catalog.ErrUnknownProvider {
		t.Fatalf("error kind = %v, want %v", kind, catalog.ErrUnknownProvider)
	}
}
