// Package dispatcher implements the process-wide façade spec §4.5 calls the
// Dispatcher: the single entry point the UI-facing binding calls into,
// translating those calls into session lifecycle and configuration-store
// operations. Grounded on the teacher's internal/service/at.go, which plays
// the same "one struct, one method per UI operation" role over its service
// registry.
package dispatcher

import (
	"sync"

	"github.com/deskllm/gateway/internal/adapter"
	"github.com/deskllm/gateway/internal/bus"
	"github.com/deskllm/gateway/internal/catalog"
	"github.com/deskllm/gateway/internal/session"
)

// testPromptText is the trivial prompt test_connection sends (spec §4.5).
const testPromptText = "ping"

// Dispatcher owns the live-session table and the configuration store, and
// is the only component permitted to mutate either (spec §5 Shared resources).
type Dispatcher struct {
	store *catalog.Store
	bus   *bus.Bus

	mu       sync.Mutex
	sessions map[catalog.StreamID]*session.Session
}

// New constructs a Dispatcher backed by store, publishing stream events on
// mainBus ("llm-stream").
func New(store *catalog.Store, mainBus *bus.Bus) *Dispatcher {
	return &Dispatcher{
		store:    store,
		bus:      mainBus,
		sessions: make(map[catalog.StreamID]*session.Session),
	}
}

// StartStream validates rec, mints a stream identifier, registers and spawns
// its session, and returns the identifier without waiting for the first
// byte (spec §4.5 start_stream).
func (d *Dispatcher) StartStream(rec catalog.Record, prompts catalog.PromptPair) (catalog.StreamID, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	client, err := adapter.NewHTTPClient(rec)
	if err != nil {
		return "", &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "build http client: " + err.Error()}
	}
	ad, err := adapter.Select(rec.Kind, client)
	if err != nil {
		return "", err
	}

	id := catalog.NewStreamID()
	sess := session.New(id, ad, client, d.bus)

	d.mu.Lock()
	d.sessions[id] = sess
	d.mu.Unlock()

	go func() {
		sess.Run(rec, prompts)
		d.mu.Lock()
		delete(d.sessions, id)
		d.mu.Unlock()
	}()

	return id, nil
}

// CancelStream signals cancellation for id. Idempotent; an unknown id is a
// no-op (spec §4.5 cancel_stream).
func (d *Dispatcher) CancelStream(id catalog.StreamID) {
	d.mu.Lock()
	sess, ok := d.sessions[id]
	d.mu.Unlock()
	if !ok {
		return
	}
	sess.Cancel()
}

// TestConnection performs a minimal end-to-end probe: it starts a stream
// with a trivial prompt against its own private bus.Bus (spec §9's flagged
// open question is resolved here in favor of a distinct path, so probes
// never leak onto the UI's "llm-stream" subscriptions) and waits for either
// the first delta or the terminal marker, then cancels if the probe is
// still active.
func (d *Dispatcher) TestConnection(rec catalog.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	client, err := adapter.NewHTTPClient(rec)
	if err != nil {
		return &catalog.Error{Kind: catalog.ErrInvalidConfig, Message: "build http client: " + err.Error()}
	}
	ad, err := adapter.Select(rec.Kind, client)
	if err != nil {
		return err
	}

	probeBus := bus.New()
	_, events := probeBus.Subscribe()

	id := catalog.NewStreamID()
	sess := session.New(id, ad, client, probeBus)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.Run(rec, catalog.PromptPair{User: testPromptText})
	}()

	select {
	case ev := <-events:
		sess.Cancel()
		<-done
		if ev.Error != "" {
			return &catalog.Error{Kind: catalog.ErrProviderError, Message: ev.Error}
		}
		return nil
	case <-done:
		// Run publishes its terminal event before returning, so it may be
		// buffered even when this case wins the select.
		select {
		case ev := <-events:
			if ev.Error != "" {
				return &catalog.Error{Kind: catalog.ErrProviderError, Message: ev.Error}
			}
		default:
		}
		return nil
	}
}

// LoadConfig returns the current catalogue (spec §4.5 load_config).
func (d *Dispatcher) LoadConfig() (catalog.AppConfig, error) {
	return d.store.Load()
}

// SaveConfig persists cfg (spec §4.5 save_config).
func (d *Dispatcher) SaveConfig(cfg catalog.AppConfig) error {
	return d.store.Save(cfg)
}

// SetDefaultProvider changes the catalogue's default provider (spec §4.5
// set_default_provider).
func (d *Dispatcher) SetDefaultProvider(name string) error {
	return d.store.SetDefault(name)
}

// ConfigPath returns the catalogue document's absolute path (spec §4.5
// config_path).
func (d *Dispatcher) ConfigPath() string {
	return d.store.Path()
}

// Bus returns the shared "llm-stream" event bus for the UI binding to
// subscribe to.
func (d *Dispatcher) Bus() *bus.Bus { return d.bus }
