package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// defaultSeedProvider is the catalogue written on first run when no
// document exists yet (spec §4.1 load()).
const defaultSeedProvider = "openai"

func seedConfig() AppConfig {
	return AppConfig{
		Default: defaultSeedProvider,
		Providers: map[string]Record{
			defaultSeedProvider: {
				Kind:    KindOpenAI,
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o",
			},
		},
	}
}

// Store is the durable key-value document holding the provider catalogue.
// Reads and writes are serialized through a single mutex; the document is
// small enough that full rewrite on every save is acceptable (spec §4.1
// Concurrency).
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a Store backed by the document at path. The document is
// not read or created until Load is called.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document's absolute path for display (spec §4.1 path()).
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the catalogue. If no document exists, it seeds a
// default single-provider catalogue, writes it to disk, and returns it.
func (s *Store) Load() (AppConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		cfg := seedConfig()
		if werr := s.writeLocked(cfg); werr != nil {
			// Seeding the file is best-effort (spec §4.1: "writing the seed
			// to disk is optional but recommended") — still return it.
			return cfg, nil
		}
		return cfg, nil
	}
	if err != nil {
		return AppConfig{}, wrapErr(ErrConfigIO, err, "read %s", s.path)
	}

	cfg, err := decodeDocument(data)
	if err != nil {
		return AppConfig{}, wrapErr(ErrConfigInvalid, err, "parse %s", s.path)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Save validates and atomically persists cfg (write-rename).
func (s *Store) Save(cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(cfg)
}

// SetDefault is a convenience mutation that changes only the default
// provider name, failing with ErrUnknownProvider if name isn't cataloged.
func (s *Store) SetDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newErr(ErrConfigMissing, "no catalogue document at %s", s.path)
		}
		return wrapErr(ErrConfigIO, err, "read %s", s.path)
	}

	cfg, err := decodeDocument(data)
	if err != nil {
		return wrapErr(ErrConfigInvalid, err, "parse %s", s.path)
	}
	if _, ok := cfg.Providers[name]; !ok {
		return newErr(ErrUnknownProvider, "provider %q not in catalogue", name)
	}
	cfg.Default = name

	return s.writeLocked(cfg)
}

// writeLocked performs the atomic write-rename. Callers must hold s.mu.
func (s *Store) writeLocked(cfg AppConfig) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapErr(ErrConfigIO, err, "create %s", dir)
	}

	buf, err := encodeDocument(cfg)
	if err != nil {
		return wrapErr(ErrConfigIO, err, "encode catalogue")
	}

	tmp, err := os.CreateTemp(dir, ".catalogue-*.tmp")
	if err != nil {
		return wrapErr(ErrConfigIO, err, "create temp file in %s", dir)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return wrapErr(ErrConfigIO, err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return wrapErr(ErrConfigIO, err, "close temp file")
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return wrapErr(ErrConfigIO, err, "rename into place")
	}
	return nil
}

// ─── document encoding ───
//
// The on-disk format is TOML with two top-level keys, "default" and
// "providers" (spec §4.1/§6). The in-memory field is named Kind but the
// wire name is "type" (spec §9) — tolerated on read, emitted on write.
// Unknown top-level and per-provider keys round-trip via the Extras bags.

const providerKindWireKey = "type"

func decodeDocument(data []byte) (AppConfig, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		Providers: map[string]Record{},
		Extras:    map[string]any{},
	}

	for key, val := range raw {
		switch key {
		case "default":
			s, _ := val.(string)
			cfg.Default = s
		case "providers":
			tbl, ok := val.(map[string]any)
			if !ok {
				return AppConfig{}, fmt.Errorf("providers must be a table")
			}
			for name, pval := range tbl {
				ptbl, ok := pval.(map[string]any)
				if !ok {
					return AppConfig{}, fmt.Errorf("providers.%s must be a table", name)
				}
				rec, err := decodeRecord(ptbl)
				if err != nil {
					return AppConfig{}, fmt.Errorf("providers.%s: %w", name, err)
				}
				cfg.Providers[name] = rec
			}
		default:
			cfg.Extras[key] = val
		}
	}

	return cfg, nil
}

func decodeRecord(tbl map[string]any) (Record, error) {
	rec := Record{Extras: map[string]any{}}

	for key, val := range tbl {
		switch key {
		case providerKindWireKey:
			s, _ := val.(string)
			rec.Kind = Kind(s)
		case "base_url":
			s, _ := val.(string)
			rec.BaseURL = s
		case "api_key":
			s, _ := val.(string)
			rec.APIKey = s
		case "model":
			s, _ := val.(string)
			rec.Model = s
		case "context_window":
			rec.ContextWindow = toInt(val)
		case "api_version":
			s, _ := val.(string)
			rec.APIVersion = s
		case "extra_headers":
			if m, ok := val.(map[string]any); ok {
				rec.ExtraHeaders = map[string]string{}
				for k, v := range m {
					if s, ok := v.(string); ok {
						rec.ExtraHeaders[k] = s
					}
				}
			}
		case "proxy":
			s, _ := val.(string)
			rec.Proxy = s
		case "insecure_skip_verify":
			b, _ := val.(bool)
			rec.InsecureSkipVerify = b
		default:
			rec.Extras[key] = val
		}
	}

	return rec, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func encodeDocument(cfg AppConfig) ([]byte, error) {
	doc := map[string]any{}
	for k, v := range cfg.Extras {
		doc[k] = v
	}
	doc["default"] = cfg.Default

	providers := map[string]any{}
	for name, rec := range cfg.Providers {
		providers[name] = encodeRecord(rec)
	}
	doc["providers"] = providers

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeRecord(rec Record) map[string]any {
	tbl := map[string]any{}
	for k, v := range rec.Extras {
		tbl[k] = v
	}
	tbl[providerKindWireKey] = string(rec.Kind)
	tbl["base_url"] = rec.BaseURL
	tbl["api_key"] = rec.APIKey
	tbl["model"] = rec.Model
	if rec.ContextWindow != 0 {
		tbl["context_window"] = rec.ContextWindow
	}
	if rec.APIVersion != "" {
		tbl["api_version"] = rec.APIVersion
	}
	if len(rec.ExtraHeaders) > 0 {
		tbl["extra_headers"] = rec.ExtraHeaders
	}
	if rec.Proxy != "" {
		tbl["proxy"] = rec.Proxy
	}
	if rec.InsecureSkipVerify {
		tbl["insecure_skip_verify"] = rec.InsecureSkipVerify
	}
	return tbl
}
