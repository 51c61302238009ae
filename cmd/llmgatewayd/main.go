// Command llmgatewayd runs the streaming LLM gateway core as a local
// daemon, exposing the UI-facing operations (spec §6) over HTTP+SSE. In the
// source product this core runs embedded inside a desktop shell; this
// binary is the standalone equivalent used for development and testing.
//
// Grounded on the teacher's cmd/at/main.go into.Init/logi wiring.
package main

import (
	"context"
	"fmt"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/deskllm/gateway/internal/bus"
	"github.com/deskllm/gateway/internal/catalog"
	"github.com/deskllm/gateway/internal/config"
	"github.com/deskllm/gateway/internal/dispatcher"
	"github.com/deskllm/gateway/internal/httpapi"
)

var (
	name    = "llmgatewayd"
	version = "v0.0.0"
)

func main() {
	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store := catalog.NewStore(cfg.Store.Path)
	mainBus := bus.New()
	disp := dispatcher.New(store, mainBus)

	api := httpapi.New(httpapi.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, disp)

	return api.Start(ctx)
}
