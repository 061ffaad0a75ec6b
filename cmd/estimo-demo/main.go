// Command estimo-demo wires the full core together and runs one request
// through it end to end, printing the resulting trace and narrative. It
// exists to exercise the wiring, the way the teacher's cmd/demo exercises
// its runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"goa.design/estimo/internal/broadcaster"
	"goa.design/estimo/internal/config"
	"goa.design/estimo/internal/intent"
	"goa.design/estimo/internal/llmclient"
	"goa.design/estimo/internal/manager"
	"goa.design/estimo/internal/modelselect"
	"goa.design/estimo/internal/planner"
	"goa.design/estimo/internal/router"
	"goa.design/estimo/internal/stages"
	"goa.design/estimo/internal/state"
	"goa.design/estimo/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "estimo-demo:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := telemetry.NewNoopLogger()
	tracer := telemetry.NewNoopTracer()
	metrics := telemetry.NewNoopMetrics()

	catalog := modelselect.DefaultCatalog()
	if cfg.ModelCatalogPath != "" {
		if loaded, err := modelselect.LoadCatalog(cfg.ModelCatalogPath); err == nil {
			catalog = loaded
		} else {
			logger.Warn(ctx, "failed to load model catalog, using embedded default", "path", cfg.ModelCatalogPath, "error", err.Error())
		}
	}
	selector := modelselect.New(catalog)

	caller := llmclient.New(selector, logger,
		llmclient.NewAnthropicProvider(),
		llmclient.NewOpenAIProvider(),
		llmclient.NewBedrockProvider(),
	)

	classifier := intent.New(caller, logger)
	routePlanner := planner.New(classifier)

	registry, err := stages.DefaultRegistry()
	if err != nil {
		return fmt.Errorf("build stage registry: %w", err)
	}

	var bus broadcaster.Broadcaster
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bus = broadcaster.NewRedisBroadcaster(client, logger)
	} else {
		bus = broadcaster.NewLocalBroadcaster()
	}
	defer bus.Close()

	mgr := manager.New(routePlanner, registry, bus, selector, logger, tracer, metrics, manager.Config{
		StageTimeout:   cfg.StageTimeout,
		RequestTimeout: cfg.RequestTimeout,
	})

	r := router.New(mgr, caller)

	events, unsubscribe := bus.Subscribe("demo-session")
	defer unsubscribe()
	go printEvents(events)

	s := state.New("demo-session", "demo-user", time.Now())
	s.Query = "please produce a rough cost estimate for this scope"
	s.Files = []state.File{{
		Name: "plans.txt",
		MIME: "text/plain",
		RawBytes: []byte(
			"Pour concrete foundation and footings. Install electrical panel and wiring. " +
				"Run plumbing pipe and fixtures. Frame walls with lumber studs and joists.",
		),
	}}

	out, err := r.FileSelection(ctx, s.SessionID, s.UserID, s.Query, "analyze all", s.Files)
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	fmt.Println("status:", out.Status)
	fmt.Println("narrative:")
	for _, n := range out.Narrative {
		fmt.Printf("  [%s] %s\n", n.StageName, n.Message)
	}
	fmt.Println("trace:")
	for _, t := range out.Trace {
		fmt.Printf("  [%s/%s] %s\n", t.StageName, t.Severity, t.Decision)
	}
	fmt.Printf("estimate: %d line item(s)\n", len(out.Estimate))

	time.Sleep(50 * time.Millisecond) // let the event printer drain
	return nil
}

func printEvents(events <-chan broadcaster.Event) {
	for evt := range events {
		fmt.Printf("event: %s %v\n", evt.Kind, evt.Data)
	}
}
