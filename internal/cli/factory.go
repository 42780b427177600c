// Package cli assembles engines from configuration and carries the shared
// command helpers: signal-aware contexts, override parsing, and the doctor
// probes.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/config"
	"github.com/aretw0/furrow/internal/tools"
	"github.com/aretw0/furrow/pkg/adapters/file"
	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/adapters/redis"
	"github.com/aretw0/furrow/pkg/agent"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/observability"
	"github.com/aretw0/furrow/pkg/persistence/middleware"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/aretw0/furrow/pkg/profile"
	"github.com/aretw0/furrow/pkg/registry"
)

// BuildOptions adjusts engine assembly beyond what the config file carries.
type BuildOptions struct {
	// Debug attaches verbose lifecycle hooks.
	Debug bool

	// Metrics receives the engine collectors. Nil means the default registry.
	Metrics prometheus.Registerer
}

// BuildEngine assembles an engine from the loaded configuration: archive
// backend, metrics and debug hooks, and the lazy generator factory. The
// returned cleanup closes whatever the assembly ended up owning (redis
// client, tool hub) and is safe to call when the error is non-nil.
func BuildEngine(cfg *config.Config, logger *slog.Logger, build BuildOptions) (*furrow.Engine, func(), error) {
	cleanup := &cleanupStack{}

	metrics := observability.NewMetrics(build.Metrics)
	hooks := metrics.Hooks()
	if build.Debug {
		hooks = domain.JoinHooks(hooks, debugHooks(logger))
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, cleanup.run, err
	}
	// The closer lives on the backend; middleware wrappers hide it.
	if closer, ok := backend.(io.Closer); ok {
		cleanup.add(closer)
	}
	store, err := wrapStore(backend, cfg)
	if err != nil {
		return nil, cleanup.run, err
	}

	engine := furrow.New(
		furrow.WithLogger(logger),
		furrow.WithHooks(hooks),
		furrow.WithRunStore(store),
		furrow.WithGeneratorFunc(generatorFactory(cfg, logger, cleanup)),
	)
	return engine, cleanup.run, nil
}

func buildBackend(cfg *config.Config) (ports.RunStore, error) {
	switch cfg.Store.Backend {
	case "", "memory":
		return memory.NewStore(), nil
	case "redis":
		ttl, err := cfg.RedisTTL()
		if err != nil {
			return nil, err
		}
		var opts []redis.Option
		if ttl > 0 {
			opts = append(opts, redis.WithTTL(ttl))
		}
		return redis.New(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB, opts...), nil
	case "file":
		return file.NewStore(cfg.Store.File.Path), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// wrapStore layers the archive protections: scrubbing runs before sealing,
// so masked text is what gets encrypted.
func wrapStore(store ports.RunStore, cfg *config.Config) (ports.RunStore, error) {
	var middlewares []middleware.Middleware
	if len(cfg.Store.ScrubPatterns) > 0 {
		middlewares = append(middlewares, middleware.NewPIIMiddleware(cfg.Store.ScrubPatterns))
	}
	active, fallbacks, err := cfg.EncryptionKeys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		middlewares = append(middlewares, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		}))
	}
	return middleware.Chain(store, middlewares...), nil
}

// generatorFactory defers the credential check and the tool server launch to
// the first run that needs the model. Runs without a usable key surface
// ports.ErrUnconfigured and degrade instead of failing at startup.
func generatorFactory(cfg *config.Config, logger *slog.Logger, cleanup *cleanupStack) furrow.GeneratorFactory {
	return func(ctx context.Context) (ports.Generator, error) {
		prof := loadProfile(ctx, cfg, logger)

		agentCfg := agent.Config{
			APIKey:       cfg.Model.APIKey,
			Model:        cfg.Model.Model,
			BaseURL:      cfg.Model.BaseURL,
			Instructions: prof.Instructions,
			Temperature:  prof.Temperature,
			MaxTokens:    prof.MaxTokens,
		}
		// A profile that names a model pins it; otherwise the config decides.
		if prof.Model != "" {
			agentCfg.Model = prof.Model
		}

		opts := []agent.Option{agent.WithLogger(logger)}
		if cfg.ToolsConfigured() {
			hub, err := tools.Connect(ctx, toolConfig(cfg), tools.WithLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("connecting tool hub: %w", err)
			}
			cleanup.add(hub)
			opts = append(opts, agent.WithToolSource(hub))
		} else {
			// No launcher configured: the agent still gets the builtin tools.
			opts = append(opts, agent.WithToolSource(registry.Builtins()))
		}

		return agent.New(ctx, agentCfg, opts...)
	}
}

// loadProfile resolves the configured agent profile, falling back to the
// built-in default when the library or the profile is missing.
func loadProfile(ctx context.Context, cfg *config.Config, logger *slog.Logger) profile.Profile {
	lib, err := profile.Open(cfg.Profiles.Path)
	if err != nil {
		logger.Debug("profile library unavailable", "path", cfg.Profiles.Path, "err", err)
	}
	prof, found := lib.Get(ctx, cfg.Profiles.Default)
	if !found {
		logger.Debug("profile not found, using built-in default", "profile", cfg.Profiles.Default)
	}
	return prof
}

// toolConfig builds the launcher config. The search credential travels via
// the child's environment, never its argv.
func toolConfig(cfg *config.Config) tools.Config {
	tc := tools.Config{Command: cfg.Tools.Launcher, Args: cfg.Tools.Args}
	if cfg.Search.APIKey != "" {
		tc.Env = append(tc.Env, "SEARCH_API_KEY="+cfg.Search.APIKey)
	}
	return tc
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("run start", "workflow", e.Workflow, "run_id", e.RunID)
		},
		OnRunEnd: func(ctx context.Context, e *domain.RunEvent) {
			logger.Debug("run end", "workflow", e.Workflow, "run_id", e.RunID,
				"success", e.Success, "degraded", e.Degraded, "duration", e.Duration)
		},
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("step start", "step", e.StepID)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("step end", "step", e.StepID, "status", e.Status,
				"reason", e.Reason, "duration", e.Duration)
		},
	}
}

// cleanupStack collects closers accumulated during assembly. The generator
// factory may add the tool hub well after BuildEngine returns, so additions
// are locked. Closers run in reverse order.
type cleanupStack struct {
	mu      sync.Mutex
	closers []io.Closer
}

func (c *cleanupStack) add(closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, closer)
}

func (c *cleanupStack) run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i].Close()
	}
	c.closers = nil
}
