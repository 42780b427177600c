package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/furrow/internal/config"
	"github.com/aretw0/furrow/pkg/adapters/file"
	"github.com/aretw0/furrow/pkg/agent"
	"github.com/aretw0/furrow/pkg/profile"
)

// pingTimeout bounds the redis reachability probe.
const pingTimeout = 3 * time.Second

// Check is one doctor probe outcome. A failed check never stops the others;
// doctor reports everything it finds.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Diagnose probes the loaded configuration: model credential, tool launcher,
// profile library, and the archive backend. The engine tolerates all of
// these being broken; doctor exists to say which ones are.
func Diagnose(ctx context.Context, cfg *config.Config) []Check {
	return []Check{
		checkModel(cfg),
		checkTools(cfg),
		checkProfiles(ctx, cfg),
		checkStore(ctx, cfg),
	}
}

func checkModel(cfg *config.Config) Check {
	c := Check{Name: "model credential"}
	switch {
	case cfg.ModelConfigured():
		c.OK = true
		c.Detail = fmt.Sprintf("configured (model %s)", cfg.Model.Model)
	case cfg.Model.APIKey == agent.PlaceholderAPIKey:
		c.Detail = "placeholder value; runs degrade to the canned answer"
	default:
		c.Detail = "missing; runs degrade to the canned answer"
	}
	return c
}

func checkTools(cfg *config.Config) Check {
	c := Check{Name: "tool launcher"}
	if !cfg.ToolsConfigured() {
		c.OK = true
		c.Detail = "not configured; the agent runs without tools"
		return c
	}
	path, err := exec.LookPath(cfg.Tools.Launcher)
	if err != nil {
		c.Detail = fmt.Sprintf("%s not resolvable: %v", cfg.Tools.Launcher, err)
		return c
	}
	c.OK = true
	c.Detail = path
	if cfg.Search.APIKey == "" {
		c.Detail += " (no search credential; searches may fail)"
	}
	return c
}

func checkProfiles(ctx context.Context, cfg *config.Config) Check {
	c := Check{Name: "profile library"}
	lib, err := profile.Open(cfg.Profiles.Path)
	if err != nil {
		c.Detail = fmt.Sprintf("%v; the built-in default profile serves", err)
		return c
	}
	profiles, err := lib.List(ctx)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	if _, found := lib.Get(ctx, cfg.Profiles.Default); !found {
		c.Detail = fmt.Sprintf("profile %q not in library; the built-in default serves", cfg.Profiles.Default)
		return c
	}
	c.OK = true
	c.Detail = fmt.Sprintf("%d profile(s) at %s", len(profiles), cfg.Profiles.Path)
	return c
}

func checkStore(ctx context.Context, cfg *config.Config) Check {
	c := Check{Name: "run archive"}
	switch cfg.Store.Backend {
	case "", "memory":
		c.OK = true
		c.Detail = "in-memory; runs vanish when the process exits"
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		defer client.Close()
		if err := client.Ping(pingCtx).Err(); err != nil {
			c.Detail = fmt.Sprintf("redis at %s unreachable: %v", cfg.Store.Redis.Addr, err)
			return c
		}
		c.OK = true
		c.Detail = "redis at " + cfg.Store.Redis.Addr
	case "file":
		dir := file.NewStore(cfg.Store.File.Path).BasePath
		// Probe writability the way Save will: create the directory.
		if err := os.MkdirAll(dir, 0755); err != nil {
			c.Detail = fmt.Sprintf("run directory %s not writable: %v", dir, err)
			return c
		}
		c.OK = true
		c.Detail = "files under " + dir
	default:
		c.Detail = fmt.Sprintf("unknown backend %q", cfg.Store.Backend)
	}
	if c.OK && cfg.Store.EncryptionKey != "" {
		c.Detail += " (encrypted at rest)"
	}
	return c
}
