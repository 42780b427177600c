package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/furrow/internal/config"
	"github.com/aretw0/furrow/internal/logging"
	"github.com/aretw0/furrow/pkg/agent"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/aretw0/furrow/pkg/profile"
	"github.com/aretw0/furrow/pkg/registry"
)

func testConfig() *config.Config {
	return &config.Config{
		Model:    config.ModelConfig{APIKey: agent.PlaceholderAPIKey},
		Profiles: config.ProfilesConfig{Path: "profiles", Default: "researcher"},
		Store:    config.StoreConfig{Backend: "memory"},
	}
}

func buildOpts() BuildOptions {
	return BuildOptions{Metrics: prometheus.NewRegistry()}
}

func TestBuildEngineMemoryArchive(t *testing.T) {
	engine, cleanup, err := BuildEngine(testConfig(), logging.NewNop(), buildOpts())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, engine.Archive())

	result := engine.Ask(context.Background(), "what is a furrow?")
	assert.True(t, result.Success)
	assert.True(t, result.Degraded(), "no generator configured, run should degrade")

	records, err := engine.Archive().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Degraded)
}

func TestBuildEngineRedisArchive(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig()
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = mr.Addr()
	cfg.Store.Redis.TTL = "1h"

	engine, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.NoError(t, err)
	defer cleanup()

	engine.Ask(context.Background(), "archived?")

	records, err := engine.Archive().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	key := "furrow:run:" + records[0].ID
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0), "configured ttl should reach redis")
}

func TestBuildEngineFileArchive(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Store.Backend = "file"
	cfg.Store.File.Path = dir

	engine, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.NoError(t, err)
	defer cleanup()

	engine.Ask(context.Background(), "archived on disk?")

	records, err := engine.Archive().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, err = os.Stat(filepath.Join(dir, records[0].ID+".json"))
	assert.NoError(t, err, "run record should land on disk")
}

func TestBuildEngineArchiveProtections(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Store.Backend = "file"
	cfg.Store.File.Path = dir
	cfg.Store.ScrubPatterns = []string{`sk-[a-z0-9]+`}
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))

	engine, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.NoError(t, err)
	defer cleanup()

	engine.Ask(context.Background(), "is sk-abc123 a good key?")

	records, err := engine.Archive().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Query, "***", "archive reads should see masked text")
	assert.NotContains(t, records[0].Query, "sk-abc123")

	// The raw file carries neither the token nor readable text.
	raw, err := os.ReadFile(filepath.Join(dir, records[0].ID+".json"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sk-abc123")
	assert.NotContains(t, string(raw), "good key")
	assert.Contains(t, string(raw), "enc:v1:")
}

func TestBuildEngineUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "postgres"

	_, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.Error(t, err)
	cleanup()
}

func TestBuildEngineBadTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.TTL = "not-a-duration"

	_, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.Error(t, err)
	cleanup()
}

func TestGeneratorFactoryUnconfigured(t *testing.T) {
	factory := generatorFactory(testConfig(), logging.NewNop(), &cleanupStack{})

	_, err := factory(context.Background())
	require.ErrorIs(t, err, ports.ErrUnconfigured)
}

func TestGeneratorFactoryConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Model.APIKey = "sk-test"

	gen, err := generatorFactory(cfg, logging.NewNop(), &cleanupStack{})(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestGeneratorFactoryBuiltinTools(t *testing.T) {
	var body bytes.Buffer
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = body.ReadFrom(r.Body)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"noon"},"finish_reason":"stop"}]}`)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.Model.APIKey = "sk-test"
	cfg.Model.BaseURL = srv.URL

	engine, cleanup, err := BuildEngine(cfg, logging.NewNop(), buildOpts())
	require.NoError(t, err)
	defer cleanup()

	result := engine.Ask(context.Background(), "what time is it?")
	require.True(t, result.Success)
	assert.False(t, result.Degraded())
	assert.Contains(t, body.String(), registry.CurrentTimeToolName,
		"builtin tools should reach the model when no launcher is configured")
}

func TestLoadProfileFromLibrary(t *testing.T) {
	dir := t.TempDir()
	content := "---\nname: Researcher\nmodel: gpt-4o-mini\n---\nStay factual.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "researcher.md"), []byte(content), 0o644))

	cfg := testConfig()
	cfg.Profiles.Path = dir

	prof := loadProfile(context.Background(), cfg, logging.NewNop())
	assert.Equal(t, "gpt-4o-mini", prof.Model)
	assert.Equal(t, "Stay factual.", prof.Instructions)
}

func TestLoadProfileFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Profiles.Path = filepath.Join(t.TempDir(), "missing")

	prof := loadProfile(context.Background(), cfg, logging.NewNop())
	assert.Equal(t, profile.DefaultID, prof.ID)
}

func TestToolConfigEnv(t *testing.T) {
	cfg := testConfig()
	cfg.Tools.Launcher = "uvx"
	cfg.Tools.Args = []string{"mcp-server-search"}
	cfg.Search.APIKey = "brv-123"

	tc := toolConfig(cfg)
	assert.Equal(t, "uvx", tc.Command)
	assert.Equal(t, []string{"mcp-server-search"}, tc.Args)
	assert.Contains(t, tc.Env, "SEARCH_API_KEY=brv-123")
}

func TestToolConfigNoCredential(t *testing.T) {
	cfg := testConfig()
	cfg.Tools.Launcher = "uvx"

	tc := toolConfig(cfg)
	assert.Empty(t, tc.Env)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCleanupStackReverseOrder(t *testing.T) {
	var order []string
	stack := &cleanupStack{}
	stack.add(closerFunc(func() error { order = append(order, "first"); return nil }))
	stack.add(closerFunc(func() error { order = append(order, "second"); return nil }))

	stack.run()
	assert.Equal(t, []string{"second", "first"}, order)

	stack.run() // idempotent
	assert.Len(t, order, 2)
}
