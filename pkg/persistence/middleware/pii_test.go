package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/furrow/pkg/adapters/memory"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	// Mask API-key shaped tokens and SSN-shaped numbers.
	mw := middleware.NewPIIMiddleware([]string{`sk-[a-z0-9]+`, `\d{3}-\d{2}-\d{4}`})
	scrubbedStore := mw(underlyingStore)

	ctx := context.Background()
	record := testRecord("pii-run")
	record.Query = "my key is sk-abc123, is that fine?"
	record.Answer = "Never share sk-abc123 or your SSN 999-99-9999 in plain text."
	record.Steps[0].Output = domain.Values{"query": "my key is sk-abc123, is that fine?"}
	record.Steps[1].Output = domain.Values{
		"answer": "Never share sk-abc123 in plain text.",
		"meta":   map[string]any{"ssn": "999-99-9999"},
	}

	// 1. Save
	if err := scrubbedStore.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The caller's record must not be mutated by masking.
	if record.Query != "my key is sk-abc123, is that fine?" {
		t.Error("Middleware modified original record in memory!")
	}
	if got, _ := record.Steps[0].Output.GetString("query"); got != "my key is sk-abc123, is that fine?" {
		t.Error("Middleware modified original step output in memory!")
	}

	// 2. Load from the underlying store (should be masked)
	stored, err := underlyingStore.Load(ctx, record.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}

	if stored.Query != "my key is ***, is that fine?" {
		t.Errorf("Query should be masked, got: %v", stored.Query)
	}
	if stored.Answer != "Never share *** or your SSN *** in plain text." {
		t.Errorf("Answer should be masked, got: %v", stored.Answer)
	}
	if got, _ := stored.Steps[0].Output.GetString("query"); got != "my key is ***, is that fine?" {
		t.Errorf("Step output should be masked, got: %v", got)
	}

	meta, ok := stored.Steps[1].Output["meta"].(map[string]any)
	if !ok {
		t.Fatalf("Expected nested meta map, got: %T", stored.Steps[1].Output["meta"])
	}
	if meta["ssn"] != "***" {
		t.Errorf("Nested SSN should be masked, got: %v", meta["ssn"])
	}

	// Untainted fields stay as written.
	if stored.Workflow != "ask" {
		t.Errorf("Workflow shouldn't be masked, got: %v", stored.Workflow)
	}
}

func TestPIIMiddleware_LoadPassesThrough(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw := middleware.NewPIIMiddleware([]string{`secret`})
	scrubbedStore := mw(underlyingStore)

	ctx := context.Background()
	record := testRecord("pii-load")
	record.Answer = "already stored secret"
	if err := underlyingStore.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Masking happens on the write path only.
	loaded, err := scrubbedStore.Load(ctx, record.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Answer != "already stored secret" {
		t.Errorf("Load should return stored text, got: %v", loaded.Answer)
	}
}

func TestChainOrder(t *testing.T) {
	underlyingStore := memory.NewStore()
	// PII first, then encryption: text is masked before it is sealed.
	store := middleware.Chain(
		underlyingStore,
		middleware.NewPIIMiddleware([]string{`sk-[a-z0-9]+`}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	record := testRecord("chain-run")
	record.Query = "rotate sk-deadbeef now"

	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(ctx, record.ID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Query != "rotate *** now" {
		t.Errorf("Expected masked then sealed query, got: %v", loaded.Query)
	}
}
