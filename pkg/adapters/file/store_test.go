package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/adapters/file"
	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ports.RunStoreContract(t, store)
}

func TestFileStore_FilesOnDisk(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	record := domain.RunRecord{
		ID:        "run-1",
		Workflow:  "ask",
		Query:     "what lives on disk?",
		StartedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(dir, "run-1.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected run file at %s: %v", path, err)
	}

	if err := store.Delete(ctx, "run-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("run file should not exist after delete")
	}
}

func TestFileStore_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	if err := store.Save(ctx, domain.RunRecord{ID: "run-1", Workflow: "ask", StartedAt: time.Now()}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("garbage"), 0644); err != nil {
		t.Fatalf("failed to create garbage file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "archive.json"), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "run-1" {
		t.Errorf("expected only run-1, got %+v", records)
	}
}

func TestFileStore_RejectsPathIDs(t *testing.T) {
	store := file.NewStore(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../evil", "a/b", `a\b`, "dot..dot"} {
		if err := store.Save(ctx, domain.RunRecord{ID: id}); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
		if _, err := store.Load(ctx, id); err == nil {
			t.Errorf("Load(%q) should fail", id)
		}
	}
}

func TestFileStore_DefaultPath(t *testing.T) {
	store := file.NewStore("")
	want := filepath.Join(".furrow", "runs")
	if store.BasePath != want {
		t.Errorf("BasePath = %q, want %q", store.BasePath, want)
	}
}
