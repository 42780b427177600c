// Package profile loads agent profiles from a loam-backed markdown library.
// A profile's YAML frontmatter selects the model and sampling parameters and
// its body becomes the agent's instructions. Lookups are fail-soft: a missing
// library or profile resolves to the built-in default instead of an error.
package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
)

// DefaultID is the profile used when none is configured.
const DefaultID = "researcher"

// Metadata is the decoded frontmatter of a profile document.
type Metadata struct {
	Name        string  `json:"name" mapstructure:"name"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// Profile is a resolved agent profile. Zero model parameters mean the
// generator's own defaults apply.
type Profile struct {
	ID           string
	Name         string
	Model        string
	Temperature  float64
	MaxTokens    int
	Instructions string
}

// Default returns the built-in profile used when the library cannot serve.
func Default() Profile {
	return Profile{
		ID:   DefaultID,
		Name: "Researcher",
		Instructions: "You are a careful research assistant. Answer the question directly and " +
			"concisely, use the available tools when they help, and say so plainly when " +
			"you do not know.",
	}
}

// Library reads profiles from a directory of markdown documents.
type Library struct {
	repo *loam.TypedRepository[Metadata]
}

// Open initializes a read-only library over the given directory. The library
// never writes; strict mode keeps frontmatter types consistent across
// serializers.
func Open(path string) (*Library, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid profile library path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("profile library not found at %s: %w", absPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("profile library path %s is not a directory", absPath)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("initializing profile library: %w", err)
	}

	return &Library{repo: loam.NewTypedRepository[Metadata](repo)}, nil
}

// Get resolves a profile by id. An empty id means the default id. Unknown
// ids, read errors, and a nil library all resolve to the built-in default;
// the boolean reports whether the library actually served the profile.
func (l *Library) Get(ctx context.Context, id string) (Profile, bool) {
	if id == "" {
		id = DefaultID
	}
	if l == nil || l.repo == nil {
		return Default(), false
	}
	doc, err := l.repo.Get(ctx, id)
	if err != nil {
		return Default(), false
	}
	return toProfile(trimExtension(doc.ID), doc.Data, doc.Content), true
}

// List returns every profile in the library, sorted by id. A nil library
// lists nothing.
func (l *Library) List(ctx context.Context) ([]Profile, error) {
	if l == nil || l.repo == nil {
		return nil, nil
	}
	docs, err := l.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	profiles := make([]Profile, 0, len(docs))
	for _, doc := range docs {
		profiles = append(profiles, toProfile(trimExtension(doc.ID), doc.Data, doc.Content))
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

func toProfile(id string, meta Metadata, content string) Profile {
	p := Profile{
		ID:           id,
		Name:         meta.Name,
		Model:        meta.Model,
		Temperature:  meta.Temperature,
		MaxTokens:    meta.MaxTokens,
		Instructions: strings.TrimSpace(content),
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	return p
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
