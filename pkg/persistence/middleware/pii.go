package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// mask replaces every pattern match. Masking is one-way: loads return
// whatever was stored.
const mask = "***"

type piiMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks pattern matches in a
// record's free text (query, answer, error, step outputs) before it is
// archived. Patterns are regular expressions; an invalid pattern panics,
// so validate user-supplied patterns before building the middleware.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.RunStore) ports.RunStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, record domain.RunRecord) error {
	masked := record
	masked.Query = m.maskText(record.Query)
	masked.Answer = m.maskText(record.Answer)
	masked.Error = m.maskText(record.Error)

	// Steps are cloned before masking to avoid side effects on the record
	// still held by the engine.
	masked.Steps = make([]domain.StepReport, len(record.Steps))
	for i, step := range record.Steps {
		maskedStep := step
		maskedStep.Output = m.maskValues(step.Output)
		masked.Steps[i] = maskedStep
	}

	return m.next.Save(ctx, masked)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]domain.RunRecord, error) {
	return m.next.List(ctx)
}

// Helpers

func (m *piiMiddleware) maskText(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, mask)
	}
	return text
}

func (m *piiMiddleware) maskValues(values domain.Values) domain.Values {
	if values == nil {
		return nil
	}
	masked := values.Clone()
	for key, value := range masked {
		switch v := value.(type) {
		case string:
			masked[key] = m.maskText(v)
		case map[string]any:
			masked[key] = map[string]any(m.maskValues(domain.Values(v)))
		}
	}
	return masked
}
