package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

func storeWithTrigger(query string) *domain.ContextStore {
	return domain.NewContextStore(domain.TriggerData{Query: query}, nil)
}

func getString(t *testing.T, values domain.Values, field string) string {
	t.Helper()
	s, ok := values.GetString(field)
	if !ok {
		t.Fatalf("field %q absent from output values %v", field, values)
	}
	return s
}

// storeAfterPrepare simulates the canonical pipeline position of the answer
// step: prepare-query already ran and recorded its output.
func storeAfterPrepare(t *testing.T, query string) *domain.ContextStore {
	t.Helper()
	store := storeWithTrigger(query)
	out, err := PrepareQuery().Run(context.Background(), store)
	if err != nil {
		t.Fatalf("prepare-query returned error: %v", err)
	}
	if err := store.Append(PrepareQueryID, out.Values); err != nil {
		t.Fatalf("append prepare-query output: %v", err)
	}
	return store
}

func TestPrepareQueryPassthrough(t *testing.T) {
	step := PrepareQuery()
	if step.ID != PrepareQueryID {
		t.Fatalf("step id = %q, want %q", step.ID, PrepareQueryID)
	}

	out, err := step.Run(context.Background(), storeWithTrigger("what is the capital of Japan?"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Degraded {
		t.Errorf("output degraded with reason %q, want normal completion", out.Reason)
	}
	if got := getString(t, out.Values, domain.FieldQuery); got != "what is the capital of Japan?" {
		t.Errorf("query = %q, want trigger query", got)
	}
}

func TestPrepareQueryFallback(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace only", "   \t\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := PrepareQuery().Run(context.Background(), storeWithTrigger(tc.query))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if !out.Degraded {
				t.Fatal("expected degraded output")
			}
			if out.Reason != domain.ReasonMissingInput {
				t.Errorf("reason = %q, want %q", out.Reason, domain.ReasonMissingInput)
			}
			if got := getString(t, out.Values, domain.FieldQuery); got != domain.FallbackQuery {
				t.Errorf("query = %q, want fixed fallback query", got)
			}
		})
	}
}

func TestPrepareQueryOverrideWins(t *testing.T) {
	store := domain.NewContextStore(
		domain.TriggerData{Query: "from trigger"},
		map[string]domain.Values{
			PrepareQueryID: {domain.FieldQuery: "from override"},
		},
	)
	out, err := PrepareQuery().Run(context.Background(), store)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := getString(t, out.Values, domain.FieldQuery); got != "from override" {
		t.Errorf("query = %q, want override value", got)
	}
}

func TestGenerateAnswerSuccess(t *testing.T) {
	var gotMessages []ports.Message
	gen := ports.GeneratorFunc(func(_ context.Context, messages []ports.Message) (ports.Reply, error) {
		gotMessages = messages
		return ports.Reply{Text: "Tokyo."}, nil
	})

	step := GenerateAnswer(StaticGenerator(gen))
	if step.ID != GenerateAnswerID {
		t.Fatalf("step id = %q, want %q", step.ID, GenerateAnswerID)
	}

	out, err := step.Run(context.Background(), storeAfterPrepare(t, "capital of Japan?"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out.Degraded {
		t.Fatalf("output degraded with reason %q", out.Reason)
	}
	if got := getString(t, out.Values, domain.FieldAnswer); got != "Tokyo." {
		t.Errorf("answer = %q, want generator reply", got)
	}
	if len(gotMessages) != 1 {
		t.Fatalf("generator received %d messages, want 1", len(gotMessages))
	}
	if gotMessages[0].Role != ports.RoleUser || gotMessages[0].Content != "capital of Japan?" {
		t.Errorf("generator message = %+v, want single user turn with the query", gotMessages[0])
	}
}

func TestGenerateAnswerMissingQuery(t *testing.T) {
	cases := []struct {
		name  string
		store func(t *testing.T) *domain.ContextStore
	}{
		{
			name: "blank trigger, no previous step",
			store: func(t *testing.T) *domain.ContextStore {
				return storeWithTrigger("")
			},
		},
		{
			name: "propagated fallback query",
			store: func(t *testing.T) *domain.ContextStore {
				return storeAfterPrepare(t, "")
			},
		},
		{
			name: "previous step produced blank query",
			store: func(t *testing.T) *domain.ContextStore {
				store := storeWithTrigger("ignored")
				if err := store.Append(PrepareQueryID, domain.Values{domain.FieldQuery: "  "}); err != nil {
					t.Fatalf("append: %v", err)
				}
				return store
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			gen := ports.GeneratorFunc(func(context.Context, []ports.Message) (ports.Reply, error) {
				calls++
				return ports.Reply{Text: "should not be reached"}, nil
			})

			out, err := GenerateAnswer(StaticGenerator(gen)).Run(context.Background(), tc.store(t))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if !out.Degraded || out.Reason != domain.ReasonMissingInput {
				t.Fatalf("got degraded=%v reason=%q, want missing-input degradation", out.Degraded, out.Reason)
			}
			if got := getString(t, out.Values, domain.FieldAnswer); got != domain.AnswerMissingQuery {
				t.Errorf("answer = %q, want fixed missing-query answer", got)
			}
			if calls != 0 {
				t.Errorf("generator called %d times, want 0", calls)
			}
		})
	}
}

func TestGenerateAnswerUnconfigured(t *testing.T) {
	sources := []struct {
		name   string
		source GeneratorSource
	}{
		{"nil source", nil},
		{"nil generator", StaticGenerator(nil)},
		{
			"bare sentinel",
			func(context.Context) (ports.Generator, error) { return nil, ports.ErrUnconfigured },
		},
		{
			"wrapped sentinel",
			func(context.Context) (ports.Generator, error) {
				return nil, fmt.Errorf("building agent: %w", ports.ErrUnconfigured)
			},
		},
	}
	for _, tc := range sources {
		t.Run(tc.name, func(t *testing.T) {
			out, err := GenerateAnswer(tc.source).Run(context.Background(), storeAfterPrepare(t, "anything"))
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if !out.Degraded || out.Reason != domain.ReasonUnconfiguredAgent {
				t.Fatalf("got degraded=%v reason=%q, want unconfigured-agent degradation", out.Degraded, out.Reason)
			}
			if got := getString(t, out.Values, domain.FieldAnswer); got != domain.AnswerUnconfigured {
				t.Errorf("answer = %q, want canned answer", got)
			}
		})
	}
}

func TestGenerateAnswerSourceFailure(t *testing.T) {
	boom := errors.New("hub unreachable")
	source := GeneratorSource(func(context.Context) (ports.Generator, error) { return nil, boom })

	out, err := GenerateAnswer(source).Run(context.Background(), storeAfterPrepare(t, "anything"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !out.Degraded || out.Reason != domain.ReasonAgentError {
		t.Fatalf("got degraded=%v reason=%q, want agent-error degradation", out.Degraded, out.Reason)
	}
	if got := getString(t, out.Values, domain.FieldAnswer); !strings.Contains(got, "hub unreachable") {
		t.Errorf("answer = %q, want the source error embedded", got)
	}
}

func TestGenerateAnswerGenerationFailure(t *testing.T) {
	gen := ports.GeneratorFunc(func(context.Context, []ports.Message) (ports.Reply, error) {
		return ports.Reply{}, errors.New("upstream 500")
	})

	out, err := GenerateAnswer(StaticGenerator(gen)).Run(context.Background(), storeAfterPrepare(t, "anything"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !out.Degraded || out.Reason != domain.ReasonAgentError {
		t.Fatalf("got degraded=%v reason=%q, want agent-error degradation", out.Degraded, out.Reason)
	}
	if got := getString(t, out.Values, domain.FieldAnswer); got != domain.AnswerAgentFailure(errors.New("upstream 500")) {
		t.Errorf("answer = %q, want fixed agent-failure rendering", got)
	}
}

func TestGenerateAnswerCallTimeout(t *testing.T) {
	gen := ports.GeneratorFunc(func(ctx context.Context, _ []ports.Message) (ports.Reply, error) {
		select {
		case <-ctx.Done():
			return ports.Reply{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return ports.Reply{Text: "too late"}, nil
		}
	})

	step := GenerateAnswer(StaticGenerator(gen), WithCallTimeout(10*time.Millisecond))
	out, err := step.Run(context.Background(), storeAfterPrepare(t, "anything"))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !out.Degraded || out.Reason != domain.ReasonAgentError {
		t.Fatalf("got degraded=%v reason=%q, want agent-error degradation", out.Degraded, out.Reason)
	}
	if got := getString(t, out.Values, domain.FieldAnswer); !strings.Contains(got, context.DeadlineExceeded.Error()) {
		t.Errorf("answer = %q, want deadline error embedded", got)
	}
}

func TestStaticGenerator(t *testing.T) {
	gen := ports.GeneratorFunc(func(context.Context, []ports.Message) (ports.Reply, error) {
		return ports.Reply{Text: "ok"}, nil
	})

	got, err := StaticGenerator(gen)(context.Background())
	if err != nil {
		t.Fatalf("StaticGenerator returned error: %v", err)
	}
	if got == nil {
		t.Fatal("StaticGenerator returned nil generator")
	}

	if _, err := StaticGenerator(nil)(context.Background()); !errors.Is(err, ports.ErrUnconfigured) {
		t.Fatalf("nil generator error = %v, want ErrUnconfigured", err)
	}
}
