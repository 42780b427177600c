package ports_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// mockStore is a minimal in-memory RunStore used to verify the contract
// suite itself; real adapters live under pkg/adapters.
type mockStore struct {
	mu   sync.Mutex
	data map[string]domain.RunRecord
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]domain.RunRecord)}
}

func (m *mockStore) Save(ctx context.Context, record domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[record.ID] = record
	return nil
}

func (m *mockStore) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.data[id]
	if !ok {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	return rec, nil
}

func (m *mockStore) List(ctx context.Context) ([]domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RunRecord, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func TestRunStoreContract_Mock(t *testing.T) {
	// Verifies the contract suite against a reference implementation; it
	// serves as the template for adapter tests.
	ports.RunStoreContract(t, newMockStore())
}

func TestGeneratorFunc(t *testing.T) {
	gen := ports.GeneratorFunc(func(ctx context.Context, messages []ports.Message) (ports.Reply, error) {
		if len(messages) != 1 || messages[0].Role != ports.RoleUser {
			t.Fatalf("unexpected messages: %+v", messages)
		}
		return ports.Reply{Text: "echo: " + messages[0].Content}, nil
	})

	reply, err := gen.Generate(context.Background(), []ports.Message{ports.UserMessage("hi")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply.Text != "echo: hi" {
		t.Errorf("reply = %q, want %q", reply.Text, "echo: hi")
	}
}
