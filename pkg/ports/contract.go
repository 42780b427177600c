package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore
// implementation adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405")

	record := func(id string, startedAt time.Time) domain.RunRecord {
		return domain.RunRecord{
			ID:       id,
			Workflow: "ask",
			Query:    "What is the capital of Japan?",
			Answer:   "Tokyo.",
			Success:  true,
			Steps: []domain.StepReport{
				{StepID: "prepare-query", Status: domain.StepCompleted},
				{StepID: "generate-answer", Status: domain.StepCompleted},
			},
			StartedAt:  startedAt,
			FinishedAt: startedAt.Add(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := record(runID, time.Now().UTC())

		err := store.Save(ctx, rec)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.Workflow, loaded.Workflow)
		assert.Equal(t, rec.Query, loaded.Query)
		assert.Equal(t, rec.Answer, loaded.Answer)
		assert.True(t, loaded.Success)
		assert.Len(t, loaded.Steps, 2)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := record(runID+"-del", time.Now().UTC())
		require.NoError(t, store.Save(ctx, rec))

		err := store.Delete(ctx, rec.ID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, rec.ID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")

		// Deleting an unknown id is not an error.
		assert.NoError(t, store.Delete(ctx, rec.ID))
	})

	t.Run("List Newest First", func(t *testing.T) {
		base := time.Now().UTC().Truncate(time.Second)
		ids := make([]string, 3)
		for i := range ids {
			ids[i] = fmt.Sprintf("%s-list-%d", runID, i)
			rec := record(ids[i], base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, store.Save(ctx, rec))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		records, err := store.List(ctx)
		require.NoError(t, err)

		// Filter to this suite's entries so the contract composes with
		// whatever else lives in the store.
		var got []string
		for _, rec := range records {
			for _, id := range ids {
				if rec.ID == id {
					got = append(got, rec.ID)
				}
			}
		}
		require.Len(t, got, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, got, "List should be newest first")
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		rec := record(runID+"-ow", time.Now().UTC())
		require.NoError(t, store.Save(ctx, rec))

		rec.Answer = "Updated answer."
		require.NoError(t, store.Save(ctx, rec))
		defer func() { _ = store.Delete(ctx, rec.ID) }()

		loaded, err := store.Load(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "Updated answer.", loaded.Answer)
	})
}
