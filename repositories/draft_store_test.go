package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDraftStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDraftStore()
	reg := brackets.MustLoadRegistry()

	t.Run("missing draft", func(t *testing.T) {
		_, err := store.Load(ctx, 1)
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})

	t.Run("save load delete", func(t *testing.T) {
		b := brackets.NewBracket(reg)
		_, err := b.SetGroupOrder("B", []brackets.TeamID{"SUI", "CAN", "QAT", "POA"})
		require.NoError(t, err)
		_, err = b.PickWinner(73, "RSA")
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, 2, b.Draft()))

		got, err := store.Load(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, b.Draft(), got)

		restored, err := brackets.RestoreDraft(reg, got)
		require.NoError(t, err)
		pick, ok := restored.Pick(73)
		assert.True(t, ok)
		assert.Equal(t, brackets.TeamID("RSA"), pick)

		require.NoError(t, store.Delete(ctx, 2))
		_, err = store.Load(ctx, 2)
		assert.ErrorIs(t, err, ErrDraftNotFound)
	})

	t.Run("loaded drafts are independent copies", func(t *testing.T) {
		d := brackets.NewBracket(reg).Draft()
		require.NoError(t, store.Save(ctx, 3, d))

		got, err := store.Load(ctx, 3)
		require.NoError(t, err)
		got.GroupStandings["A"][0] = "XXX"

		again, err := store.Load(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, brackets.TeamID("MEX"), again.GroupStandings["A"][0])
	})
}

func TestMemoryDraftStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDraftStore()
	d := brackets.NewBracket(brackets.MustLoadRegistry()).Draft()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(user int) {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, user, d))
			_, err := store.Load(ctx, user)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}
