package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func testPayload(title string) domain.ResultPayload {
	return domain.ResultPayload{
		Title:       title,
		URL:         "url-" + title,
		Description: "description of " + title,
		Portal:      "DataSud",
		OwnerOrg:    ptr("Région Sud"),
		Tags:        []string{"energie", "eau"},
		Groups:      []domain.GroupRef{{Name: "Environnement", Description: ptr("env")}},
	}
}

func TestIdentityResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates once and reuses", func(t *testing.T) {
		store := newMemStore()
		resolver := NewIdentityResolver(store, nil)

		first, err := resolver.Resolve(ctx, testPayload("a"))
		require.NoError(t, err)

		reordered := testPayload("a")
		reordered.Tags = []string{"eau", "energie", "eau"}
		second, err := resolver.Resolve(ctx, reordered)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, store.resultCount())
	})

	t.Run("portal is part of identity", func(t *testing.T) {
		store := newMemStore()
		resolver := NewIdentityResolver(store, nil)

		p := testPayload("a")
		q := testPayload("a")
		q.Portal = "Other"

		a, err := resolver.Resolve(ctx, p)
		require.NoError(t, err)
		b, err := resolver.Resolve(ctx, q)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
		assert.Equal(t, 2, store.resultCount())
	})

	t.Run("differing tag set is a different result", func(t *testing.T) {
		store := newMemStore()
		resolver := NewIdentityResolver(store, nil)

		p := testPayload("a")
		q := testPayload("a")
		q.Tags = []string{"energie"}

		a, err := resolver.Resolve(ctx, p)
		require.NoError(t, err)
		b, err := resolver.Resolve(ctx, q)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("stores tags and groups", func(t *testing.T) {
		store := newMemStore()
		resolver := NewIdentityResolver(store, nil)

		id, err := resolver.Resolve(ctx, testPayload("a"))
		require.NoError(t, err)

		res, err := resolver.GetResult(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"eau", "energie"}, res.Tags)
		require.Len(t, res.Groups, 1)
		assert.Equal(t, "env", *res.Groups[0].Description)
		assert.Equal(t, domain.IdentityKey(testPayload("a")), res.IdentityKey)
	})

	t.Run("missing portal is rejected", func(t *testing.T) {
		store := newMemStore()
		resolver := NewIdentityResolver(store, nil)

		p := testPayload("a")
		p.Portal = ""
		_, err := resolver.Resolve(ctx, p)

		assert.ErrorIs(t, err, domain.ErrMissingPortal)
		assert.Equal(t, 0, store.calls)
	})

	t.Run("storage unavailable is surfaced", func(t *testing.T) {
		runner := new(MockTxRunner)
		runner.On("WithTx", mock.Anything, mock.Anything).Return(domain.StorageUnavailable(errors.New("down")))
		resolver := NewIdentityResolver(runner, nil)

		_, err := resolver.Resolve(ctx, testPayload("a"))

		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
		runner.AssertExpectations(t)
	})
}

func TestIdentityResolver_ConcurrentResolveCreatesOneResult(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	resolver := NewIdentityResolver(store, nil)

	const workers = 16
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := resolver.Resolve(ctx, testPayload("same"))
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, store.resultCount())
}

func TestIdentityResolver_Lookup(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	resolver := NewIdentityResolver(store, nil)

	_, found, err := resolver.Lookup(ctx, testPayload("a"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.resultCount(), "lookup must not create")

	id, err := resolver.Resolve(ctx, testPayload("a"))
	require.NoError(t, err)

	got, found, err := resolver.Lookup(ctx, testPayload("a"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, id, got)
}

func TestIdentityResolver_LookupUnknownTagNeverMatches(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	resolver := NewIdentityResolver(store, nil)

	_, err := resolver.Resolve(ctx, testPayload("a"))
	require.NoError(t, err)

	p := testPayload("a")
	p.Tags = append(p.Tags, "hydro")
	_, found, err := resolver.Lookup(ctx, p)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = store.state.tagID("hydro", "DataSud")
	require.NoError(t, err)
	assert.False(t, found, "lookup must not create tags")
}

func TestIdentityResolver_LookupRequiresExactLinks(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	resolver := NewIdentityResolver(store, nil)

	id, err := resolver.Resolve(ctx, testPayload("a"))
	require.NoError(t, err)

	err = store.WithTx(ctx, func(repos TxRepositories) error {
		tagID, found, err := repos.Tags().GetByName(ctx, "eau", "DataSud")
		require.True(t, found)
		if err != nil {
			return err
		}
		removed, err := repos.Tags().Unlink(ctx, id, tagID)
		assert.True(t, removed)
		return err
	})
	require.NoError(t, err)

	_, found, err := resolver.Lookup(ctx, testPayload("a"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdentityResolver_GetResultNotFound(t *testing.T) {
	resolver := NewIdentityResolver(newMemStore(), nil)

	_, err := resolver.GetResult(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrResultNotFound)
}
