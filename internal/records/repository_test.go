package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository_SaveAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	rec := &Record{Source: SourceText, Status: StatusOK, Reasons: []string{}}
	require.NoError(t, repo.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, got.Status)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryRepository_List(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	for i, status := range []string{StatusOK, StatusNeedsClarification, StatusOK, StatusNeedsClarification} {
		require.NoError(t, repo.Save(ctx, &Record{
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt), "newest first")

	clar, err := repo.List(ctx, ListFilter{Status: StatusNeedsClarification, Limit: 1})
	require.NoError(t, err)
	require.Len(t, clar, 1)
	assert.Equal(t, base.Add(3*time.Minute), clar[0].CreatedAt)

	empty, err := repo.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryRepository_CopiesOnSave(t *testing.T) {
	repo := NewInMemoryRepository()
	rec := &Record{Reasons: []string{"a"}}
	require.NoError(t, repo.Save(context.Background(), rec))
	rec.Reasons[0] = "mutated"

	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got.Reasons)
}
