package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nameless struct {
	ID uint
}

func (nameless) TableName() string { return "" }

func (n nameless) GetPrimaryKeyValue() interface{} { return n.ID }

func TestNewGenericRepository(t *testing.T) {
	_, err := NewGenericRepository[member](nil)
	assert.Error(t, err)

	m := newTestManager(t)

	_, err = NewGenericRepository[nameless](m.DB())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty TableName")

	repo, err := NewGenericRepository[member](m.DB())
	require.NoError(t, err)
	assert.Equal(t, "members", repo.model.table)
	assert.Equal(t, "id", repo.model.primaryKey)
	assert.Equal(t, "deleted_at", repo.model.softDelete)

	tags, err := NewGenericRepository[tag](m.DB())
	require.NoError(t, err)
	assert.Empty(t, tags.model.softDelete)
}

func TestRawRequiresDatabase(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	repo, err := NewGenericRepository[member](m.DB())
	require.NoError(t, err)
	_, err = repo.Raw(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNoDatabase)

	repo, err = NewGenericRepository[member](nil, WithDatabase(m))
	require.NoError(t, err)
	seedMembers(t, repo, 2)

	rows, err := repo.Raw(ctx, "SELECT full_name FROM members WHERE age > ?", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, "Member 2", rows[0]["full_name"])
}

func TestPageMeta(t *testing.T) {
	meta := pageMeta(11, 2, 10, "/users?search=a")
	assert.Equal(t, int64(11), meta.Total)
	assert.Equal(t, 2, meta.LastPage)
	assert.Equal(t, 1, meta.FirstPage)
	assert.Equal(t, "/users?page=1&search=a", meta.FirstPageURL)
	assert.Equal(t, "/users?page=2&search=a", meta.LastPageURL)
	assert.Nil(t, meta.NextPageURL)
	require.NotNil(t, meta.PreviousPageURL)
	assert.Equal(t, "/users?page=1&search=a", *meta.PreviousPageURL)
	assert.False(t, meta.HasMorePages())

	empty := pageMeta(0, 1, 10, "")
	assert.Equal(t, 1, empty.LastPage)
	assert.Equal(t, "/?page=1", empty.FirstPageURL)
	assert.Nil(t, empty.NextPageURL)
	assert.Nil(t, empty.PreviousPageURL)
}
