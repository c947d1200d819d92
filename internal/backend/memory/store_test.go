package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpatron68/todo-web/internal/backend"
)

func tickingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Minute)
		return cur
	}
}

func seed(t *testing.T, s *Store, owner string, titles ...string) []backend.Task {
	t.Helper()
	out := make([]backend.Task, 0, len(titles))
	for _, title := range titles {
		task, err := s.Insert(context.Background(), backend.NewTask{OwnerID: owner, Title: title})
		require.NoError(t, err)
		out = append(out, task)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestInsertAssignsIdentityAndTimestamps(t *testing.T) {
	s := New().WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	task, err := s.Insert(context.Background(), backend.NewTask{OwnerID: "u1", Title: "Buy milk"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "u1", task.OwnerID)
	assert.False(t, task.Completed)
	assert.Equal(t, "2025-01-01T00:01:00Z", task.CreatedAt)
}

func TestListScopesByOwnerAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	mine := seed(t, s, "u1", "a", "b", "c")
	seed(t, s, "u2", "theirs")
	_, err := s.Update(ctx, "u1", mine[1].ID, backend.Patch{Completed: ptr(true)})
	require.NoError(t, err)

	all, err := s.List(ctx, "u1", backend.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	done, err := s.List(ctx, "u1", backend.Query{Completed: ptr(true)})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "b", done[0].Title)

	pending, err := s.List(ctx, "u1", backend.Query{Completed: ptr(false)})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	for _, p := range pending {
		assert.False(t, p.Completed)
	}
}

func TestListSortOrders(t *testing.T) {
	ctx := context.Background()
	s := New().WithClock(tickingClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	seed(t, s, "u1", "banana", "apple", "cherry")

	desc, err := s.List(ctx, "u1", backend.Query{OrderBy: backend.ColumnCreatedAt})
	require.NoError(t, err)
	assert.Equal(t, []string{"cherry", "apple", "banana"}, titles(desc))

	byTitle, err := s.List(ctx, "u1", backend.Query{OrderBy: backend.ColumnTitle, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, titles(byTitle))
}

func TestListSortPutsNullDueDatesLastAscending(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put(backend.Task{ID: "1", OwnerID: "u1", Title: "none"})
	s.Put(backend.Task{ID: "2", OwnerID: "u1", Title: "late", DueDate: "2025-03-01T10:00:00Z"})
	s.Put(backend.Task{ID: "3", OwnerID: "u1", Title: "early", DueDate: "2025-02-01T10:00:00Z"})

	asc, err := s.List(ctx, "u1", backend.Query{OrderBy: backend.ColumnDueDate, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late", "none"}, titles(asc))

	desc, err := s.List(ctx, "u1", backend.Query{OrderBy: backend.ColumnDueDate})
	require.NoError(t, err)
	assert.Equal(t, []string{"none", "late", "early"}, titles(desc))
}

func TestListSortTiesKeepStorageOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"1", "2", "3"} {
		s.Put(backend.Task{ID: id, OwnerID: "u1", Title: "same", CreatedAt: "2025-01-01T00:00:00Z"})
	}
	got, err := s.List(ctx, "u1", backend.Query{OrderBy: backend.ColumnTitle, Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestListRejectsUnknownColumn(t *testing.T) {
	_, err := New().List(context.Background(), "u1", backend.Query{OrderBy: "password"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrInvalidColumn))
}

func TestUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	s := New()
	task := seed(t, s, "u1", "mine")[0]

	_, err := s.Update(ctx, "u2", task.ID, backend.Patch{Title: ptr("stolen")})
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "u2", task.ID), backend.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "u1", task.ID))
	left, err := s.List(ctx, "u1", backend.Query{})
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestUpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	s := New()
	task, err := s.Insert(ctx, backend.NewTask{OwnerID: "u1", Title: "t", Description: "keep", DueDate: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)

	got, err := s.Update(ctx, "u1", task.ID, backend.Patch{Completed: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "keep", got.Description)
	assert.Equal(t, "2025-01-01T00:00:00Z", got.DueDate)

	got, err = s.Update(ctx, "u1", task.ID, backend.Patch{DueDate: ptr("")})
	require.NoError(t, err)
	assert.Empty(t, got.DueDate)
}

func TestFailNextReturnsCollaboratorError(t *testing.T) {
	s := New()
	s.FailNext("insert", "database is read-only")
	_, err := s.Insert(context.Background(), backend.NewTask{OwnerID: "u1", Title: "x"})
	require.Error(t, err)
	assert.Equal(t, "database is read-only", backend.Message(err, "fallback"))

	_, err = s.Insert(context.Background(), backend.NewTask{OwnerID: "u1", Title: "x"})
	assert.NoError(t, err)
}

func TestSubscribeReceivesOwnerChangesOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	var got []backend.Change
	unsub, err := s.Subscribe(ctx, backend.TableTasks, "u1", func(c backend.Change) { got = append(got, c) })
	require.NoError(t, err)

	task := seed(t, s, "u1", "a")[0]
	seed(t, s, "u2", "b")
	_, err = s.Update(ctx, "u1", task.ID, backend.Patch{Completed: ptr(true)})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "u1", task.ID))

	ops := make([]backend.ChangeOp, 0, len(got))
	for _, c := range got {
		ops = append(ops, c.Op)
	}
	assert.Equal(t, []backend.ChangeOp{backend.OpInsert, backend.OpUpdate, backend.OpDelete}, ops)

	unsub()
	unsub()
	assert.Equal(t, 0, s.Subscribers())
	seed(t, s, "u1", "after")
	assert.Len(t, got, 3)
}

func titles(ts []backend.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}
