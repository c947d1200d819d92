package tasks

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpatron68/todo-web/internal/backend"
	"github.com/elpatron68/todo-web/internal/backend/memory"
	"github.com/elpatron68/todo-web/internal/ui"
)

const owner = "user-1"

type harness struct {
	store    *memory.Store
	messages *ui.MessageStore
	ctrl     *Controller
}

func newHarness(t *testing.T, store backend.TaskStore, notifier backend.Notifier) *Controller {
	t.Helper()
	c, err := Start(context.Background(), Options{
		Owner:      owner,
		Key:        "sess-1",
		Store:      store,
		Notifier:   notifier,
		MessageTTL: time.Minute,
		Messages:   ui.NewMessageStore(10),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func setup(t *testing.T) harness {
	t.Helper()
	store := memory.New()
	msgs := ui.NewMessageStore(10)
	c, err := Start(context.Background(), Options{
		Owner:      owner,
		Key:        "sess-1",
		Store:      store,
		Notifier:   store,
		Messages:   msgs,
		MessageTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return harness{store: store, messages: msgs, ctrl: c}
}

func (h harness) dispatch(t *testing.T, msg Msg) (View, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.ctrl.Dispatch(ctx, msg)
}

func (h harness) messageTexts() []string {
	var out []string
	for _, m := range h.messages.Active("sess-1") {
		out = append(out, m.Text)
	}
	return out
}

func cardTitles(v View) []string {
	out := make([]string, 0, len(v.Cards))
	for _, c := range v.Cards {
		out = append(out, c.Title)
	}
	return out
}

func TestBuyMilkScenario(t *testing.T) {
	h := setup(t)

	v, err := h.dispatch(t, Reload{})
	require.NoError(t, err)
	assert.True(t, v.Empty())

	v, err = h.dispatch(t, TaskSubmitted{Title: "Buy milk"})
	require.NoError(t, err)
	require.Len(t, v.Cards, 1)
	card := v.Cards[0]
	assert.Equal(t, "Buy milk", card.Title)
	assert.Equal(t, NoDueDate, card.Due)
	assert.True(t, strings.HasPrefix(card.Created, "Added: "))
	assert.False(t, card.Completed)
	assert.Equal(t, "idle", v.Form.Mode)
	assert.Empty(t, v.Form.Title, "form is cleared after a create")

	v, err = h.dispatch(t, TaskToggled{ID: card.ID, Completed: true})
	require.NoError(t, err)
	require.Len(t, v.Cards, 1)
	assert.True(t, v.Cards[0].Completed)

	v, err = h.dispatch(t, TaskDeleted{ID: card.ID, Confirmed: false})
	require.NoError(t, err)
	require.Len(t, v.Cards, 1)
	assert.Equal(t, card.ID, v.Cards[0].ID)
	assert.True(t, v.Cards[0].Completed)

	v, err = h.dispatch(t, TaskDeleted{ID: card.ID, Confirmed: true})
	require.NoError(t, err)
	assert.Empty(t, v.Cards)

	all, err := h.store.List(context.Background(), owner, backend.Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

type countingStore struct {
	backend.TaskStore
	inserts atomic.Int32
	updates atomic.Int32
}

func (s *countingStore) Insert(ctx context.Context, nt backend.NewTask) (backend.Task, error) {
	s.inserts.Add(1)
	return s.TaskStore.Insert(ctx, nt)
}

func (s *countingStore) Update(ctx context.Context, o, id string, p backend.Patch) (backend.Task, error) {
	s.updates.Add(1)
	return s.TaskStore.Update(ctx, o, id, p)
}

func TestEmptyTitleNeverReachesStorage(t *testing.T) {
	store := &countingStore{TaskStore: memory.New()}
	msgs := ui.NewMessageStore(10)
	c, err := Start(context.Background(), Options{Owner: owner, Key: "k", Store: store, Messages: msgs, MessageTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	for _, title := range []string{"", "   ", "\t\n"} {
		v, err := c.Dispatch(context.Background(), TaskSubmitted{Title: title, Description: "keep me"})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, "keep me", v.Form.Description, "draft is kept")
	}
	assert.Zero(t, store.inserts.Load())

	active := msgs.Active("k")
	require.NotEmpty(t, active)
	assert.Equal(t, MsgTitleRequired, active[len(active)-1].Text)

	_, err = c.Dispatch(context.Background(), EditCancelled{})
	require.NoError(t, err)
}

func TestMalformedDateRendersUnknownDate(t *testing.T) {
	h := setup(t)
	h.store.Put(backend.Task{ID: "a", OwnerID: owner, Title: "broken", DueDate: "not-a-date", CreatedAt: "2025-01-01T10:00:00Z"})
	h.store.Put(backend.Task{ID: "b", OwnerID: owner, Title: "fine", CreatedAt: "2025-01-02T10:00:00Z"})
	h.store.Put(backend.Task{ID: "", OwnerID: owner, Title: "no id", CreatedAt: "2025-01-03T10:00:00Z"})

	v, err := h.dispatch(t, Reload{})
	require.NoError(t, err)
	require.Len(t, v.Cards, 2, "record without id is skipped, the rest render")
	byID := map[string]Card{}
	for _, c := range v.Cards {
		byID[c.ID] = c
	}
	assert.Equal(t, "Due: "+UnknownDate, byID["a"].Due)
	assert.Equal(t, "Added: Jan 2, 2025, 10:00 AM", byID["b"].Created)
}

func TestEditFlowReplacesTargetExplicitly(t *testing.T) {
	h := setup(t)
	_, err := h.dispatch(t, TaskSubmitted{Title: "first"})
	require.NoError(t, err)
	v, err := h.dispatch(t, TaskSubmitted{Title: "second", DueDate: "2025-03-04T09:30"})
	require.NoError(t, err)
	require.Len(t, v.Cards, 2)
	ids := map[string]string{}
	for _, c := range v.Cards {
		ids[c.Title] = c.ID
	}

	v, err = h.dispatch(t, EditStarted{ID: ids["first"]})
	require.NoError(t, err)
	assert.True(t, v.Form.Editing)
	assert.Equal(t, "Update Task", v.Form.SubmitLabel)
	assert.Equal(t, "first", v.Form.Title)

	v, err = h.dispatch(t, EditStarted{ID: ids["second"]})
	require.NoError(t, err)
	assert.Equal(t, ids["second"], v.Form.TaskID)
	assert.Equal(t, "2025-03-04T09:30", v.Form.DueDate)

	v, err = h.dispatch(t, TaskSubmitted{Title: "second (edited)", Description: "*now* with notes"})
	require.NoError(t, err)
	assert.False(t, v.Form.Editing)
	assert.Equal(t, "Add Task", v.Form.SubmitLabel)
	assert.ElementsMatch(t, []string{"first", "second (edited)"}, cardTitles(v))

	for _, c := range v.Cards {
		if c.ID == ids["second"] {
			assert.Equal(t, NoDueDate, c.Due, "an empty due date clears it")
			assert.Contains(t, string(c.DescriptionHTML), "<em>now</em>")
		}
	}
}

func TestEditFailureKeepsModeAndDraft(t *testing.T) {
	h := setup(t)
	v, err := h.dispatch(t, TaskSubmitted{Title: "task"})
	require.NoError(t, err)
	id := v.Cards[0].ID

	_, err = h.dispatch(t, EditStarted{ID: id})
	require.NoError(t, err)
	h.store.FailNext("update", "permission denied for table tasks")
	v, err = h.dispatch(t, TaskSubmitted{Title: "renamed"})
	require.Error(t, err)
	assert.True(t, v.Form.Editing)
	assert.Equal(t, id, v.Form.TaskID)
	assert.Equal(t, "renamed", v.Form.Title)
	assert.Equal(t, []string{"task"}, cardTitles(v))
	assert.Contains(t, h.messageTexts(), "permission denied for table tasks")

	v, err = h.dispatch(t, EditCancelled{})
	require.NoError(t, err)
	assert.Equal(t, "idle", v.Form.Mode)
	assert.Empty(t, v.Form.Title)
}

func TestStartEditOfUnknownTaskPostsMessage(t *testing.T) {
	h := setup(t)
	v, err := h.dispatch(t, EditStarted{ID: "missing"})
	require.Error(t, err)
	assert.False(t, v.Form.Editing)
	assert.Contains(t, h.messageTexts(), msgEditFailed)
}

func TestCollaboratorFailuresSurfaceVerbatim(t *testing.T) {
	h := setup(t)

	h.store.FailNext("insert", "duplicate key value violates unique constraint")
	v, err := h.dispatch(t, TaskSubmitted{Title: "draft title"})
	require.Error(t, err)
	assert.Equal(t, "idle", v.Form.Mode)
	assert.Equal(t, "draft title", v.Form.Title)

	v, err = h.dispatch(t, TaskSubmitted{Title: "draft title"})
	require.NoError(t, err)
	id := v.Cards[0].ID

	h.store.FailNext("update", "JWT expired")
	before := v.Seq
	v, err = h.dispatch(t, TaskToggled{ID: id, Completed: true})
	require.Error(t, err)
	assert.Greater(t, v.Seq, before, "a failed toggle still re-renders")
	assert.False(t, v.Cards[0].Completed)

	h.store.FailNext("delete", "network error")
	v, err = h.dispatch(t, TaskDeleted{ID: id, Confirmed: true})
	require.Error(t, err)
	require.Len(t, v.Cards, 1, "failed delete leaves the card in place")

	assert.Subset(t, h.messageTexts(), []string{
		"duplicate key value violates unique constraint",
		"JWT expired",
		"network error",
	})
}

func TestListFailureShowsErrorState(t *testing.T) {
	h := setup(t)
	h.store.FailNext("list", "connection refused")
	v, err := h.dispatch(t, Reload{})
	require.NoError(t, err)
	assert.True(t, v.Failed)
	assert.False(t, v.Empty())
	assert.Contains(t, h.messageTexts(), msgLoadFailed)

	v, err = h.dispatch(t, Reload{})
	require.NoError(t, err)
	assert.False(t, v.Failed)
}

func TestFilterAndSortAreStorageQueries(t *testing.T) {
	h := setup(t)
	h.store.Put(backend.Task{ID: "1", OwnerID: owner, Title: "banana", Completed: true, CreatedAt: "2025-01-01T00:00:00Z"})
	h.store.Put(backend.Task{ID: "2", OwnerID: owner, Title: "apple", CreatedAt: "2025-01-02T00:00:00Z"})
	h.store.Put(backend.Task{ID: "3", OwnerID: owner, Title: "cherry", Completed: true, CreatedAt: "2025-01-03T00:00:00Z"})
	h.store.Put(backend.Task{ID: "4", OwnerID: "someone-else", Title: "hidden", CreatedAt: "2025-01-04T00:00:00Z"})

	v, err := h.dispatch(t, Reload{})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"cherry", "apple", "banana"}, cardTitles(v)); diff != "" {
		t.Fatalf("default order mismatch (-want +got):\n%s", diff)
	}

	v, err = h.dispatch(t, FilterChanged{Filter: FilterCompleted})
	require.NoError(t, err)
	for _, c := range v.Cards {
		assert.True(t, c.Completed)
	}
	assert.Len(t, v.Cards, 2)

	v, err = h.dispatch(t, FilterChanged{Filter: FilterPending})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, cardTitles(v))

	_, err = h.dispatch(t, FilterChanged{Filter: FilterAll})
	require.NoError(t, err)
	s, ok := ParseSort("title-asc")
	require.True(t, ok)
	v, err = h.dispatch(t, SortChanged{Sort: s})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, cardTitles(v))
	assert.Equal(t, "title-asc", v.State.Sort.String())

	v, err = h.dispatch(t, SortChanged{Sort: Sort{Field: "owner", Dir: Asc}})
	require.NoError(t, err)
	assert.Equal(t, DefaultSort, v.State.Sort)
}

type gatedCall struct {
	q       backend.Query
	release chan struct{}
}

// gatedStore blocks every List until the test releases it.
type gatedStore struct {
	*memory.Store
	calls chan gatedCall
}

func (g *gatedStore) List(ctx context.Context, ownerID string, q backend.Query) ([]backend.Task, error) {
	call := gatedCall{q: q, release: make(chan struct{})}
	g.calls <- call
	select {
	case <-call.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Store.List(ctx, ownerID, q)
}

func TestStaleListResponseIsDiscarded(t *testing.T) {
	mem := memory.New()
	mem.Put(backend.Task{ID: "done", OwnerID: owner, Title: "done", Completed: true, CreatedAt: "2025-01-01T00:00:00Z"})
	mem.Put(backend.Task{ID: "open", OwnerID: owner, Title: "open", CreatedAt: "2025-01-02T00:00:00Z"})
	store := &gatedStore{Store: mem, calls: make(chan gatedCall, 4)}
	c := newHarness(t, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	views := make([]View, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		views[0], _ = c.Dispatch(ctx, FilterChanged{Filter: FilterCompleted})
	}()
	slow := <-store.calls
	require.NotNil(t, slow.q.Completed)
	assert.True(t, *slow.q.Completed)

	wg.Add(1)
	go func() {
		defer wg.Done()
		views[1], _ = c.Dispatch(ctx, FilterChanged{Filter: FilterPending})
	}()
	fast := <-store.calls

	close(fast.release)
	wg.Wait()
	close(slow.release)

	require.Eventually(t, func() bool { return c.DiscardedFetches() == 1 }, 2*time.Second, 10*time.Millisecond)
	for _, v := range append(views, c.View()) {
		assert.Equal(t, FilterPending, v.State.Filter)
		assert.Equal(t, []string{"open"}, cardTitles(v))
	}
}

func TestRealtimeChangeTriggersRender(t *testing.T) {
	h := setup(t)
	events, cancel := h.ctrl.Subscribe(8)
	defer cancel()

	_, err := h.store.Insert(context.Background(), backend.NewTask{OwnerID: owner, Title: "from another tab"})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventRender && len(ev.View.Cards) == 1 {
				assert.Equal(t, "from another tab", ev.View.Cards[0].Title)
				return
			}
		case <-deadline:
			t.Fatal("no render event after a realtime change")
		}
	}
}

func TestRealtimeSubscriptionFailureIsVisible(t *testing.T) {
	store := memory.New()
	store.FailNext("subscribe", "too many connections")
	msgs := ui.NewMessageStore(10)
	c, err := Start(context.Background(), Options{Owner: owner, Key: "k", Store: store, Notifier: store, Messages: msgs, MessageTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	active := msgs.Active("k")
	require.Len(t, active, 1)
	assert.Equal(t, "too many connections", active[0].Text)
	assert.Equal(t, ui.KindError, active[0].Kind)
}

func TestCloseTearsDownSubscription(t *testing.T) {
	h := setup(t)
	require.Equal(t, 1, h.store.Subscribers())
	events, _ := h.ctrl.Subscribe(1)

	h.ctrl.Close()
	h.ctrl.Close()
	assert.Equal(t, 0, h.store.Subscribers())
	_, err := h.ctrl.Dispatch(context.Background(), Reload{})
	assert.ErrorIs(t, err, ErrClosed)
	_, open := <-events
	assert.False(t, open)
}

func TestStartValidatesOptions(t *testing.T) {
	_, err := Start(context.Background(), Options{Store: memory.New()})
	assert.Error(t, err)
	_, err = Start(context.Background(), Options{Owner: owner})
	assert.Error(t, err)
}
