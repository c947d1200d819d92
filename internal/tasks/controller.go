// Package tasks is the task list engine: one controller per session owns the
// view state and the form state, and serializes every input through a single
// loop. List fetches are numbered; only the newest one is ever applied.
package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/ui"
)

// Poster receives transient messages for a session.
type Poster interface {
	Post(key string, kind ui.Kind, text string, ttl time.Duration) ui.Message
}

type Options struct {
	Owner string
	// Key addresses the session's transient messages.
	Key        string
	Store      backend.TaskStore
	Notifier   backend.Notifier
	Messages   Poster
	MessageTTL time.Duration
	Location   *time.Location
}

const (
	msgLoadFailed     = "Failed to load tasks"
	msgEditFailed     = "Failed to start editing"
	msgRealtimeFailed = "Realtime updates are unavailable"
	msgUnexpected     = "Something went wrong, please try again"
)

type EventKind string

const (
	EventRender  EventKind = "render"
	EventMessage EventKind = "message"
)

// Event is pushed to observers after every render and every posted message.
type Event struct {
	Kind    EventKind
	View    View
	Message ui.Message
}

// View is an immutable snapshot of what the dashboard shows.
type View struct {
	State  ViewState
	Form   FormView
	Cards  []Card
	Loaded bool
	Failed bool
	Seq    uint64
}

func (v View) Empty() bool { return v.Loaded && !v.Failed && len(v.Cards) == 0 }

type request struct {
	msg   Msg
	reply chan reply
}

type reply struct {
	view View
	err  error
}

type fetchResult struct {
	seq   uint64
	tasks []backend.Task
	err   error
}

type waiter struct {
	seq uint64
	ch  chan reply
	err error
}

type Controller struct {
	opts Options
	log  *zap.SugaredLogger

	inbox   chan request
	notify  chan struct{}
	results chan fetchResult
	done    chan struct{}
	stopped chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	unsub   backend.Unsubscribe

	// owned by the loop goroutine
	state   ViewState
	form    FormState
	tasks   []backend.Task
	cards   []Card
	failed  bool
	loaded  bool
	seq     uint64
	applied uint64
	waiters []waiter

	discarded atomic.Uint64

	mu        sync.RWMutex
	snap      View
	observers map[int]chan Event
	nextObs   int
}

// Start creates a controller, subscribes it to realtime changes for its
// owner and starts its loop. It runs until Close or until ctx ends.
func Start(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Owner == "" {
		return nil, errors.New("tasks: owner is required")
	}
	if opts.Store == nil {
		return nil, errors.New("tasks: store is required")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = 3 * time.Second
	}
	if opts.Key == "" {
		opts.Key = opts.Owner
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c := &Controller{
		opts:      opts,
		log:       applog.Named("tasks").With("owner", opts.Owner),
		inbox:     make(chan request),
		notify:    make(chan struct{}, 1),
		results:   make(chan fetchResult),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		cancel:    cancel,
		state:     DefaultViewState(),
		observers: make(map[int]chan Event),
	}
	c.snap = c.buildView()

	if opts.Notifier != nil {
		unsub, err := opts.Notifier.Subscribe(loopCtx, backend.TableTasks, opts.Owner, func(backend.Change) {
			select {
			case c.notify <- struct{}{}:
			default:
				// a refresh is already queued
			}
		})
		if err != nil {
			c.log.Warnw("realtime subscription failed", "error", err)
			c.post(ui.KindError, backend.Message(err, msgRealtimeFailed))
		} else {
			c.unsub = unsub
		}
	}

	go c.run(loopCtx)
	return c, nil
}

// Dispatch enqueues msg and waits until its effect is visible: for messages
// that re-fetch, until a list at least as new as the one they caused has
// been applied. The returned error is the failure the message produced, if
// any; it has already been posted as a transient message.
func (c *Controller) Dispatch(ctx context.Context, msg Msg) (View, error) {
	req := request{msg: msg, reply: make(chan reply, 1)}
	select {
	case c.inbox <- req:
	case <-c.done:
		return View{}, ErrClosed
	case <-c.stopped:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.view, r.err
	case <-c.done:
		return c.View(), ErrClosed
	case <-c.stopped:
		return c.View(), ErrClosed
	case <-ctx.Done():
		return c.View(), ctx.Err()
	}
}

func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Controller) Owner() string { return c.opts.Owner }

// DiscardedFetches counts list responses dropped because a newer fetch was issued.
func (c *Controller) DiscardedFetches() uint64 { return c.discarded.Load() }

// Subscribe registers an observer. Slow observers miss events rather than
// stall the loop. The channel is closed by cancel or Close.
func (c *Controller) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := c.nextObs
	c.nextObs++
	c.observers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.observers[id]; ok {
				delete(c.observers, id)
				close(ch)
			}
		})
	}
}

// Close unsubscribes from realtime changes and stops the loop. Pending
// Dispatch calls return ErrClosed.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		close(c.done)
		for id, ch := range c.observers {
			delete(c.observers, id)
			close(ch)
		}
		c.mu.Unlock()
		if c.unsub != nil {
			c.unsub()
		}
		c.cancel()
		<-c.stopped
		c.log.Debugw("controller closed")
	})
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			for _, w := range c.waiters {
				w.ch <- reply{view: c.View(), err: ErrClosed}
			}
			c.waiters = nil
			return
		case req := <-c.inbox:
			c.handle(ctx, req)
		case <-c.notify:
			c.log.Debugw("realtime change, refreshing")
			c.refresh(ctx)
		case r := <-c.results:
			c.apply(r)
		}
	}
}

func (c *Controller) handle(ctx context.Context, req request) {
	refresh, err := c.reduce(ctx, req.msg)
	if !refresh {
		c.publish()
		req.reply <- reply{view: c.View(), err: err}
		return
	}
	c.setSnapshot()
	seq := c.refresh(ctx)
	c.waiters = append(c.waiters, waiter{seq: seq, ch: req.reply, err: err})
}

// reduce applies msg to the loop state and runs any mutation. It reports
// whether the list must be re-fetched.
func (c *Controller) reduce(ctx context.Context, msg Msg) (bool, error) {
	switch m := msg.(type) {
	case FilterChanged:
		c.state.Filter = ParseFilter(string(m.Filter))
		return true, nil
	case SortChanged:
		if !backend.SortableColumn(m.Sort.Field) || (m.Sort.Dir != Asc && m.Sort.Dir != Desc) {
			m.Sort = DefaultSort
		}
		c.state.Sort = m.Sort
		return true, nil
	case Reload, RealtimeNotified:
		return true, nil
	case EditStarted:
		return false, c.startEdit(m.ID)
	case EditCancelled:
		c.form = c.form.Cancel()
		return false, nil
	case TaskSubmitted:
		return c.submit(ctx, Draft{Title: m.Title, Description: m.Description, DueDate: m.DueDate})
	case TaskToggled:
		done := m.Completed
		if _, err := c.opts.Store.Update(ctx, c.opts.Owner, m.ID, backend.Patch{Completed: &done}); err != nil {
			c.fail("toggle", err)
			// re-render anyway so the checkbox matches storage
			return true, err
		}
		return true, nil
	case TaskDeleted:
		if !m.Confirmed {
			c.log.Debugw("delete declined", "task", m.ID)
			return false, nil
		}
		if err := c.opts.Store.Delete(ctx, c.opts.Owner, m.ID); err != nil {
			c.fail("delete", err)
			return false, err
		}
		if c.form.Mode == ModeEditing && c.form.TaskID == m.ID {
			c.form = c.form.Cancel()
		}
		return true, nil
	}
	c.log.Warnw("unknown message", "type", msg)
	return false, nil
}

func (c *Controller) startEdit(id string) error {
	for _, t := range c.tasks {
		if t.ID != id {
			continue
		}
		if c.form.Mode == ModeEditing && c.form.TaskID != id {
			c.log.Infow("edit target replaced", "from", c.form.TaskID, "to", id)
		}
		c.form = c.form.StartEdit(t, c.opts.Location)
		return nil
	}
	err := backend.NewError("edit", msgEditFailed, backend.ErrNotFound)
	c.fail("edit", err)
	return err
}

func (c *Controller) submit(ctx context.Context, d Draft) (bool, error) {
	if err := validate(d); err != nil {
		c.form = c.form.Submit(d).Failed()
		c.post(ui.KindError, err.Error())
		return false, err
	}
	c.form = c.form.Submit(d)
	c.setSnapshot()

	title := strings.TrimSpace(d.Title)
	desc := strings.TrimSpace(d.Description)
	due := normalizeDue(d.DueDate, c.opts.Location)

	if c.form.Mode == ModeEditing {
		_, err := c.opts.Store.Update(ctx, c.opts.Owner, c.form.TaskID, backend.Patch{
			Title:       &title,
			Description: &desc,
			DueDate:     &due,
		})
		if err != nil {
			c.form = c.form.Failed()
			c.fail("update", err)
			return true, err
		}
		c.form = c.form.Succeeded()
		return true, nil
	}

	t, err := c.opts.Store.Insert(ctx, backend.NewTask{OwnerID: c.opts.Owner, Title: title, Description: desc, DueDate: due})
	if err != nil {
		c.form = c.form.Failed()
		c.fail("insert", err)
		return false, err
	}
	c.log.Debugw("task created", "task", t.ID)
	c.form = c.form.Succeeded()
	return true, nil
}

func (c *Controller) refresh(ctx context.Context) uint64 {
	c.seq++
	seq, q := c.seq, c.state.Query()
	go func() {
		ts, err := c.opts.Store.List(ctx, c.opts.Owner, q)
		select {
		case c.results <- fetchResult{seq: seq, tasks: ts, err: err}:
		case <-ctx.Done():
		}
	}()
	return seq
}

func (c *Controller) apply(r fetchResult) {
	if r.seq != c.seq {
		c.discarded.Add(1)
		c.log.Debugw("stale list discarded", "seq", r.seq, "latest", c.seq)
		return
	}
	if r.err != nil {
		c.log.Errorw("list failed", "error", r.err)
		c.tasks, c.cards, c.failed = nil, nil, true
		c.post(ui.KindError, msgLoadFailed)
	} else {
		c.tasks, c.failed = r.tasks, false
		c.cards = Project(r.tasks, c.opts.Location)
	}
	c.loaded = true
	c.applied = r.seq
	c.publish()

	view := c.View()
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.seq <= c.applied {
			w.ch <- reply{view: view, err: w.err}
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

func (c *Controller) fail(op string, err error) {
	c.log.Warnw("operation failed", "op", op, "error", err)
	c.post(ui.KindError, backend.Message(err, msgUnexpected))
}

func (c *Controller) post(kind ui.Kind, text string) {
	var m ui.Message
	if c.opts.Messages != nil {
		m = c.opts.Messages.Post(c.opts.Key, kind, text, c.opts.MessageTTL)
	} else {
		now := time.Now()
		m = ui.Message{Kind: kind, Text: text, Posted: now, Expires: now.Add(c.opts.MessageTTL)}
	}
	c.emit(Event{Kind: EventMessage, Message: m})
}

func (c *Controller) buildView() View {
	return View{
		State:  c.state,
		Form:   c.form.View(),
		Cards:  c.cards,
		Loaded: c.loaded,
		Failed: c.failed,
		Seq:    c.applied,
	}
}

func (c *Controller) setSnapshot() {
	v := c.buildView()
	c.mu.Lock()
	c.snap = v
	c.mu.Unlock()
}

func (c *Controller) publish() {
	c.setSnapshot()
	c.emit(Event{Kind: EventRender, View: c.View()})
}

func (c *Controller) emit(ev Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.observers {
		select {
		case ch <- ev:
		default:
			c.log.Debugw("observer lagging, event dropped", "kind", ev.Kind)
		}
	}
}
