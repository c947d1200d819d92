package postgres

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

type subscription struct {
	table string
	owner string
	fn    func(backend.Change)
}

// Listener holds one dedicated connection in LISTEN mode and fans
// notifications out to subscribers filtered by table and owner.
type Listener struct {
	pool *pgxpool.Pool

	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

var _ backend.Notifier = (*Listener)(nil)

func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{pool: pool, subs: make(map[int]subscription)}
}

func (l *Listener) Subscribe(ctx context.Context, table, ownerID string, fn func(backend.Change)) (backend.Unsubscribe, error) {
	if fn == nil {
		return nil, errors.New("subscription callback is nil")
	}
	if table != backend.TableTasks {
		return nil, backend.NewError("subscribe", "Unknown table: "+table, nil)
	}
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.subs[id] = subscription{table: table, owner: ownerID, fn: fn}
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
		})
	}, nil
}

// Run blocks until ctx is done, reconnecting with exponential backoff when
// the listening connection drops. Every subscriber is told to resync once a
// reconnect succeeds, since notifications sent meanwhile are gone.
func (l *Listener) Run(ctx context.Context) {
	backoff := minBackoff
	reconnect := false
	for {
		err := l.listen(ctx, reconnect)
		if ctx.Err() != nil {
			return
		}
		reconnect = true
		applog.Warnf("listener: connection lost, retrying in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context, reconnect bool) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}
	applog.Infof("listener: listening on %s", notifyChannel)
	if reconnect {
		l.resync()
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(n.Payload)
	}
}

func (l *Listener) dispatch(payload string) {
	var c backend.Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		applog.Warnf("listener: malformed payload %q: %v", payload, err)
		return
	}

	l.mu.Lock()
	targets := make([]func(backend.Change), 0, len(l.subs))
	for _, s := range l.subs {
		if s.table == c.Table && s.owner == c.OwnerID {
			targets = append(targets, s.fn)
		}
	}
	l.mu.Unlock()

	for _, fn := range targets {
		fn(c)
	}
}

// resync sends every subscriber a RESYNC change for its own table and owner.
func (l *Listener) resync() {
	l.mu.Lock()
	subs := make([]subscription, 0, len(l.subs))
	for _, s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		s.fn(backend.Change{Table: s.table, Op: backend.OpResync, OwnerID: s.owner})
	}
}
