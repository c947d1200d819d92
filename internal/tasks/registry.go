package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

type entry struct {
	ctrl     *Controller
	lastUsed time.Time
}

// Registry owns one controller per session. Controllers live until the
// session logs out, goes idle, or the registry is closed.
type Registry struct {
	ctx  context.Context
	base Options
	now  func() time.Time

	mu    sync.Mutex
	byKey map[string]*entry
}

// NewRegistry creates controllers from base; Owner and Key come from the session.
func NewRegistry(ctx context.Context, base Options) *Registry {
	return &Registry{ctx: ctx, base: base, now: time.Now, byKey: make(map[string]*entry)}
}

// For returns the session's controller, starting it on first use. A
// controller is never shared between owners.
func (r *Registry) For(sess *backend.Session) (*Controller, error) {
	key := sess.ID
	if key == "" {
		key = sess.AccessToken
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byKey[key]; ok && e.ctrl.Owner() == sess.UserID {
		e.lastUsed = r.now()
		return e.ctrl, nil
	} else if ok {
		e.ctrl.Close()
		delete(r.byKey, key)
	}

	opts := r.base
	opts.Owner = sess.UserID
	opts.Key = key
	c, err := Start(r.ctx, opts)
	if err != nil {
		return nil, err
	}
	r.byKey[key] = &entry{ctrl: c, lastUsed: r.now()}
	applog.Debugf("tasks: controller started: session=%s owner=%s", key, sess.UserID)
	return c, nil
}

func (r *Registry) Close(key string) {
	r.mu.Lock()
	e, ok := r.byKey[key]
	delete(r.byKey, key)
	r.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
}

// Prune closes controllers unused for longer than idle and reports how many it closed.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	var stale []*Controller
	r.mu.Lock()
	for key, e := range r.byKey {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.ctrl)
			delete(r.byKey, key)
		}
	}
	r.mu.Unlock()
	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.byKey
	r.byKey = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range all {
		e.ctrl.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byKey)
}
