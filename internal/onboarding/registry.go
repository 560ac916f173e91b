package onboarding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/wizard"
)

// session is one live wizard owned by a partner
type session struct {
	wizard   *wizard.Wizard
	owner    string
	draftKey string
	lastSeen time.Time
}

// Registry holds live wizards in memory and evicts the idle ones. Evicted
// add-flow wizards have their pending draft flushed so they can be resumed.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*session
	byDraftKey map[string]string
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	cleanup    *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewRegistry creates a registry. Call Start to run the eviction loop.
func NewRegistry(ttl time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		sessions:   make(map[string]*session),
		byDraftKey: make(map[string]string),
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start runs the eviction loop every interval until Close
func (r *Registry) Start(interval time.Duration) {
	r.cleanup = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-r.cleanup.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				r.Sweep(ctx)
				cancel()
			case <-r.done:
				return
			}
		}
	}()
}

// Close stops the eviction loop and flushes every pending draft
func (r *Registry) Close(ctx context.Context) {
	r.closeOnce.Do(func() {
		close(r.done)
		if r.cleanup != nil {
			r.cleanup.Stop()
		}
	})

	r.mu.RLock()
	live := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.RUnlock()

	for _, s := range live {
		if err := s.wizard.FlushDraft(ctx); err != nil {
			r.logger.Warn("Failed to flush draft on shutdown", zap.String("session_id", s.wizard.ID()), zap.Error(err))
		}
	}
}

func (r *Registry) add(w *wizard.Wizard, owner, draftKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[w.ID()] = &session{
		wizard:   w,
		owner:    owner,
		draftKey: draftKey,
		lastSeen: r.now(),
	}
	if draftKey != "" {
		r.byDraftKey[draftKey] = w.ID()
	}
}

// get returns the session and marks it as used
func (r *Registry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.lastSeen = r.now()
	}
	return s, ok
}

func (r *Registry) byDraft(key string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDraftKey[key]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	if s.draftKey != "" && r.byDraftKey[s.draftKey] == id {
		delete(r.byDraftKey, s.draftKey)
	}
}

// Sweep evicts sessions idle for longer than the ttl and returns how many
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var evicted []*session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && !s.wizard.Snapshot().Submitting {
			evicted = append(evicted, s)
			r.removeLocked(id)
		}
	}
	r.mu.Unlock()

	for _, s := range evicted {
		if err := s.wizard.FlushDraft(ctx); err != nil {
			r.logger.Warn("Failed to flush evicted draft", zap.String("session_id", s.wizard.ID()), zap.Error(err))
		}
	}
	if len(evicted) > 0 {
		r.logger.Info("Evicted idle wizard sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
