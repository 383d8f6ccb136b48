package service

import (
	"context"
	"sync"
	"time"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/rs/zerolog/log"
)

// TailService regenerates environment logs on demand, coalescing bursts of
// refresh requests per environment.
type TailService struct {
	sandbox  *SandboxService
	debounce time.Duration
	autoTail bool

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]bool
}

// NewTailService creates a new TailService.
func NewTailService(sandbox *SandboxService, debounce time.Duration, autoTail bool) *TailService {
	return &TailService{
		sandbox:  sandbox,
		debounce: debounce,
		autoTail: autoTail,
		timers:   make(map[string]*time.Timer),
		pending:  make(map[string]bool),
	}
}

// TriggerRefresh triggers a debounced log refresh for envID.
// Multiple triggers within the debounce period will result in a single refresh.
func (t *TailService) TriggerRefresh(envID string) {
	if !t.autoTail {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Cancel existing timer
	if timer, ok := t.timers[envID]; ok {
		timer.Stop()
	}

	t.pending[envID] = true
	t.timers[envID] = time.AfterFunc(t.debounce, func() {
		t.mu.Lock()
		delete(t.pending, envID)
		delete(t.timers, envID)
		t.mu.Unlock()

		if _, err := t.sandbox.RefreshLogs(context.Background(), envID); err != nil {
			log.Warn().Err(err).Str("environment_id", envID).Msg("Auto-refresh failed")
		}
	})
}

// Enabled reports whether debounced refreshes are scheduled at all.
func (t *TailService) Enabled() bool {
	return t.autoTail
}

// Pending reports whether a debounced refresh is scheduled for envID.
func (t *TailService) Pending(envID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[envID]
}

// ForceRefresh refreshes envID immediately, dropping any scheduled refresh.
func (t *TailService) ForceRefresh(ctx context.Context, envID string) ([]*domain.LogEntry, error) {
	t.cancel(envID)
	return t.sandbox.RefreshLogs(ctx, envID)
}

// Watch cancels scheduled refreshes of deleted environments. The returned
// function stops watching.
func (t *TailService) Watch() (stop func()) {
	return t.sandbox.Subscribe(func(c domain.Change) {
		if c.Kind == domain.KindEnvironment && c.Op == domain.OpDelete {
			t.cancel(c.EnvironmentID)
		}
	})
}

// Stop cancels every scheduled refresh.
func (t *TailService) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
		delete(t.pending, id)
	}
}

func (t *TailService) cancel(envID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[envID]; ok {
		timer.Stop()
		delete(t.timers, envID)
	}
	delete(t.pending, envID)
}
