package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/internal/drafts"
)

const (
	DefaultDraftDelay = time.Second
	draftWriteTimeout = 5 * time.Second
)

// DraftRecord is the persisted shape of an unsubmitted wizard
type DraftRecord struct {
	Step            int             `json:"step"`
	Draft           PropertyDraft   `json:"draft"`
	RoomTypes       []RoomType      `json:"roomTypes"`
	BackendProperty *PropertyRecord `json:"backendProperty,omitempty"`
	SubmissionKey   string          `json:"submissionKey,omitempty"`
}

// DraftKeeper mirrors one wizard into a draft store. Writes are debounced and
// fire-and-forget; failures are only logged.
type DraftKeeper struct {
	store  drafts.Store
	key    string
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending []byte
	gen     uint64

	// serializes store writes so Clear never races an in-flight save
	writeMu sync.Mutex
}

func NewDraftKeeper(store drafts.Store, key string, delay time.Duration, logger *zap.Logger) *DraftKeeper {
	if delay <= 0 {
		delay = DefaultDraftDelay
	}
	return &DraftKeeper{
		store:  store,
		key:    key,
		delay:  delay,
		logger: logger.With(zap.String("draft_key", key)),
	}
}

func (k *DraftKeeper) Key() string {
	return k.key
}

// Load returns the stored record. Missing or unreadable records yield false.
func (k *DraftKeeper) Load(ctx context.Context) (*DraftRecord, bool) {
	data, err := k.store.Load(ctx, k.key)
	if errors.Is(err, drafts.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		k.logger.Warn("Failed to load draft", zap.Error(err))
		return nil, false
	}

	var rec DraftRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		k.logger.Warn("Discarding corrupt draft", zap.Error(err))
		if err := k.store.Delete(ctx, k.key); err != nil {
			k.logger.Warn("Failed to delete corrupt draft", zap.Error(err))
		}
		return nil, false
	}
	return &rec, true
}

// Schedule replaces any pending write with rec and restarts the quiet period
func (k *DraftKeeper) Schedule(rec DraftRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		k.logger.Error("Failed to encode draft", zap.Error(err))
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.pending = data
	k.gen++
	gen := k.gen
	if k.timer != nil {
		k.timer.Stop()
	}
	k.timer = time.AfterFunc(k.delay, func() { k.fire(gen) })
}

func (k *DraftKeeper) fire(gen uint64) {
	k.mu.Lock()
	if gen != k.gen || k.pending == nil {
		k.mu.Unlock()
		return
	}
	data := k.pending
	k.pending = nil
	k.writeMu.Lock()
	k.mu.Unlock()
	defer k.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), draftWriteTimeout)
	defer cancel()
	if err := k.store.Save(ctx, k.key, data); err != nil {
		k.logger.Warn("Draft save failed", zap.Error(err))
	}
}

// Flush writes any pending record immediately
func (k *DraftKeeper) Flush(ctx context.Context) error {
	k.mu.Lock()
	data := k.pending
	k.pending = nil
	k.gen++
	if k.timer != nil {
		k.timer.Stop()
	}
	k.mu.Unlock()

	if data == nil {
		return nil
	}
	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	if err := k.store.Save(ctx, k.key, data); err != nil {
		return fmt.Errorf("flush draft: %w", err)
	}
	return nil
}

// Clear drops any pending write and deletes the stored record
func (k *DraftKeeper) Clear(ctx context.Context) error {
	k.mu.Lock()
	k.pending = nil
	k.gen++
	if k.timer != nil {
		k.timer.Stop()
	}
	k.mu.Unlock()

	k.writeMu.Lock()
	defer k.writeMu.Unlock()
	if err := k.store.Delete(ctx, k.key); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
