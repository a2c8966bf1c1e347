package draft

import (
	"context"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"go.uber.org/zap"
	"sync"
	"time"
)

type (
	MemoryStore struct {
		logger      *zap.Logger
		ttl         time.Duration
		opts        options
		drafts      map[uint64]model.Draft
		submissions map[submissionKey]submission
		mu          sync.Mutex
	}

	submissionKey struct {
		requesterId uint64
		key         string
	}

	submission struct {
		ref       model.TicketRef
		expiresAt time.Time
	}
)

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger *zap.Logger, ttl time.Duration, opts ...Option) *MemoryStore {
	return &MemoryStore{
		logger:      logger,
		ttl:         ttl,
		opts:        buildOptions(opts),
		drafts:      make(map[uint64]model.Draft),
		submissions: make(map[submissionKey]submission),
	}
}

// lookup enforces expiry lazily: an expired draft is dropped the first time it is touched.
// Callers must hold mu.
func (s *MemoryStore) lookup(requesterId uint64) (model.Draft, error) {
	draft, ok := s.drafts[requesterId]
	if !ok {
		return model.Draft{}, ErrDraftNotFound
	}

	if draft.Expired(s.opts.now()) {
		delete(s.drafts, requesterId)
		return model.Draft{}, ErrDraftExpired
	}

	return draft, nil
}

func (s *MemoryStore) Get(_ context.Context, requesterId uint64) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(requesterId)
}

func (s *MemoryStore) Put(_ context.Context, draft model.Draft) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft = stamp(draft, s.opts.now(), s.ttl)
	s.drafts[draft.RequesterId] = draft

	return draft, nil
}

func (s *MemoryStore) PutIfAbsent(_ context.Context, draft model.Draft) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(draft.RequesterId); err == nil {
		return false, nil
	}

	s.drafts[draft.RequesterId] = stamp(draft, s.opts.now(), s.ttl)
	return true, nil
}

func (s *MemoryStore) Clear(_ context.Context, requesterId uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, requesterId)
	return nil
}

func (s *MemoryStore) Take(_ context.Context, requesterId uint64) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, err := s.lookup(requesterId)
	if err != nil {
		return model.Draft{}, err
	}

	delete(s.drafts, requesterId)
	return draft, nil
}

func (s *MemoryStore) RememberSubmission(_ context.Context, requesterId uint64, key string, ref model.TicketRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions[submissionKey{requesterId, key}] = submission{
		ref:       ref,
		expiresAt: s.opts.now().Add(s.opts.submissionTTL),
	}

	return nil
}

func (s *MemoryStore) Submission(_ context.Context, requesterId uint64, key string) (model.TicketRef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := submissionKey{requesterId, key}
	record, ok := s.submissions[k]
	if !ok {
		return model.TicketRef{}, false, nil
	}

	if !s.opts.now().Before(record.expiresAt) {
		delete(s.submissions, k)
		return model.TicketRef{}, false, nil
	}

	return record.ref, true, nil
}

// Sweep drops every expired draft and submission record, returning how many drafts were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.now()

	removed := 0
	for requesterId, draft := range s.drafts {
		if draft.Expired(now) {
			s.logger.Debug(
				"Removing expired draft",
				zap.Uint64("requester", requesterId),
				zap.Time("expired_at", draft.ExpiresAt),
			)

			delete(s.drafts, requesterId)
			removed++
		}
	}

	for k, record := range s.submissions {
		if !now.Before(record.expiresAt) {
			delete(s.submissions, k)
		}
	}

	return removed
}

// StartReaper sweeps on every tick until ctx is cancelled. Lazy expiry already keeps reads
// correct; the reaper only bounds memory held by abandoned drafts.
func (s *MemoryStore) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logger.Debug("Running draft reaper")

			if removed := s.Sweep(); removed > 0 {
				s.logger.Info("Reaped expired drafts", zap.Int("count", removed))
			}
		}
	}
}
