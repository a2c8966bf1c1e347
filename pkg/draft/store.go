// Package draft holds ticket forms that are still being filled in. A requester has at most one
// draft; every edit replaces it wholesale and pushes its expiry out by the store's TTL.
package draft

import (
	"context"
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"time"
)

var (
	ErrDraftNotFound = errors.New("draft not found")
	ErrDraftExpired  = errors.New("draft expired")
)

type Store interface {
	Get(ctx context.Context, requesterId uint64) (model.Draft, error)
	Put(ctx context.Context, draft model.Draft) (model.Draft, error)
	// PutIfAbsent stores draft only while the requester has no live draft, so a form started in
	// the meantime is never overwritten.
	PutIfAbsent(ctx context.Context, draft model.Draft) (stored bool, err error)
	Clear(ctx context.Context, requesterId uint64) error
	// Take removes and returns the draft in one step, so two submits racing on the same draft
	// cannot both see it.
	Take(ctx context.Context, requesterId uint64) (model.Draft, error)

	RememberSubmission(ctx context.Context, requesterId uint64, key string, ref model.TicketRef) error
	Submission(ctx context.Context, requesterId uint64, key string) (model.TicketRef, bool, error)
}

const DefaultSubmissionTTL = 24 * time.Hour

type options struct {
	now           func() time.Time
	submissionTTL time.Duration
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithSubmissionTTL bounds how long a committed submission can be replayed.
func WithSubmissionTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.submissionTTL = ttl
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now:           time.Now,
		submissionTTL: DefaultSubmissionTTL,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func stamp(draft model.Draft, now time.Time, ttl time.Duration) model.Draft {
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	draft.UpdatedAt = now
	draft.ExpiresAt = now.Add(ttl)
	return draft
}
