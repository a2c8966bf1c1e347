// Package lifecycle commits drafts into tickets and moves tickets through open, claimed and closed.
//
// Every storage step is a single atomic operation. The only place two of them run back to back
// without a shared transaction is reserve-then-write in Submit, and that path releases the
// reservation again if the write fails.
package lifecycle

import (
	"context"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/events"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/metrics"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/quota"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/sequence"
	"go.uber.org/zap"
	"time"
)

const sideEffectTimeout = 5 * time.Second

type Archiver interface {
	ArchiveTicket(ctx context.Context, ticket model.Ticket) error
}

type Options struct {
	Logger    *zap.Logger
	Store     repository.Store
	Drafts    draft.Store
	Ledger    *quota.Ledger
	Sequences *sequence.Service
	Policy    Policy

	// Optional collaborators.
	Publisher events.Publisher
	Archiver  Archiver
	Metrics   *metrics.Metrics

	// MinMemberAge gates quota categories on how long the requester has been in the guild.
	MinMemberAge time.Duration
	Now          func() time.Time
}

type Coordinator struct {
	logger       *zap.Logger
	store        repository.Store
	drafts       draft.Store
	ledger       *quota.Ledger
	sequences    *sequence.Service
	policy       Policy
	publisher    events.Publisher
	archiver     Archiver
	metrics      *metrics.Metrics
	minMemberAge time.Duration
	now          func() time.Time
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		logger:       opts.Logger,
		store:        opts.Store,
		drafts:       opts.Drafts,
		ledger:       opts.Ledger,
		sequences:    opts.Sequences,
		policy:       opts.Policy,
		publisher:    opts.Publisher,
		archiver:     opts.Archiver,
		metrics:      opts.Metrics,
		minMemberAge: opts.MinMemberAge,
		now:          opts.Now,
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	if c.publisher == nil {
		c.publisher = events.NoopPublisher{}
	}

	if c.metrics == nil {
		c.metrics = metrics.New()
	}

	if c.now == nil {
		c.now = time.Now
	}

	return c
}

func (c *Coordinator) Policy() Policy {
	return c.policy
}

func (c *Coordinator) Ticket(ctx context.Context, ref model.TicketRef) (model.Ticket, error) {
	var (
		ticket model.Ticket
		ok     bool
	)

	if err := c.store.Tx(ctx, func(r repository.Repositories) (err error) {
		ticket, ok, err = r.Tickets().GetTicket(ctx, ref)
		return
	}); err != nil {
		return model.Ticket{}, err
	}

	if !ok {
		return model.Ticket{}, fmt.Errorf("ticket %s: %w", ref, ErrNotFound)
	}

	return ticket, nil
}

func (c *Coordinator) TicketsByRequester(ctx context.Context, requesterId uint64, status model.Status) ([]model.Ticket, error) {
	var tickets []model.Ticket
	if err := c.store.Tx(ctx, func(r repository.Repositories) (err error) {
		tickets, err = r.Tickets().ListByRequester(ctx, requesterId, status)
		return
	}); err != nil {
		return nil, err
	}

	return tickets, nil
}

// detached keeps compensation and best-effort side effects running when the caller's context has
// already been cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
}

func (c *Coordinator) publish(ctx context.Context, eventType events.Type, ticket model.Ticket, actorId uint64) {
	event := events.NewEvent(eventType, ticket, actorId, c.now())

	data, err := event.Encode()
	if err != nil {
		c.logger.Error("Failed to encode ticket event", zap.Error(err))
		return
	}

	ctx, cancel := detached(ctx)
	defer cancel()

	if err := c.publisher.Publish(ctx, event.Key(), data); err != nil {
		c.logger.Warn(
			"Failed to publish ticket event",
			zap.Error(err),
			zap.String("type", string(eventType)),
			zap.Stringer("ticket", ticket.Ref()),
		)
	}
}
