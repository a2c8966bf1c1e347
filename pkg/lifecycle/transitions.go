package lifecycle

import (
	"context"
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/events"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"go.uber.org/zap"
)

// Claim assigns an open ticket to actor. Of several concurrent claims exactly one succeeds; the
// rest receive ErrAlreadyClaimed.
func (c *Coordinator) Claim(ctx context.Context, ref model.TicketRef, actor Actor) (model.Ticket, error) {
	ticket, err := c.Ticket(ctx, ref)
	if err != nil {
		return model.Ticket{}, err
	}

	if !c.policy.CanPerform(actor, ticket, ActionClaim) {
		return model.Ticket{}, ErrNotAuthorized
	}

	switch ticket.Status {
	case model.StatusClaimed:
		return model.Ticket{}, ErrAlreadyClaimed
	case model.StatusClosed:
		return model.Ticket{}, ErrTicketClosed
	}

	claimed, ok, err := c.transition(ctx, func(tickets repository.TicketRepository) (model.Ticket, bool, error) {
		return tickets.ClaimTicket(ctx, ref, actor.Id, c.now())
	})
	if err != nil {
		return model.Ticket{}, err
	}

	if !ok {
		c.metrics.ClaimConflicts.Inc()
		return model.Ticket{}, c.lostTransition(ctx, ref, ErrAlreadyClaimed)
	}

	c.transitioned(ctx, ActionClaim, events.TypeClaimed, claimed, actor)
	return claimed, nil
}

// Unclaim hands a claimed ticket back to the open pool. The update only applies while the claim
// observed here is still in place.
func (c *Coordinator) Unclaim(ctx context.Context, ref model.TicketRef, actor Actor) (model.Ticket, error) {
	ticket, err := c.Ticket(ctx, ref)
	if err != nil {
		return model.Ticket{}, err
	}

	if !c.policy.CanPerform(actor, ticket, ActionUnclaim) {
		return model.Ticket{}, ErrNotAuthorized
	}

	switch {
	case ticket.Status == model.StatusClosed:
		return model.Ticket{}, ErrTicketClosed
	case ticket.Status != model.StatusClaimed || ticket.ClaimantId == nil:
		return model.Ticket{}, ErrNotClaimed
	}

	observed := *ticket.ClaimantId
	unclaimed, ok, err := c.transition(ctx, func(tickets repository.TicketRepository) (model.Ticket, bool, error) {
		return tickets.UnclaimTicket(ctx, ref, observed, c.now())
	})
	if err != nil {
		return model.Ticket{}, err
	}

	if !ok {
		return model.Ticket{}, c.lostTransition(ctx, ref, ErrNotClaimed)
	}

	c.transitioned(ctx, ActionUnclaim, events.TypeUnclaimed, unclaimed, actor)
	return unclaimed, nil
}

// Close ends the ticket from either open or claimed. A closed ticket is archived and never
// transitions again.
func (c *Coordinator) Close(ctx context.Context, ref model.TicketRef, actor Actor) (model.Ticket, error) {
	ticket, err := c.Ticket(ctx, ref)
	if err != nil {
		return model.Ticket{}, err
	}

	if !c.policy.CanPerform(actor, ticket, ActionClose) {
		return model.Ticket{}, ErrNotAuthorized
	}

	if ticket.Status == model.StatusClosed {
		return model.Ticket{}, ErrAlreadyClosed
	}

	closed, ok, err := c.transition(ctx, func(tickets repository.TicketRepository) (model.Ticket, bool, error) {
		return tickets.CloseTicket(ctx, ref, actor.Id, c.now())
	})
	if err != nil {
		return model.Ticket{}, err
	}

	if !ok {
		return model.Ticket{}, c.lostTransition(ctx, ref, ErrAlreadyClosed)
	}

	if c.archiver != nil {
		archiveCtx, cancel := detached(ctx)
		if err := c.archiver.ArchiveTicket(archiveCtx, closed); err != nil {
			c.logger.Error("Failed to archive closed ticket", zap.Error(err), zap.Stringer("ticket", ref))
		}
		cancel()
	}

	c.transitioned(ctx, ActionClose, events.TypeClosed, closed, actor)
	return closed, nil
}

func (c *Coordinator) transition(
	ctx context.Context,
	f func(repository.TicketRepository) (model.Ticket, bool, error),
) (ticket model.Ticket, ok bool, err error) {
	err = c.store.Tx(ctx, func(r repository.Repositories) (err error) {
		ticket, ok, err = f(r.Tickets())
		return
	})

	return
}

// lostTransition explains why a conditional update matched no row: the ticket moved between the
// read and the write. A ticket that was closed in the meantime always reports as closed.
func (c *Coordinator) lostTransition(ctx context.Context, ref model.TicketRef, fallback error) error {
	current, err := c.Ticket(ctx, ref)
	if err != nil {
		return err
	}

	if current.Status == model.StatusClosed && !errors.Is(fallback, ErrAlreadyClosed) {
		return ErrTicketClosed
	}

	return fallback
}

func (c *Coordinator) transitioned(ctx context.Context, action Action, eventType events.Type, ticket model.Ticket, actor Actor) {
	c.metrics.Transitions.WithLabelValues(string(action)).Inc()
	c.publish(ctx, eventType, ticket, actor.Id)

	c.logger.Info(
		"Ticket transitioned",
		zap.String("action", string(action)),
		zap.Stringer("ticket", ticket.Ref()),
		zap.Uint64("actor", actor.Id),
		zap.String("status", string(ticket.Status)),
	)
}
