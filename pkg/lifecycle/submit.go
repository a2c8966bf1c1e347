package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/events"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"go.uber.org/zap"
	"time"
)

// Submit turns the requester's draft into an open ticket.
//
// A submit carrying the key of a submission that already committed returns that ticket again,
// which makes platform-level redelivery harmless. Any other submit without a draft fails with
// ErrNotFound (or ErrExpiredDraft). The draft is taken out of the store before anything else
// happens, so of two concurrent submits only one can commit; if the commit fails, the draft is put
// back for the user to correct.
func (c *Coordinator) Submit(ctx context.Context, actor Actor, submissionKey string) (model.Ticket, error) {
	logger := c.logger.With(zap.Uint64("requester", actor.Id))

	if submissionKey != "" {
		ref, ok, err := c.drafts.Submission(ctx, actor.Id, submissionKey)
		if err != nil {
			return model.Ticket{}, err
		}

		if ok {
			c.metrics.SubmissionReplays.Inc()
			logger.Debug("Replaying duplicate submit", zap.Stringer("ticket", ref))
			return c.Ticket(ctx, ref)
		}
	}

	d, err := c.drafts.Take(ctx, actor.Id)
	if err != nil {
		switch {
		case errors.Is(err, draft.ErrDraftNotFound):
			return model.Ticket{}, fmt.Errorf("no draft to submit: %w", ErrNotFound)
		case errors.Is(err, draft.ErrDraftExpired):
			return model.Ticket{}, ErrExpiredDraft
		default:
			return model.Ticket{}, err
		}
	}

	// A key from an earlier form must not commit whatever draft the requester has now.
	if submissionKey != "" && d.SubmissionKey != submissionKey {
		c.restore(ctx, logger, d)
		return model.Ticket{}, fmt.Errorf("no draft for submission %s: %w", submissionKey, ErrNotFound)
	}

	ticket, err := c.commit(ctx, logger, actor, d)
	if err != nil {
		c.restore(ctx, logger, d)
		return model.Ticket{}, err
	}

	if d.SubmissionKey != "" {
		if err := c.drafts.RememberSubmission(ctx, actor.Id, d.SubmissionKey, ticket.Ref()); err != nil {
			logger.Warn("Failed to remember submission", zap.Error(err), zap.Stringer("ticket", ticket.Ref()))
		}
	}

	c.metrics.TicketsSubmitted.WithLabelValues(ticket.Category).Inc()
	c.publish(ctx, events.TypeCreated, ticket, actor.Id)

	logger.Info("Ticket submitted", zap.Stringer("ticket", ticket.Ref()), zap.String("subcategory", ticket.Subcategory))
	return ticket, nil
}

func (c *Coordinator) commit(ctx context.Context, logger *zap.Logger, actor Actor, d model.Draft) (model.Ticket, error) {
	if err := c.validate(actor, d); err != nil {
		c.metrics.ValidationFailed.WithLabelValues(d.Category).Inc()
		return model.Ticket{}, err
	}

	now := c.now()

	limit, limited := c.ledger.Limit(d.Category)
	if !limited {
		return c.writeTicket(ctx, actor, d, now)
	}

	if err := c.checkEligibility(actor, now); err != nil {
		return model.Ticket{}, err
	}

	key := c.ledger.KeyFor(actor.Id, d.Category, d.Subcategory, now)
	reservation, err := c.ledger.TryReserve(ctx, key, limit)
	if err != nil {
		return model.Ticket{}, err
	}

	if !reservation.Accepted {
		c.metrics.QuotaDenied.WithLabelValues(d.Category).Inc()
		return model.Ticket{}, &QuotaExceededError{
			Category: d.Category,
			Limit:    limit,
			Used:     reservation.UsedAfter,
		}
	}

	ticket, err := c.writeTicket(ctx, actor, d, now)
	if err != nil {
		releaseCtx, cancel := detached(ctx)
		defer cancel()

		if _, releaseErr := c.ledger.Release(releaseCtx, key); releaseErr != nil {
			logger.Error(
				"Failed to release reservation after ticket write failed",
				zap.Error(releaseErr),
				zap.NamedError("write_error", err),
				zap.String("category", key.Category),
				zap.String("subcategory", key.Subcategory),
			)
		} else {
			c.metrics.Compensations.Inc()
		}

		return model.Ticket{}, err
	}

	return ticket, nil
}

func (c *Coordinator) validate(actor Actor, d model.Draft) error {
	validation := &ValidationError{
		Missing: d.MissingFields(),
	}

	if d.Category != "" && len(c.policy.HelperRoles) > 0 && !c.policy.KnownCategory(d.Category) {
		validation.Invalid = append(validation.Invalid, draft.FieldCategory)
	}

	if d.PreferredHelperId != nil && *d.PreferredHelperId == actor.Id {
		validation.Invalid = append(validation.Invalid, draft.FieldPreferredHelper)
	}

	if len(validation.Missing) > 0 || len(validation.Invalid) > 0 {
		return validation
	}

	return nil
}

func (c *Coordinator) checkEligibility(actor Actor, now time.Time) error {
	if c.minMemberAge <= 0 {
		return nil
	}

	var age time.Duration
	if !actor.JoinedAt.IsZero() {
		age = now.Sub(actor.JoinedAt)
	}

	if age < c.minMemberAge {
		return &IneligibleError{
			Required: c.minMemberAge,
			Actual:   age,
		}
	}

	return nil
}

func (c *Coordinator) writeTicket(ctx context.Context, actor Actor, d model.Draft, now time.Time) (model.Ticket, error) {
	seq, err := c.sequences.Next(ctx, d.Category)
	if err != nil {
		return model.Ticket{}, err
	}

	ticket := model.Ticket{
		Category:          d.Category,
		Sequence:          seq,
		RequesterId:       actor.Id,
		Subcategory:       d.Subcategory,
		Status:            model.StatusOpen,
		Goal:              d.Goal,
		CanJoin:           *d.CanJoin,
		PreferredHelperId: d.PreferredHelperId,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := c.store.Tx(ctx, func(r repository.Repositories) error {
		return r.Tickets().CreateTicket(ctx, ticket)
	}); err != nil {
		return model.Ticket{}, fmt.Errorf("write ticket %s: %w", ticket.Ref(), err)
	}

	return ticket, nil
}

func (c *Coordinator) restore(ctx context.Context, logger *zap.Logger, d model.Draft) {
	ctx, cancel := detached(ctx)
	defer cancel()

	restored, err := c.drafts.PutIfAbsent(ctx, d)
	if err != nil {
		logger.Error("Failed to restore draft after rejected submit", zap.Error(err))
		return
	}

	if !restored {
		logger.Debug("Newer draft started during submit, dropping the rejected one")
	}
}
