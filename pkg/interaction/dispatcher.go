package interaction

import (
	"context"
	"errors"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"go.uber.org/zap"
)

var (
	ErrUnknownKind  = errors.New("unknown interaction kind")
	ErrInvalidEvent = errors.New("invalid interaction event")
)

type Coordinator interface {
	Submit(ctx context.Context, actor lifecycle.Actor, submissionKey string) (model.Ticket, error)
	Claim(ctx context.Context, ref model.TicketRef, actor lifecycle.Actor) (model.Ticket, error)
	Unclaim(ctx context.Context, ref model.TicketRef, actor lifecycle.Actor) (model.Ticket, error)
	Close(ctx context.Context, ref model.TicketRef, actor lifecycle.Actor) (model.Ticket, error)
}

type Dispatcher struct {
	logger      *zap.Logger
	drafts      draft.Store
	coordinator Coordinator
}

func NewDispatcher(logger *zap.Logger, drafts draft.Store, coordinator Coordinator) *Dispatcher {
	return &Dispatcher{
		logger:      logger,
		drafts:      drafts,
		coordinator: coordinator,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (Outcome, error) {
	actor, err := event.Actor()
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Kind: event.Kind}

	switch {
	case event.Kind.EditsDraft():
		edited, err := d.edit(ctx, actor.Id, event)
		if err != nil {
			return Outcome{}, err
		}

		outcome.Draft = &edited
		outcome.Missing = edited.MissingFields()
	case event.Kind == KindCancel:
		if err := d.drafts.Clear(ctx, actor.Id); err != nil {
			return Outcome{}, err
		}

		outcome.Cleared = true
	case event.Kind == KindSubmit:
		ticket, err := d.coordinator.Submit(ctx, actor, event.Payload.SubmissionKey)
		if err != nil {
			return Outcome{}, err
		}

		outcome.Ticket = &ticket
	case event.Kind == KindClaim || event.Kind == KindUnclaim || event.Kind == KindClose:
		ticket, err := d.transition(ctx, actor, event)
		if err != nil {
			return Outcome{}, err
		}

		outcome.Ticket = &ticket
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownKind, event.Kind)
	}

	d.logger.Debug(
		"Dispatched interaction",
		zap.String("kind", string(event.Kind)),
		zap.Uint64("user", actor.Id),
		zap.String("username", event.User.Username),
	)

	return outcome, nil
}

// edit applies one field to the requester's draft, starting a new draft when there is none or the
// previous one has gone stale.
func (d *Dispatcher) edit(ctx context.Context, requesterId uint64, event Event) (model.Draft, error) {
	current, err := d.drafts.Get(ctx, requesterId)
	if err != nil {
		if !errors.Is(err, draft.ErrDraftNotFound) && !errors.Is(err, draft.ErrDraftExpired) {
			return model.Draft{}, err
		}

		current = draft.New(requesterId)
	}

	field := event.Payload.Field
	if field == "" && event.Kind == KindFreeTextSubmit {
		field = draft.FieldGoal
	}

	if err := draft.Apply(&current, field, event.Payload.Value); err != nil {
		return model.Draft{}, err
	}

	return d.drafts.Put(ctx, current)
}

func (d *Dispatcher) transition(ctx context.Context, actor lifecycle.Actor, event Event) (model.Ticket, error) {
	ref, err := event.TicketRef()
	if err != nil {
		return model.Ticket{}, err
	}

	switch event.Kind {
	case KindClaim:
		return d.coordinator.Claim(ctx, ref, actor)
	case KindUnclaim:
		return d.coordinator.Unclaim(ctx, ref, actor)
	default:
		return d.coordinator.Close(ctx, ref, actor)
	}
}
