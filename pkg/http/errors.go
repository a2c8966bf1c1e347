package http

import (
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/interaction"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var conflicts = []struct {
	err  error
	kind string
}{
	{lifecycle.ErrAlreadyClaimed, "already_claimed"},
	{lifecycle.ErrNotClaimed, "not_claimed"},
	{lifecycle.ErrTicketClosed, "ticket_closed"},
	{lifecycle.ErrAlreadyClosed, "already_closed"},
}

// errorResponse maps the typed lifecycle errors onto status codes the adapter can branch on. The
// "error" field is stable; "message" is for humans.
func errorResponse(err error) (int, gin.H) {
	var (
		validation *lifecycle.ValidationError
		quotaErr   *lifecycle.QuotaExceededError
		ineligible *lifecycle.IneligibleError
	)

	switch {
	case errors.As(err, &validation):
		return 400, gin.H{
			"error":   "validation",
			"message": err.Error(),
			"missing": validation.Missing,
			"invalid": validation.Invalid,
		}
	case errors.Is(err, draft.ErrUnknownField),
		errors.Is(err, draft.ErrInvalidValue),
		errors.Is(err, interaction.ErrInvalidEvent),
		errors.Is(err, interaction.ErrUnknownKind):
		return 400, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		}
	case errors.As(err, &quotaErr):
		return 429, gin.H{
			"error":     "quota_exceeded",
			"message":   err.Error(),
			"category":  quotaErr.Category,
			"limit":     quotaErr.Limit,
			"used":      quotaErr.Used,
			"remaining": quotaErr.Remaining(),
		}
	case errors.As(err, &ineligible):
		return 403, gin.H{
			"error":            "ineligible",
			"message":          err.Error(),
			"required_seconds": int64(ineligible.Required.Seconds()),
			"actual_seconds":   int64(ineligible.Actual.Seconds()),
		}
	case errors.Is(err, lifecycle.ErrNotAuthorized):
		return 403, gin.H{
			"error":   "not_authorized",
			"message": err.Error(),
		}
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, draft.ErrDraftNotFound):
		return 404, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		}
	case errors.Is(err, lifecycle.ErrExpiredDraft), errors.Is(err, draft.ErrDraftExpired):
		return 410, gin.H{
			"error":   "expired_draft",
			"message": err.Error(),
		}
	}

	for _, conflict := range conflicts {
		if errors.Is(err, conflict.err) {
			return 409, gin.H{
				"error":   conflict.kind,
				"message": err.Error(),
			}
		}
	}

	return 500, gin.H{
		"error":   "internal",
		"message": "internal server error",
	}
}

func (s *Server) writeError(ctx *gin.Context, err error) {
	statusCode, body := errorResponse(err)
	if statusCode == 500 {
		s.Logger.Error("Request failed", zap.Error(err), zap.String("path", ctx.FullPath()))
	}

	ctx.JSON(statusCode, body)
}
