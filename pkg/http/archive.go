package http

import (
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/s3client"
	"github.com/gin-gonic/gin"
)

func (s *Server) archiveGetHandler(ctx *gin.Context) {
	if s.services.Archive == nil {
		ctx.JSON(503, gin.H{
			"error":   "archive_disabled",
			"message": "ticket archive is not configured",
		})
		return
	}

	ref, ok := parseRef(ctx)
	if !ok {
		return
	}

	ticket, err := s.services.Archive.GetArchivedTicket(ctx, ref)
	if err != nil {
		if errors.Is(err, s3client.ErrTicketNotFound) {
			ctx.JSON(404, gin.H{
				"error":   "not_found",
				"message": err.Error(),
			})
			return
		}

		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, ticket)
}
