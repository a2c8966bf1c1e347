package http

import (
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/gin-gonic/gin"
	"strconv"
)

func parseRef(ctx *gin.Context) (model.TicketRef, bool) {
	sequence, err := strconv.Atoi(ctx.Param("sequence"))
	if err != nil || sequence <= 0 {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": "invalid ticket sequence",
		})
		return model.TicketRef{}, false
	}

	return model.TicketRef{
		Category: ctx.Param("category"),
		Sequence: sequence,
	}, true
}

func parseUser(ctx *gin.Context) (uint64, bool) {
	userId, err := strconv.ParseUint(ctx.Param("user"), 10, 64)
	if err != nil {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": "invalid user ID",
		})
		return 0, false
	}

	return userId, true
}

func (s *Server) ticketGetHandler(ctx *gin.Context) {
	ref, ok := parseRef(ctx)
	if !ok {
		return
	}

	ticket, err := s.services.Coordinator.Ticket(ctx, ref)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, ticket)
}

func (s *Server) requesterTicketsHandler(ctx *gin.Context) {
	userId, ok := parseUser(ctx)
	if !ok {
		return
	}

	status := model.Status(ctx.Query("status"))
	if status != "" && !status.Valid() {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": "invalid status",
		})
		return
	}

	tickets, err := s.services.Coordinator.TicketsByRequester(ctx, userId, status)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, tickets)
}

func (s *Server) draftGetHandler(ctx *gin.Context) {
	userId, ok := parseUser(ctx)
	if !ok {
		return
	}

	current, err := s.services.Drafts.Get(ctx, userId)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, gin.H{
		"draft":   current,
		"missing": current.MissingFields(),
	})
}
