package http

import (
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/interaction"
	"github.com/gin-gonic/gin"
)

func (s *Server) interactionHandler(ctx *gin.Context) {
	var event interaction.Event
	if err := ctx.ShouldBindJSON(&event); err != nil {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return
	}

	outcome, err := s.services.Dispatcher.Dispatch(ctx, event)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, outcome)
}
