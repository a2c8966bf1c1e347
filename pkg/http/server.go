package http

import (
	"context"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/config"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/interaction"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/metrics"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/quota"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"time"
)

type Archive interface {
	GetArchivedTicket(ctx context.Context, ref model.TicketRef) (model.Ticket, error)
}

type Services struct {
	Coordinator *lifecycle.Coordinator
	Dispatcher  *interaction.Dispatcher
	Drafts      draft.Store
	Ledger      *quota.Ledger
	Metrics     *metrics.Metrics
	// Archive is nil when no object storage is configured.
	Archive Archive
}

type Server struct {
	Logger   *zap.Logger
	Config   config.Config
	router   *gin.Engine
	services Services
}

func NewServer(logger *zap.Logger, config config.Config, services Services) *Server {
	return &Server{
		Logger:   logger,
		Config:   config,
		router:   gin.New(),
		services: services,
	}
}

func (s *Server) RegisterRoutes() {
	s.router.Use(ginzap.Ginzap(s.Logger, time.RFC3339, true))
	s.router.Use(ginzap.RecoveryWithZap(s.Logger, true))

	s.router.POST("/interactions", s.interactionHandler)

	s.router.GET("/drafts/:user", s.draftGetHandler)
	s.router.GET("/tickets/:category/:sequence", s.ticketGetHandler)
	s.router.GET("/requesters/:user/tickets", s.requesterTicketsHandler)
	s.router.GET("/archive/:category/:sequence", s.archiveGetHandler)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.services.Metrics.Registry, promhttp.HandlerOpts{})))

	admin := s.router.Group("/admin", s.middlewareAuthAdmin)
	{
		admin.GET("/quota", s.quotaGetHandler)
		admin.POST("/quota/release", s.quotaReleaseHandler)
	}
}

func (s *Server) Start() {
	if err := s.router.Run(s.Config.Address); err != nil {
		panic(err)
	}
}
