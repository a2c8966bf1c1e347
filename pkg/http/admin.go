package http

import (
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"strconv"
	"time"
)

type quotaRequest struct {
	UserId      string `json:"user_id" form:"user"`
	Category    string `json:"category" form:"category"`
	Subcategory string `json:"subcategory" form:"subcategory"`
	// Day is YYYY-MM-DD in UTC; empty means today.
	Day string `json:"day" form:"day"`
}

func (r quotaRequest) key() (model.ReservationKey, error) {
	userId, err := strconv.ParseUint(r.UserId, 10, 64)
	if err != nil {
		return model.ReservationKey{}, err
	}

	day := time.Now()
	if r.Day != "" {
		if day, err = time.Parse(time.DateOnly, r.Day); err != nil {
			return model.ReservationKey{}, err
		}
	}

	return model.ReservationKey{
		RequesterId: userId,
		Category:    r.Category,
		Subcategory: r.Subcategory,
		Day:         model.Day(day),
	}, nil
}

func (s *Server) bindQuotaKey(ctx *gin.Context, bind func(any) error) (model.ReservationKey, bool) {
	var req quotaRequest
	if err := bind(&req); err != nil {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": err.Error(),
		})
		return model.ReservationKey{}, false
	}

	key, err := req.key()
	if err != nil || key.Category == "" {
		ctx.JSON(400, gin.H{
			"error":   "bad_request",
			"message": "user, category and a valid day are required",
		})
		return model.ReservationKey{}, false
	}

	return key, true
}

func (s *Server) quotaGetHandler(ctx *gin.Context) {
	key, ok := s.bindQuotaKey(ctx, ctx.ShouldBindQuery)
	if !ok {
		return
	}

	record, err := s.services.Ledger.Usage(ctx, key)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	ctx.JSON(200, record)
}

// quotaReleaseHandler hands back one unit of quota, for staff correcting a ticket opened by
// mistake.
func (s *Server) quotaReleaseHandler(ctx *gin.Context) {
	key, ok := s.bindQuotaKey(ctx, ctx.ShouldBindJSON)
	if !ok {
		return
	}

	used, err := s.services.Ledger.Release(ctx, key)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	s.Logger.Info(
		"Quota released by admin",
		zap.Uint64("requester", key.RequesterId),
		zap.String("category", key.Category),
		zap.String("subcategory", key.Subcategory),
		zap.Int("used", used),
	)

	ctx.JSON(200, gin.H{
		"used": used,
	})
}
