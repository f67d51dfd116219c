package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urbanease/urbanease/internal/booking"
	bookingdomain "github.com/urbanease/urbanease/internal/booking/domain"
	"github.com/urbanease/urbanease/internal/commission"
	commissiondomain "github.com/urbanease/urbanease/internal/commission/domain"
	"github.com/urbanease/urbanease/internal/config"
	"github.com/urbanease/urbanease/internal/earning"
	earningdomain "github.com/urbanease/urbanease/internal/earning/domain"
	"github.com/urbanease/urbanease/internal/notification"
	"github.com/urbanease/urbanease/internal/observability"
	obsmiddleware "github.com/urbanease/urbanease/internal/observability/logger"
	"github.com/urbanease/urbanease/internal/providerlock"
	"github.com/urbanease/urbanease/internal/withdrawal"
	withdrawaldomain "github.com/urbanease/urbanease/internal/withdrawal/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providerlock.Module,
	notification.Module,
	commission.Module,
	earning.Module,
	booking.Module,
	withdrawal.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	bookingSvc    bookingdomain.Service
	earningSvc    earningdomain.Service
	withdrawalSvc withdrawaldomain.Service
	commissionSvc commissiondomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	BookingSvc    bookingdomain.Service
	EarningSvc    earningdomain.Service
	WithdrawalSvc withdrawaldomain.Service
	CommissionSvc commissiondomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		bookingSvc:    p.BookingSvc,
		earningSvc:    p.EarningSvc,
		withdrawalSvc: p.WithdrawalSvc,
		commissionSvc: p.CommissionSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Bookings --------
	v1.POST("/bookings", s.CreateBooking)
	v1.GET("/bookings/:id", s.GetBooking)
	v1.GET("/bookings/:id/history", s.GetBookingHistory)
	v1.POST("/bookings/:id/accept", s.AcceptBooking)
	v1.POST("/bookings/:id/start", s.StartBooking)
	v1.POST("/bookings/:id/complete", s.CompleteBooking)
	v1.POST("/bookings/:id/confirm", s.ConfirmBooking)
	v1.POST("/bookings/:id/no-show", s.MarkBookingNoShow)
	v1.POST("/bookings/:id/cancel", s.CancelBooking)
	v1.POST("/bookings/:id/refund/advance", s.AdvanceBookingRefund)
	v1.POST("/bookings/:id/paid", s.MarkBookingPaid)

	// -------- Provider ledger --------
	v1.GET("/providers/:id/balance", s.GetProviderBalance)
	v1.GET("/providers/:id/earnings", s.ListProviderEarnings)
	v1.GET("/providers/:id/earnings/summary", s.GetProviderEarningsSummary)
	v1.GET("/providers/:id/withdrawals", s.ListProviderWithdrawals)

	// -------- Withdrawals --------
	v1.POST("/providers/:id/withdrawals", s.RequestWithdrawal)
	v1.GET("/withdrawals/:id", s.GetWithdrawal)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/v1/admin")

	admin.POST("/withdrawals/:id/approve", s.ApproveWithdrawal)
	admin.POST("/withdrawals/:id/reject", s.RejectWithdrawal)

	admin.GET("/commission-rules", s.ListCommissionRules)
	admin.POST("/commission-rules", s.CreateCommissionRule)
}
