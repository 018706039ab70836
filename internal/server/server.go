package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/handler"
	appmw "github.com/shinyyama/voxelhub-backend/internal/middleware"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/payment"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"github.com/shinyyama/voxelhub-backend/internal/service"
	"github.com/shinyyama/voxelhub-backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-wide resources the router is built from.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Auth      *appmw.AuthMiddleware
	Blobs     storage.BlobStore
	Hub       *realtime.Hub
	Notifier  realtime.Notifier
	Providers payment.Registry
	Simulator *payment.Simulator
	Checkouts payment.CheckoutRegistry
	SHA       string
	BuildTime string
}

type Server struct {
	e *echo.Echo
}

// allowOrigin accepts configured origins exactly, "*.example.com" entries by suffix,
// and localhost outside production.
func allowOrigin(cfg *config.Config) func(origin string) bool {
	return func(origin string) bool {
		if origin == "" {
			return true
		}
		low := strings.ToLower(origin)
		if !cfg.IsProduction() &&
			(strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:")) {
			return true
		}
		u, err := url.Parse(low)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false
		}
		host := u.Hostname()
		for _, allowed := range cfg.AllowedOrigins {
			allowed = strings.ToLower(strings.TrimSpace(allowed))
			switch {
			case allowed == "":
			case strings.HasPrefix(allowed, "*."):
				if strings.HasSuffix(host, allowed[1:]) {
					return true
				}
			case allowed == low:
				return true
			}
		}
		return false
	}
}

func New(d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				zap.L().Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zap.L().Info("request", fields...)
			return nil
		},
	}))
	allowed := allowOrigin(d.Config)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", appmw.DevUserHeader},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) (bool, error) {
			return allowed(origin), nil
		},
	}))
	// Ten STL files of up to 50 MB each.
	e.Use(middleware.BodyLimit("512M"))

	tx := repository.NewTransactor(d.DB)
	users := repository.NewUserRepository(d.DB)
	profiles := repository.NewMakerProfileRepository(d.DB)
	projects := repository.NewProjectRepository(d.DB)
	bids := repository.NewBidRepository(d.DB)
	reviews := repository.NewReviewRepository(d.DB)
	earnings := repository.NewEarningRepository(d.DB)
	payouts := repository.NewPayoutRepository(d.DB)

	notifySvc := service.NewNotificationService(repository.NewNotificationRepository(d.DB), d.Notifier)
	bidSvc := service.NewBidService(service.BidDeps{
		Tx:            tx,
		Projects:      projects,
		Bids:          bids,
		Profiles:      profiles,
		Users:         users,
		Reviews:       reviews,
		Earnings:      earnings,
		Notifications: notifySvc,
	})
	executor := service.NewPayoutExecutor(payouts, notifySvc, d.Providers, d.Simulator)
	payoutSvc := service.NewPayoutService(service.PayoutDeps{
		Tx:       tx,
		Profiles: profiles,
		Earnings: earnings,
		Payouts:  payouts,
		Executor: executor,
		Currency: d.Config.PayoutCurrency,
	})
	projectSvc := service.NewProjectService(service.ProjectDeps{
		Tx:            tx,
		Projects:      projects,
		Bids:          bids,
		Blobs:         d.Blobs,
		Notifications: notifySvc,
	})
	profileSvc := service.NewProfileService(users, profiles, reviews)
	convSvc := service.NewConversationService(repository.NewConversationRepository(d.DB), projects, bids, notifySvc)
	designSvc := service.NewDesignService(service.DesignDeps{
		Tx:        tx,
		Designs:   repository.NewDesignRepository(d.DB),
		Purchases: repository.NewDesignPurchaseRepository(d.DB),
		Profiles:  profiles,
		Earnings:  earnings,
		Blobs:     d.Blobs,
		Checkouts: d.Checkouts,
		Currency:  d.Config.PayoutCurrency,
	})

	userHandler := handler.NewUserHandler(profileSvc, d.Auth.Client())
	projectHandler := handler.NewProjectHandler(projectSvc)
	bidHandler := handler.NewBidHandler(bidSvc)
	payoutHandler := handler.NewPayoutHandler(payoutSvc)
	notifHandler := handler.NewNotificationHandler(notifySvc)
	convHandler := handler.NewConversationHandler(convSvc)
	designHandler := handler.NewDesignHandler(designSvc)
	wsHandler := realtime.NewHandler(d.Hub, d.Auth.TokenVerifier(), func(r *http.Request) bool {
		return allowed(r.Header.Get("Origin"))
	})

	e.GET("/healthz", func(c echo.Context) error {
		status := http.StatusOK
		dbState := "ok"
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if sqlDB, err := d.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			dbState = "unavailable"
		}
		return c.JSON(status, map[string]string{
			"ok":         "true",
			"db":         dbState,
			"git_sha":    d.SHA,
			"build_time": d.BuildTime,
		})
	})
	e.GET("/ws", wsHandler.Serve)

	auth := d.Auth.RequireAuth
	makerOnly := appmw.RequireRole(users, model.RoleMaker)
	clientOnly := appmw.RequireRole(users, model.RoleClient)

	api := e.Group("/api")
	api.GET("/projects", projectHandler.List)
	api.GET("/projects/:id", projectHandler.Get)
	api.GET("/designs", designHandler.List)
	api.GET("/designs/:id", designHandler.Get)
	api.GET("/makers/:uid", userHandler.GetPublicMaker)

	authed := api.Group("", auth)
	authed.PUT("/me", userHandler.Register)
	authed.GET("/me", userHandler.Me)
	authed.GET("/me/projects", projectHandler.ListMine)
	authed.GET("/me/design-purchases", designHandler.ListPurchases)
	authed.DELETE("/projects/:id", projectHandler.Delete)
	authed.GET("/projects/:id/bids", bidHandler.ListForProject)
	authed.POST("/projects/:id/conversations", convHandler.Open)
	authed.GET("/conversations", convHandler.List)
	authed.GET("/conversations/:id/messages", convHandler.ListMessages)
	authed.POST("/conversations/:id/messages", convHandler.CreateMessage)
	authed.GET("/notifications", notifHandler.List)
	authed.POST("/notifications/read", notifHandler.MarkAllRead)
	authed.POST("/designs/:id/purchase", designHandler.StartPurchase)
	authed.POST("/design-purchases/:id/complete", designHandler.CompletePurchase)
	authed.POST("/design-purchases/:id/cancel", designHandler.CancelPurchase)

	client := api.Group("", auth, clientOnly)
	client.POST("/projects", projectHandler.Create)
	client.POST("/projects/:id/bids/read", bidHandler.MarkRead)
	client.PUT("/bids/:id/accept", bidHandler.Accept)
	client.PUT("/bids/:id/reject", bidHandler.Reject)
	client.PUT("/bids/:id/confirm-delivery", bidHandler.ConfirmDelivery)

	maker := api.Group("", auth, makerOnly)
	maker.PUT("/maker/profile", userHandler.UpsertMakerProfile)
	maker.GET("/maker/profile", userHandler.GetMakerProfile)
	maker.POST("/projects/:id/bids", bidHandler.Submit)
	maker.GET("/maker/bids", bidHandler.ListMine)
	maker.PATCH("/bids/:id", bidHandler.Edit)
	maker.DELETE("/bids/:id", bidHandler.Withdraw)
	maker.PUT("/bids/:id/rate-client", bidHandler.RateClient)
	maker.GET("/maker/balance", payoutHandler.Balance)
	maker.GET("/maker/earnings", payoutHandler.Earnings)
	maker.POST("/maker/payout-method", payoutHandler.SetMethod)
	maker.POST("/maker/request-payout", payoutHandler.Request)
	maker.GET("/maker/payouts", payoutHandler.List)
	maker.GET("/maker/verify-payouts", payoutHandler.Verify)
	maker.POST("/designs", designHandler.Create)

	return &Server{e: e}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
