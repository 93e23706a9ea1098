package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/venuehunt/venuehunt/internal/booking"
	"github.com/venuehunt/venuehunt/internal/config"
	"github.com/venuehunt/venuehunt/internal/database"
	"github.com/venuehunt/venuehunt/internal/handler"
	"github.com/venuehunt/venuehunt/internal/payment"
	"github.com/venuehunt/venuehunt/internal/queue"
	"github.com/venuehunt/venuehunt/internal/recommend"
	"github.com/venuehunt/venuehunt/internal/repository"
	"github.com/venuehunt/venuehunt/internal/router"
	"github.com/venuehunt/venuehunt/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("config")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	log := logger.WithField("env", cfg.Env)

	db, err := database.Open(cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer db.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unreachable; response cache, rate limit and refresh lock disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var events queue.Publisher = queue.LogPublisher{Logger: logger}
	if cfg.AMQP.Enabled {
		events = queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		audit := &queue.AuditConsumer{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange, Logger: logger}
		go func() {
			if err := audit.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	venues := repository.NewVenueRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var lock recommend.Locker
	if rdb != nil {
		lock = recommend.NewRedisLock(rdb, "lock:similarity-refresh", cfg.Recommend.LockTTL)
	}
	engine := recommend.New(venues, repository.NewSimilarityRepo(db), repository.NewInteractionRepo(db), lock, logger,
		recommend.Options{
			TopN:     cfg.Recommend.TopN,
			MaxAge:   cfg.Recommend.UpdateInterval,
			HalfLife: cfg.Recommend.RecencyHalfLife,
		})

	policy, err := booking.ParseOverlapPolicy(cfg.Booking.OverlapPolicy)
	if err != nil {
		log.WithError(err).Fatal("booking config")
	}
	gateway := payment.WithRetry(payment.NewRazorpay(cfg.Payment.KeyID, cfg.Payment.KeySecret), cfg.Payment.Timeout, logger)
	bookingSvc := service.NewBookingService(service.BookingDeps{
		DB:       db,
		Venues:   venues,
		Bookings: bookings,
		Checker:  booking.NewChecker(policy, cfg.Booking.Location()),
		Pricer: booking.Pricer{
			AdvancePercent: cfg.Booking.AdvancePercent,
			CeilingMinor:   cfg.Payment.MaxAmountMinor,
			Currency:       cfg.Payment.Currency,
		},
		Gateway:  gateway,
		Events:   events,
		Recorder: engine,
		Logger:   logger,
	})
	bookingSvc.KeyID = cfg.Payment.KeyID
	bookingSvc.BaseURL = cfg.Payment.PublicBaseURL

	jobs := service.NewCronService(engine, tokens, logger)
	jobs.RefreshSchedule = cfg.Recommend.RefreshSchedule
	if err := jobs.Start(); err != nil {
		log.WithError(err).Fatal("cron")
	}
	defer jobs.Stop()

	e := router.New(router.Handlers{
		Health: handler.Health{DB: db},
		Auth:   handler.NewAuthHandler(cfg.JWT, users, tokens, logger),
		Venues: &handler.VenueHandler{
			Venues: venues, Catalog: engine, Cache: rdb, CachePrefix: cfg.Cache.Prefix, Logger: logger,
		},
		Bookings:        &handler.BookingHandler{Bookings: bookingSvc, Lists: bookings, Logger: logger},
		Reviews:         &handler.ReviewHandler{Reviews: service.NewReviewService(reviews, bookings, logger), Logger: logger},
		Recommendations: &handler.RecommendationHandler{Engine: engine, Venues: venues, Logger: logger},
		Analytics:       &handler.AnalyticsHandler{Analytics: repository.NewAnalyticsRepo(db), Logger: logger},
	}, router.Options{
		JWTSecret: cfg.JWT.Secret,
		Cache:     cfg.Cache,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
		Logger:    logger,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("stopped")
}
