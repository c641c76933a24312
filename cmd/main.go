package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"staffable/application"
	"staffable/config"
	"staffable/infrastructure"
	"staffable/interfaces"
)

const (
	shutdownTimeout = 15 * time.Second
	purgeInterval   = time.Hour
)

func main() {
	conf, err := config.Load(".env", ".env.local")
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := conf.Logger()

	if err := run(conf, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(conf *config.Configuration, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := infrastructure.NewMySQLConnection(conf.DatabaseDSN, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	rmq, err := infrastructure.NewRabbitMQ(conf.RabbitMQURL, log)
	if err != nil {
		return err
	}
	defer rmq.Close()

	var cache *redis.Client
	if conf.RedisURL != "" {
		if cache, err = infrastructure.NewRedisClient(conf.RedisURL); err != nil {
			return err
		}
		defer cache.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewMetrics(reg)

	gen, closeGen, err := infrastructure.NewGenerator(ctx, conf.AI, cache, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeGen(); err != nil {
			log.WithError(err).Warn("close AI client")
		}
	}()

	prompts, err := infrastructure.NewPromptCatalog()
	if err != nil {
		return err
	}
	authz, err := infrastructure.NewRoleAuthorizer(log)
	if err != nil {
		return err
	}

	crm := infrastructure.NewCRMClient(conf.CRM.BaseURL, conf.CRM.Timeout, metrics)
	sessions := infrastructure.NewSessionRepository(db)
	generations := infrastructure.NewGenerationRepository(db)

	auth := application.NewAuthService(crm, sessions, conf.SessionDuration)
	candidates := application.NewCandidateService(crm, conf.PageSize, conf.MaxPageSize)
	assistant := application.NewAssistantService(application.AssistantDeps{
		Generator:   gen,
		Prompts:     prompts,
		Candidates:  candidates,
		Directory:   crm,
		Jobs:        crm,
		Bookings:    crm,
		Generations: generations,
		Queue:       rmq,
		Extractor:   infrastructure.NewTextExtractor(conf.MaxUploadSize, log),
	})

	worker := application.NewGenerationWorker(generations, gen, prompts, metrics, log)
	workerCtx, stopWorker := context.WithCancel(ctx)
	workerDone, err := rmq.ConsumeJobs(workerCtx, worker.Handle)
	if err != nil {
		stopWorker()
		return err
	}
	// runs before the broker and database are closed
	defer func() {
		stopWorker()
		select {
		case <-workerDone:
			log.Info("generation worker stopped")
		case <-time.After(shutdownTimeout):
			log.Warn("generation worker did not stop in time")
		}
	}()
	log.Info("generation worker started")

	go purgeSessions(ctx, auth, log)

	opts := interfaces.Options{
		CookieName:    conf.SidCookieKey,
		CookieSecure:  conf.CookieSecure,
		MaxUploadSize: conf.MaxUploadSize,
		MetricsPath:   conf.PrometheusPath,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if conf.RateLimit.Enabled {
		store, err := interfaces.NewLimiterStore(conf.RateLimit.Store, cache)
		if err != nil {
			return err
		}
		if opts.AssistantLimit, err = interfaces.RateLimit(conf.RateLimit.AIRate, store); err != nil {
			return err
		}
	}

	router := interfaces.NewRouter(log, conf.RequestIDHeader, interfaces.Services{
		Auth:       auth,
		Candidates: candidates,
		Bookings:   application.NewBookingService(crm),
		Jobs:       application.NewJobService(crm),
		Reviews:    application.NewReviewService(crm),
		Timesheets: application.NewTimesheetService(crm, infrastructure.TimesheetWorkbook),
		Assistant:  assistant,
		Authorizer: authz,
	}, opts)

	handler := cors.New(cors.Options{
		AllowedOrigins:   conf.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", conf.RequestIDHeader},
		ExposedHeaders:   []string{conf.RequestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	}).Handler(router)

	srv := &http.Server{
		Addr:              conf.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func purgeSessions(ctx context.Context, auth *application.AuthService, log *logrus.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("purge expired sessions")
				continue
			}
			if n > 0 {
				log.WithField("count", n).Info("purged expired sessions")
			}
		}
	}
}
