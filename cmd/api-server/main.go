package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vetcareplus/vetcare-api/internal/api"
	"github.com/vetcareplus/vetcare-api/internal/booking"
	"github.com/vetcareplus/vetcare-api/internal/config"
	"github.com/vetcareplus/vetcare-api/internal/db"
	"github.com/vetcareplus/vetcare-api/internal/metrics"
	"github.com/vetcareplus/vetcare-api/internal/notify"
	"github.com/vetcareplus/vetcare-api/internal/payment"
	redisclient "github.com/vetcareplus/vetcare-api/internal/redis"
	"github.com/vetcareplus/vetcare-api/internal/schedule"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	m := metrics.NewBookingMetrics(nil)

	outbox := notify.NewOutbox(pgPool)

	var sender notify.EmailSender = notify.StubEmailSender{}
	if cfg.MailAPIKey != "" {
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.MailAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		})
		log.Println("email notifications enabled via SendGrid")
	} else {
		log.Println("no mail API key set, logging notifications instead of sending")
	}

	dispatcher := notify.NewDispatcher(pgPool, outbox, sender, cfg.NotifyTimeout, cfg.NotifyAttempts, m)
	go dispatcher.Run(rootCtx, cfg.NotifyInterval)

	locker := redisclient.NewRedisVetLocker(rdb, cfg.LockTTL)

	bookingRepo := booking.NewPgRepository(pgPool, outbox)
	bookingSvc := booking.NewService(bookingRepo, locker, cfg, dispatcher, m)

	paymentSvc := payment.NewService(payment.NewPgRepository(pgPool), m)
	scheduleSvc := schedule.NewService(schedule.NewPgRepository(pgPool))

	router := api.NewRouter(api.RouterConfig{
		Bookings:  bookingSvc,
		Payments:  paymentSvc,
		Schedule:  scheduleSvc,
		PgPool:    pgPool,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
